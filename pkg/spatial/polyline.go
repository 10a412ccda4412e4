package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Length returns the cumulative geodesic length of a polyline in meters.
func Length(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < len(points)-1; i++ {
		total += Distance(points[i], points[i+1])
	}
	return total
}

// Interpolate returns the point at fraction (clamped to [0,1]) of the
// polyline's length, and the azimuth of the segment it falls on.
func Interpolate(points []Point, fraction float64) (Point, float64) {
	if len(points) == 0 {
		return Point{}, 0
	}
	if len(points) == 1 {
		return points[0], 0
	}
	if fraction <= 0 {
		return points[0], Azimuth(points[0], points[1])
	}
	if fraction >= 1 {
		return points[len(points)-1], Azimuth(points[len(points)-2], points[len(points)-1])
	}

	total := Length(points)
	target := fraction * total
	acc := 0.0
	for i := 0; i < len(points)-1; i++ {
		segLen := Distance(points[i], points[i+1])
		if acc+segLen >= target {
			remaining := target - acc
			az := Azimuth(points[i], points[i+1])
			return Destination(points[i], remaining, az), az
		}
		acc += segLen
	}
	return points[len(points)-1], Azimuth(points[len(points)-2], points[len(points)-1])
}

// Project returns the closest point on the polyline to query, the distance
// to it in meters, and the fraction of the polyline's length at which it
// lies.
func Project(points []Point, query Point) (Point, float64, float64) {
	if len(points) == 0 {
		return Point{}, math.Inf(1), 0
	}
	if len(points) == 1 {
		return points[0], Distance(points[0], query), 0
	}

	total := Length(points)
	bestDist := math.Inf(1)
	var bestPoint Point
	bestAlong := 0.0
	acc := 0.0

	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		segLen := Distance(a, b)
		proj, alongSeg := projectOnSegment(a, b, query)
		d := Distance(proj, query)
		if d < bestDist {
			bestDist = d
			bestPoint = proj
			bestAlong = acc + alongSeg*segLen
		}
		acc += segLen
	}

	fraction := 0.0
	if total > 0 {
		fraction = bestAlong / total
	}
	return bestPoint, bestDist, fraction
}

// Intercept returns the fraction along the polyline of the point nearest to
// query; equivalent to the fraction component of Project.
func Intercept(points []Point, query Point) float64 {
	_, _, fraction := Project(points, query)
	return fraction
}

// projectOnSegment projects query onto the great-circle segment a-b using
// s2.Project, grounded on the teacher's ProjectPointToLineCoord
// (pkg/geo/s2_geo.go), and returns the projected point and the fraction of
// the segment it falls at (clamped to [0,1] as a guard against floating
// point overshoot at the segment's endpoints).
func projectOnSegment(a, b, query Point) (Point, float64) {
	segLen := Distance(a, b)
	if segLen == 0 {
		return a, 0
	}

	projected := pointFromS2(s2.Project(query.s2Point(), a.s2Point(), b.s2Point()))

	frac := Distance(a, projected) / segLen
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	return projected, frac
}
