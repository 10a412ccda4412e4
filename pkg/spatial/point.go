// Package spatial provides WGS-84 geodesic primitives used by the road
// network, spatial index, router and map matcher: distance, azimuth and
// polyline interpolation/projection.
package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Point is a WGS-84 coordinate, latitude and longitude in degrees.
type Point struct {
	Lat float64
	Lon float64
}

func NewPoint(lat, lon float64) Point {
	return Point{Lat: lat, Lon: lon}
}

func (p Point) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

func (p Point) s2Point() s2.Point {
	return s2.PointFromLatLng(p.latLng())
}

// pointFromS2 converts an s2.Point back to a Point, the inverse of
// Point.s2Point.
func pointFromS2(sp s2.Point) Point {
	ll := s2.LatLngFromPoint(sp)
	return Point{Lat: ll.Lat.Degrees(), Lon: ll.Lng.Degrees()}
}

const earthRadiusM = 6371007.0

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * earthRadiusM
}

// Azimuth returns the initial bearing from a to b in degrees, normalized to
// [0, 360).
func Azimuth(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	theta := math.Atan2(y, x) * 180 / math.Pi

	return NormalizeAzimuth(theta)
}

// NormalizeAzimuth tightens an azimuth in degrees to [0, 360).
func NormalizeAzimuth(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// AzimuthDifference returns the smallest absolute angular difference between
// two azimuths in degrees, in [0, 180].
func AzimuthDifference(a, b float64) float64 {
	d := math.Abs(NormalizeAzimuth(a) - NormalizeAzimuth(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Destination returns the point reached by travelling distanceM meters from
// p along azimuthDeg degrees.
func Destination(p Point, distanceM, azimuthDeg float64) Point {
	angularDist := distanceM / earthRadiusM
	bearing := azimuthDeg * math.Pi / 180
	lat1 := p.Lat * math.Pi / 180
	lon1 := p.Lon * math.Pi / 180

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angularDist) +
		math.Cos(lat1)*math.Sin(angularDist)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(
		math.Sin(bearing)*math.Sin(angularDist)*math.Cos(lat1),
		math.Cos(angularDist)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Point{Lat: lat2 * 180 / math.Pi, Lon: lon2 * 180 / math.Pi}
}
