// Package spatialindex provides radius/nearest search over road geometry,
// backed by an R-tree. It plays the role the teacher's pkg/snap.RoadSnapper
// plays over a hand-rolled R-tree, but wraps the real dhconnelly/rtreego
// library instead.
package spatialindex

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
	"github.com/lintang-b-s/roadmatch/pkg/spatial"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
)

// Index is a spatial index over Roads, supporting nearest-road and
// radius-bounded candidate search for map matching.
type Index struct {
	tree *rtreego.Rtree
}

// entry adapts a *roadnetwork.Road to rtreego.Spatial by bounding its
// geometry's envelope.
type entry struct {
	road *roadnetwork.Road
	rect *rtreego.Rect
}

func (e *entry) Bounds() *rtreego.Rect {
	return e.rect
}

func envelope(geom []spatial.Point) (*rtreego.Rect, error) {
	minLat, minLon := geom[0].Lat, geom[0].Lon
	maxLat, maxLon := geom[0].Lat, geom[0].Lon
	for _, p := range geom[1:] {
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}
	const pad = 1e-9 // rtreego rejects zero-length rectangle sides
	lengths := []float64{maxLat - minLat + pad, maxLon - minLon + pad}
	return rtreego.NewRect(rtreego.Point{minLat, minLon}, lengths)
}

// New builds an Index over every Road in m.
func New(m *roadnetwork.RoadMap) (*Index, error) {
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for _, road := range m.Roads() {
		rect, err := envelope(road.Geometry())
		if err != nil {
			return nil, err
		}
		tree.Insert(&entry{road: road, rect: rect})
	}
	return &Index{tree: tree}, nil
}

// Candidate is a RoadPoint found by a radius search, annotated with its
// distance in meters from the query point.
type Candidate struct {
	roadnetwork.RoadPoint
	Distance float64
}

// Radius returns, for every Road whose bounding envelope intersects a
// square of side 2*radiusM centered on query, the closest RoadPoint on that
// Road to query and its distance, sorted by ascending distance. Roads
// farther than radiusM from query (by true projected distance, not just
// bounding-box overlap) are excluded.
func (idx *Index) Radius(query spatial.Point, radiusM float64) []Candidate {
	searchRect := searchEnvelope(query, radiusM)
	hits := idx.tree.SearchIntersect(searchRect)

	candidates := make([]Candidate, 0, len(hits))
	seen := make(map[int64]struct{}, len(hits))
	for _, hit := range hits {
		e := hit.(*entry)
		if _, dup := seen[e.road.ID]; dup {
			continue
		}
		seen[e.road.ID] = struct{}{}

		_, dist, fraction := spatial.Project(e.road.Geometry(), query)
		if dist > radiusM {
			continue
		}
		candidates = append(candidates, Candidate{
			RoadPoint: roadnetwork.RoadPoint{Road: e.road, Fraction: fraction},
			Distance:  dist,
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Distance < candidates[j].Distance })
	return candidates
}

// Nearest returns the single closest RoadPoint to query, widening the
// search radius up to maxRadiusM if nothing is found at first, mirroring
// the teacher's SnapToRoads radius-widening loop.
func (idx *Index) Nearest(query spatial.Point, startRadiusM, maxRadiusM float64) (Candidate, bool) {
	radius := startRadiusM
	for radius <= maxRadiusM {
		if cands := idx.Radius(query, radius); len(cands) > 0 {
			return cands[0], true
		}
		radius *= 2
	}
	return Candidate{}, false
}

func searchEnvelope(p spatial.Point, radiusM float64) *rtreego.Rect {
	ne := spatial.Destination(p, radiusM*1.4142136, 45)
	sw := spatial.Destination(p, radiusM*1.4142136, 225)

	minLat, maxLat := sw.Lat, ne.Lat
	minLon, maxLon := sw.Lon, ne.Lon
	if minLat > maxLat {
		minLat, maxLat = maxLat, minLat
	}
	if minLon > maxLon {
		minLon, maxLon = maxLon, minLon
	}

	rect, err := rtreego.NewRect(rtreego.Point{minLat, minLon}, []float64{maxLat - minLat, maxLon - minLon})
	if err != nil {
		// degenerate (radius ~0): fall back to a minimal rect around p
		rect, _ = rtreego.NewRect(rtreego.Point{p.Lat, p.Lon}, []float64{1e-9, 1e-9})
	}
	return rect
}
