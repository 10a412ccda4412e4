package matcher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lintang-b-s/roadmatch/pkg/spatial"
)

// WireSample is the JSON interchange form of Sample, grounded on
// MatcherSample.java's toJSON()/JSONObject constructor field set.
// encoding/json is used here, not a third-party library, because the
// teacher's own stack carries none for wire JSON anywhere
// (pkg/server/mm_rest/handlers.go uses encoding/json-compatible struct tags
// throughout via go-chi/render, which itself defers to encoding/json); no
// example repo in the pack carries a WKT codec either, so the point's WKT
// text is hand-formatted with fmt, the same way the teacher formats ad hoc
// strings elsewhere (e.g. Candidate.String()'s "Edge-RefId: ..." in the
// original).
type WireSample struct {
	ID        string   `json:"id"`
	Point     string   `json:"point"`
	Time      int64    `json:"time"`
	Azimuth   *float64 `json:"azimuth,omitempty"`
	GPSOutage bool     `json:"gpsOutage,omitempty"`
	Velocity  *float64 `json:"velocity,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	TraceID   string   `json:"traceId,omitempty"`
}

// pointToWKT renders a spatial.Point as a WKT "POINT (lon lat)" literal,
// the coordinate order GeometryEngine.geometryToWkt uses for geographic
// points.
func pointToWKT(p spatial.Point) string {
	return fmt.Sprintf("POINT (%s %s)", trimFloat(p.Lon), trimFloat(p.Lat))
}

func trimFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}

// pointFromWKT parses a "POINT (lon lat)" literal back into a spatial.Point.
func pointFromWKT(wkt string) (spatial.Point, error) {
	var lon, lat float64
	if _, err := fmt.Sscanf(wkt, "POINT (%g %g)", &lon, &lat); err != nil {
		return spatial.Point{}, fmt.Errorf("matcher: parse wkt point %q: %w", wkt, err)
	}
	return spatial.NewPoint(lat, lon), nil
}

func (s Sample) MarshalJSON() ([]byte, error) {
	w := WireSample{
		ID:        s.ID,
		Point:     pointToWKT(s.Point),
		Time:      s.SampleTime.UnixMilli(),
		GPSOutage: s.GPSOutage,
		Velocity:  s.Velocity,
		Accuracy:  s.Accuracy,
		TraceID:   s.TraceID,
	}
	if s.HasAzimuth {
		w.Azimuth = &s.Azimuth
	}
	return json.Marshal(w)
}

func (s *Sample) UnmarshalJSON(data []byte) error {
	var w WireSample
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("matcher: unmarshal sample: %w", err)
	}
	point, err := pointFromWKT(w.Point)
	if err != nil {
		return err
	}

	*s = NewSample(point, time.UnixMilli(w.Time).UTC())
	s.ID = w.ID
	s.TraceID = w.TraceID
	s.GPSOutage = w.GPSOutage
	s.Velocity = w.Velocity
	s.Accuracy = w.Accuracy
	if w.Azimuth != nil {
		s.Azimuth = spatial.NormalizeAzimuth(*w.Azimuth)
		s.HasAzimuth = true
	}
	return nil
}

// WireRoadPoint is the JSON interchange form of roadnetwork.RoadPoint,
// identifying an edge by id rather than by pointer since the wire format
// has no RoadMap to resolve against.
type WireRoadPoint struct {
	Road     int64   `json:"road"`
	Fraction float64 `json:"fraction"`
}

// WireRoute is the JSON interchange form of a Transition's router.Path:
// source and target road points plus the ordered interior edge ids,
// grounded on spec.md §6's `transition.route: {source, target, roads}`
// shape and on Path's own Source/Target/Roads fields.
type WireRoute struct {
	Source WireRoadPoint `json:"source"`
	Target WireRoadPoint `json:"target"`
	Roads  []int64       `json:"roads"`
}

// WireTransition wraps WireRoute, mirroring MatcherTransition's single
// `route` field.
type WireTransition struct {
	Route WireRoute `json:"route"`
}

// WireCandidate is the JSON interchange form of a matched Candidate,
// grounded on MatcherCandidate.java's toJSON()/fromJSON() field set and on
// spec.md §6's candidate shape.
type WireCandidate struct {
	ID          string          `json:"id"`
	FiltProb    float64         `json:"filtprob"`
	SeqProb     float64         `json:"seqprob"`
	Predecessor string          `json:"predecessor,omitempty"`
	Transition  *WireTransition `json:"transition,omitempty"`
	RoadPoint   WireRoadPoint   `json:"roadpoint"`
	Sample      *WireSample     `json:"sample,omitempty"`
}

// ToWire renders a Candidate's full interop representation: identity,
// probabilities, predecessor back-reference by id, the transition route
// (source, target, and the edge ids strictly between them), and the
// originating sample when the candidate carries one.
func (c *Candidate) ToWire() WireCandidate {
	w := WireCandidate{
		ID:        c.ID,
		FiltProb:  c.filtProb,
		SeqProb:   c.seqProb,
		RoadPoint: WireRoadPoint{Road: c.EdgeID(), Fraction: c.Point.Fraction},
	}
	if p, ok := c.Predecessor(); ok {
		w.Predecessor = p.ID
	}
	if t, ok := c.Transition(); ok && t.Route != nil {
		roads := make([]int64, len(t.Route.Roads))
		for i, r := range t.Route.Roads {
			roads[i] = r.ID
		}
		w.Transition = &WireTransition{Route: WireRoute{
			Source: WireRoadPoint{Road: t.Route.Source.Road.ID, Fraction: t.Route.Source.Fraction},
			Target: WireRoadPoint{Road: t.Route.Target.Road.ID, Fraction: t.Route.Target.Fraction},
			Roads:  roads,
		}}
	}
	if c.Sample != nil {
		s := *c.Sample
		w.Sample = &WireSample{
			ID:        s.ID,
			Point:     pointToWKT(s.Point),
			Time:      s.SampleTime.UnixMilli(),
			GPSOutage: s.GPSOutage,
			Velocity:  s.Velocity,
			Accuracy:  s.Accuracy,
			TraceID:   s.TraceID,
		}
		if s.HasAzimuth {
			az := s.Azimuth
			w.Sample.Azimuth = &az
		}
	}
	return w
}
