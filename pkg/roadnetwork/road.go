// Package roadnetwork implements the directed, split-edge road graph used
// by the router and matcher: BaseRoad holds one physical segment, Road is a
// directed projection of a BaseRoad, and RoadMap indexes both by id and by
// source vertex.
package roadnetwork

import (
	"fmt"
	"sync"

	"github.com/lintang-b-s/roadmatch/pkg/spatial"
)

// Direction of travel allowed on a BaseRoad, matching OSM oneway semantics.
type Direction int

const (
	DirectionForward Direction = iota + 1
	DirectionBackward
	DirectionBoth
)

// BaseRoad is one physical, undirected road segment: the unit of storage in
// a RoadMap. Two directed Roads (forward/backward) are derived from it when
// its Direction is DirectionBoth.
type BaseRoad struct {
	ID                 int64
	RefID              string // external reference, e.g. OSM way id
	Name               string
	RoadClass          string
	Direction          Direction
	MaxSpeedForwardKM  float64
	MaxSpeedBackwardKM float64
	Priority           float64 // routing priority multiplier, >= 1.0
	Tunnel             bool
	Source             int64 // vertex id at geometry[0]
	Target             int64 // vertex id at geometry[len-1]
	Geometry           []spatial.Point
}

// Length returns the BaseRoad's geodesic length in meters.
func (b *BaseRoad) Length() float64 {
	return spatial.Length(b.Geometry)
}

// Road is a directed projection of a BaseRoad. Edge ids follow the
// even/odd convention: a BaseRoad with id N yields forward edge id 2N and
// backward edge id 2N+1, mirroring the teacher's edge/shortcut id pairing.
type Road struct {
	ID        int64
	Base      *BaseRoad
	Forward   bool
	Source    int64
	Target    int64

	reverseOnce     sync.Once
	reverseGeometry []spatial.Point
}

// ForwardEdgeID and BackwardEdgeID compute the directed edge ids for a
// BaseRoad id under the even/odd convention.
func ForwardEdgeID(baseID int64) int64  { return baseID * 2 }
func BackwardEdgeID(baseID int64) int64 { return baseID*2 + 1 }

// Geometry returns the Road's point sequence in its direction of travel. A
// backward Road's reversed sequence is built on first access and cached.
func (r *Road) Geometry() []spatial.Point {
	if r.Forward {
		return r.Base.Geometry
	}
	r.reverseOnce.Do(func() { r.reverseGeometry = reversed(r.Base.Geometry) })
	return r.reverseGeometry
}

// Length returns the Road's length in meters (direction-independent).
func (r *Road) Length() float64 {
	return r.Base.Length()
}

// MaxSpeedKM returns the BaseRoad's speed limit for this Road's direction of
// travel, in km/h.
func (r *Road) MaxSpeedKM() float64 {
	if r.Forward {
		return r.Base.MaxSpeedForwardKM
	}
	return r.Base.MaxSpeedBackwardKM
}

func reversed(pts []spatial.Point) []spatial.Point {
	out := make([]spatial.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// RoadPoint locates a position on a Road by the fraction of its length
// travelled, in [0,1].
type RoadPoint struct {
	Road     *Road
	Fraction float64
}

// Point returns the geographic coordinate and azimuth at the RoadPoint.
func (rp RoadPoint) Point() (spatial.Point, float64) {
	return spatial.Interpolate(rp.Road.Geometry(), rp.Fraction)
}

// ErrInvalidRoad is returned by RoadMap construction when an invariant is
// violated, never panicked.
var (
	ErrInvalidRoad = fmt.Errorf("roadnetwork: invalid base road")
)

func (b *BaseRoad) validate() error {
	if len(b.Geometry) < 2 {
		return fmt.Errorf("%w: id=%d has fewer than 2 geometry points", ErrInvalidRoad, b.ID)
	}
	if b.Direction != DirectionForward && b.Direction != DirectionBackward && b.Direction != DirectionBoth {
		return fmt.Errorf("%w: id=%d has invalid direction %d", ErrInvalidRoad, b.ID, b.Direction)
	}
	if b.Priority < 1.0 {
		return fmt.Errorf("%w: id=%d has priority %f below 1.0", ErrInvalidRoad, b.ID, b.Priority)
	}
	if (b.Direction == DirectionForward || b.Direction == DirectionBoth) && b.MaxSpeedForwardKM <= 0 {
		return fmt.Errorf("%w: id=%d has non-positive forward maxspeed %f", ErrInvalidRoad, b.ID, b.MaxSpeedForwardKM)
	}
	if (b.Direction == DirectionBackward || b.Direction == DirectionBoth) && b.MaxSpeedBackwardKM <= 0 {
		return fmt.Errorf("%w: id=%d has non-positive backward maxspeed %f", ErrInvalidRoad, b.ID, b.MaxSpeedBackwardKM)
	}
	return nil
}
