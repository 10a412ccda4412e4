package matcher

import (
	"time"

	"github.com/google/uuid"

	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
	"github.com/lintang-b-s/roadmatch/pkg/router"
)

// Transition is the edge between two consecutive Candidates: the route
// found between them and its geodesic length, grounded on
// original_source/.../matcher/MatcherTransition.java's (route, distance)
// pair.
type Transition struct {
	Route *router.Path
}

// RouteLength is the number of edges in the route, counting both boundary
// edges (source and target): 1 for a same-edge transition, otherwise
// 2+len(Route.Roads) since Route.Roads holds only the edges strictly
// between source and target.
func (t *Transition) RouteLength() int {
	if t.Route == nil {
		return 0
	}
	if t.Route.Source.Road == t.Route.Target.Road && len(t.Route.Roads) == 0 {
		return 1
	}
	return 2 + len(t.Route.Roads)
}

func (t *Transition) Distance() float64 {
	if t.Route == nil {
		return 0
	}
	return t.Route.Length()
}

// Candidate is one state hypothesis: a RoadPoint with the HMM bookkeeping
// fields markov.Filter needs (predecessor link, filter/sequence
// probability), grounded on
// original_source/.../matcher/MatcherCandidate.java's field layout.
type Candidate struct {
	ID     string
	Point  roadnetwork.RoadPoint
	Sample *Sample

	predecessor *Candidate
	transition  *Transition
	filtProb    float64
	seqProb     float64
	sampleTime  time.Time
}

func NewCandidate(point roadnetwork.RoadPoint) *Candidate {
	return &Candidate{ID: uuid.NewString(), Point: point}
}

// NewCandidateFromSample creates a Candidate that also carries the Sample it
// was derived from, matching MatcherCandidate's optional (point, sample)
// constructor.
func NewCandidateFromSample(point roadnetwork.RoadPoint, sample Sample) *Candidate {
	c := NewCandidate(point)
	c.Sample = &sample
	return c
}

func (c *Candidate) EdgeID() int64 { return c.Point.Road.ID }

func (c *Candidate) Predecessor() (*Candidate, bool) { return c.predecessor, c.predecessor != nil }
func (c *Candidate) SetPredecessor(p *Candidate)     { c.predecessor = p }

func (c *Candidate) Transition() (*Transition, bool) { return c.transition, c.transition != nil }
func (c *Candidate) SetTransition(t *Transition)     { c.transition = t }

func (c *Candidate) FiltProb() float64     { return c.filtProb }
func (c *Candidate) SetFiltProb(v float64) { c.filtProb = v }

func (c *Candidate) SeqProb() float64     { return c.seqProb }
func (c *Candidate) SetSeqProb(v float64) { c.seqProb = v }

func (c *Candidate) SetTime(t time.Time) { c.sampleTime = t }
func (c *Candidate) Time() time.Time     { return c.sampleTime }
