package matcher

import (
	"fmt"

	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
	"github.com/lintang-b-s/roadmatch/pkg/router"
	"github.com/lintang-b-s/roadmatch/pkg/spatial"
	"github.com/lintang-b-s/roadmatch/pkg/spatialindex"
)

// Matcher is the online map-matching façade: feed it samples one at a time
// via Update, and read back the most probable trajectory via Trajectory.
// Grounded on pkg/engine/matching/interface.go's façade-over-graph-and-index
// shape, generalized from the teacher's batch MapMatch to an online,
// per-sample Update call matching spec.md's operation set.
type Matcher struct {
	filter *HMMFilter
	state  *KState
	config Config

	hasPrevious bool
	previous    Sample
}

// ErrDegenerateSample is returned by Update when a sample cannot be used at
// all (zero time). Samples gated out by MinDistance/MinInterval are not an
// error: Update returns the current state vector for them.
var ErrDegenerateSample = fmt.Errorf("matcher: degenerate sample")

func New(roads *roadnetwork.RoadMap, index *spatialindex.Index, routes *router.Router, config Config) *Matcher {
	return &Matcher{
		filter: NewHMMFilter(roads, index, routes, config),
		state:  NewKState(config),
		config: config,
	}
}

// Update feeds one new sample to the matcher. It returns the updated state
// vector (possibly empty after an HMM break) and an error only when the
// sample itself is unusable.
func (m *Matcher) Update(sample Sample) ([]*Candidate, error) {
	if sample.SampleTime.IsZero() {
		return nil, fmt.Errorf("%w: zero sample time", ErrDegenerateSample)
	}

	if m.hasPrevious && m.gatedOut(sample) {
		return m.state.Current(), nil
	}

	predecessors := m.state.Current()
	result := m.stepWithWidening(predecessors, sample)

	m.state.Push(result)
	m.previous = sample
	m.hasPrevious = true

	if len(result) == 0 && len(predecessors) > 0 {
		// HMM break: the window already recorded the empty vector; the
		// next Update call runs with an empty predecessor set, which
		// HMMFilter.Step/markov.Filter treat as a restart.
	}

	return result, nil
}

// stepWithWidening retries HMMFilter.Step with a widened search radius
// when the initial radius yields no candidates at all, mirroring the
// teacher's SnapToRoads radius-widening loop.
func (m *Matcher) stepWithWidening(predecessors []*Candidate, sample Sample) []*Candidate {
	radius := m.config.SearchRadius
	for {
		result := m.filter.Step(predecessors, m.previous, sample, &radius)
		if len(result) > 0 || radius >= m.config.MaxSearchRadius {
			return result
		}
		radius *= 2
		if radius > m.config.MaxSearchRadius {
			radius = m.config.MaxSearchRadius
		}
	}
}

func (m *Matcher) gatedOut(sample Sample) bool {
	if m.config.MinInterval > 0 && sample.SampleTime.Sub(m.previous.SampleTime) < m.config.MinInterval {
		return true
	}
	if m.config.MinDistance > 0 && spatial.Distance(m.previous.Point, sample.Point) < m.config.MinDistance {
		return true
	}
	return false
}

// Trajectory returns the most probable matched trajectory retained in the
// sliding window: one RoadPoint per accepted sample, in order.
func (m *Matcher) Trajectory() []roadnetwork.RoadPoint {
	sequence := m.state.Sequence()
	points := make([]roadnetwork.RoadPoint, len(sequence))
	for i, c := range sequence {
		points[i] = c.Point
	}
	return points
}

// Reset clears the matcher's sliding window and previous-sample memory,
// starting a fresh trace.
func (m *Matcher) Reset() {
	m.state.Reset()
	m.hasPrevious = false
}

// RoadMap returns the road network the matcher is matching against.
func (m *Matcher) RoadMap() *roadnetwork.RoadMap {
	return m.filter.RoadMap()
}
