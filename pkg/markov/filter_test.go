package markov

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTransition struct {
	routeLen int
}

func (t *testTransition) RouteLength() int { return t.routeLen }

type testCandidate struct {
	edgeID      int64
	predecessor *testCandidate
	transition  *testTransition
	filtProb    float64
	seqProb     float64
	t           time.Time
}

func (c *testCandidate) EdgeID() int64 { return c.edgeID }

func (c *testCandidate) Predecessor() (*testCandidate, bool) { return c.predecessor, c.predecessor != nil }
func (c *testCandidate) SetPredecessor(p *testCandidate)     { c.predecessor = p }

func (c *testCandidate) Transition() (*testTransition, bool) { return c.transition, c.transition != nil }
func (c *testCandidate) SetTransition(t *testTransition)     { c.transition = t }

func (c *testCandidate) FiltProb() float64     { return c.filtProb }
func (c *testCandidate) SetFiltProb(v float64) { c.filtProb = v }

func (c *testCandidate) SeqProb() float64     { return c.seqProb }
func (c *testCandidate) SetSeqProb(v float64) { c.seqProb = v }

func (c *testCandidate) SetTime(tm time.Time) { c.t = tm }

type testSample struct{ t time.Time }

func (s testSample) Time() time.Time { return s.t }

func newFilter() *Filter[*testCandidate, *testTransition, testSample] {
	return &Filter[*testCandidate, *testTransition, testSample]{}
}

func TestExecuteInitialStepNormalizesAndSetsSeqProb(t *testing.T) {
	f := newFilter()
	f.Candidates = func(predecessors []*testCandidate, sample testSample, radius *float64) []WeightedCandidate[*testCandidate] {
		return []WeightedCandidate[*testCandidate]{
			{Candidate: &testCandidate{edgeID: 1}, Emission: 0.5},
			{Candidate: &testCandidate{edgeID: 2}, Emission: 0.25},
		}
	}

	result := f.Execute(nil, testSample{}, testSample{t: time.Unix(1, 0)}, nil)

	require.Len(t, result, 2)
	total := 0.0
	for _, c := range result {
		total += c.FiltProb()
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestExecutePropagatesFiltProbThroughTransitions(t *testing.T) {
	f := newFilter()
	prev := &testCandidate{edgeID: 10, filtProb: 1, seqProb: 0}

	f.Candidates = func(predecessors []*testCandidate, sample testSample, radius *float64) []WeightedCandidate[*testCandidate] {
		return []WeightedCandidate[*testCandidate]{
			{Candidate: &testCandidate{edgeID: 11}, Emission: 0.8},
		}
	}
	f.Transition = func(previousSample testSample, predecessor *testCandidate, sample testSample, candidate *testCandidate) WeightedTransition[*testTransition] {
		return WeightedTransition[*testTransition]{Transition: &testTransition{routeLen: 1}, Probability: 0.9, Ok: true}
	}

	result := f.Execute([]*testCandidate{prev}, testSample{}, testSample{t: time.Unix(2, 0)}, nil)

	require.Len(t, result, 1)
	pred, ok := result[0].Predecessor()
	require.True(t, ok)
	assert.Same(t, prev, pred)
	assert.InDelta(t, 1.0, result[0].FiltProb(), 1e-9)
}

func TestExecuteTieBreaksByShorterRoute(t *testing.T) {
	f := newFilter()
	predA := &testCandidate{edgeID: 1, filtProb: 1, seqProb: 0}
	predB := &testCandidate{edgeID: 2, filtProb: 1, seqProb: 0}

	f.Candidates = func(predecessors []*testCandidate, sample testSample, radius *float64) []WeightedCandidate[*testCandidate] {
		return []WeightedCandidate[*testCandidate]{
			{Candidate: &testCandidate{edgeID: 20}, Emission: 0.5},
		}
	}
	f.Transition = func(previousSample testSample, predecessor *testCandidate, sample testSample, candidate *testCandidate) WeightedTransition[*testTransition] {
		routeLen := 3
		if predecessor == predA {
			routeLen = 1
		}
		return WeightedTransition[*testTransition]{Transition: &testTransition{routeLen: routeLen}, Probability: 0.5, Ok: true}
	}

	result := f.Execute([]*testCandidate{predA, predB}, testSample{}, testSample{t: time.Unix(3, 0)}, nil)

	require.Len(t, result, 1)
	pred, ok := result[0].Predecessor()
	require.True(t, ok)
	assert.Same(t, predA, pred)
}

func TestExecuteTieBreaksBySmallerEdgeIDOnEqualRouteLength(t *testing.T) {
	f := newFilter()
	predA := &testCandidate{edgeID: 5, filtProb: 1, seqProb: 0}
	predB := &testCandidate{edgeID: 2, filtProb: 1, seqProb: 0}

	f.Candidates = func(predecessors []*testCandidate, sample testSample, radius *float64) []WeightedCandidate[*testCandidate] {
		return []WeightedCandidate[*testCandidate]{
			{Candidate: &testCandidate{edgeID: 20}, Emission: 0.5},
		}
	}
	f.Transition = func(previousSample testSample, predecessor *testCandidate, sample testSample, candidate *testCandidate) WeightedTransition[*testTransition] {
		return WeightedTransition[*testTransition]{Transition: &testTransition{routeLen: 2}, Probability: 0.5, Ok: true}
	}

	result := f.Execute([]*testCandidate{predA, predB}, testSample{}, testSample{t: time.Unix(6, 0)}, nil)

	require.Len(t, result, 1)
	pred, ok := result[0].Predecessor()
	require.True(t, ok)
	assert.Same(t, predB, pred)
}

func TestExecuteReportsBreakWhenNoTransitions(t *testing.T) {
	f := newFilter()
	prev := &testCandidate{edgeID: 1, filtProb: 1, seqProb: 0}

	f.Candidates = func(predecessors []*testCandidate, sample testSample, radius *float64) []WeightedCandidate[*testCandidate] {
		return []WeightedCandidate[*testCandidate]{
			{Candidate: &testCandidate{edgeID: 30}, Emission: 0.5},
		}
	}
	f.Transition = func(previousSample testSample, predecessor *testCandidate, sample testSample, candidate *testCandidate) WeightedTransition[*testTransition] {
		return WeightedTransition[*testTransition]{Ok: false}
	}

	var brokeReason string
	f.OnBreak = func(sample testSample, reason string) { brokeReason = reason }

	result := f.Execute([]*testCandidate{prev}, testSample{}, testSample{t: time.Unix(4, 0)}, nil)

	require.Len(t, result, 1) // falls back to emission-only restart
	assert.Equal(t, "no state transitions", brokeReason)
}

func TestExecuteNoCandidatesIsBreak(t *testing.T) {
	f := newFilter()
	f.Candidates = func(predecessors []*testCandidate, sample testSample, radius *float64) []WeightedCandidate[*testCandidate] {
		return nil
	}

	var broke bool
	f.OnBreak = func(sample testSample, reason string) { broke = true }

	result := f.Execute(nil, testSample{}, testSample{t: time.Unix(5, 0)}, nil)

	assert.Empty(t, result)
	assert.True(t, broke)
}
