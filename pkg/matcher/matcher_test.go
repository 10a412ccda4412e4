package matcher

import (
	"testing"
	"time"

	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
	"github.com/lintang-b-s/roadmatch/pkg/router"
	"github.com/lintang-b-s/roadmatch/pkg/spatial"
	"github.com/lintang-b-s/roadmatch/pkg/spatialindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStraightRoadFixture builds a single long straight BaseRoad so a
// sequence of near-collinear GPS samples has an unambiguous match.
func buildStraightRoadFixture(t *testing.T) (*roadnetwork.RoadMap, *spatialindex.Index, *router.Router) {
	t.Helper()
	m := roadnetwork.NewRoadMap()
	require.NoError(t, m.AddRoad(&roadnetwork.BaseRoad{
		ID: 1, Name: "Long St", RoadClass: "residential",
		Direction: roadnetwork.DirectionForward, MaxSpeedForwardKM: 50, MaxSpeedBackwardKM: 50, Priority: 1,
		Geometry: []spatial.Point{
			spatial.NewPoint(0, 0),
			spatial.NewPoint(0, 0.01),
		},
	}))

	idx, err := spatialindex.New(m)
	require.NoError(t, err)

	return m, idx, router.New(m)
}

func TestMatcherUpdateProducesCandidatesNearRoad(t *testing.T) {
	m, idx, r := buildStraightRoadFixture(t)
	_ = m
	mm := New(nil, idx, r, NewConfig())

	base := time.Unix(1000, 0)
	result, err := mm.Update(NewSample(spatial.NewPoint(0.00001, 0.001), base))
	require.NoError(t, err)
	assert.NotEmpty(t, result)
}

func TestMatcherRejectsZeroTime(t *testing.T) {
	_, idx, r := buildStraightRoadFixture(t)
	mm := New(nil, idx, r, NewConfig())

	_, err := mm.Update(Sample{Point: spatial.NewPoint(0, 0.001)})
	assert.ErrorIs(t, err, ErrDegenerateSample)
}

func TestMatcherBuildsMultiStepTrajectory(t *testing.T) {
	_, idx, r := buildStraightRoadFixture(t)
	mm := New(nil, idx, r, NewConfig())

	base := time.Unix(2000, 0)
	samples := []Sample{
		NewSample(spatial.NewPoint(0.00001, 0.001), base),
		NewSample(spatial.NewPoint(0.00001, 0.004), base.Add(10*time.Second)),
		NewSample(spatial.NewPoint(0.00001, 0.007), base.Add(20*time.Second)),
	}

	var last []*Candidate
	for _, s := range samples {
		res, err := mm.Update(s)
		require.NoError(t, err)
		last = res
	}

	assert.NotEmpty(t, last)
	traj := mm.Trajectory()
	assert.NotEmpty(t, traj)
}

func TestMatcherGatesSamplesBelowMinInterval(t *testing.T) {
	_, idx, r := buildStraightRoadFixture(t)
	cfg := NewConfig()
	cfg.MinInterval = time.Minute
	mm := New(nil, idx, r, cfg)

	base := time.Unix(3000, 0)
	first, err := mm.Update(NewSample(spatial.NewPoint(0.00001, 0.001), base))
	require.NoError(t, err)

	second, err := mm.Update(NewSample(spatial.NewPoint(0.00001, 0.002), base.Add(time.Second)))
	require.NoError(t, err)

	assert.Equal(t, len(first), len(second))
}

func TestKStateSequenceWalksPredecessorChain(t *testing.T) {
	k := NewKState(NewConfig())

	first := NewCandidate(roadnetwork.RoadPoint{})
	first.SetFiltProb(0.5)
	k.Push([]*Candidate{first})

	second := NewCandidate(roadnetwork.RoadPoint{})
	second.SetPredecessor(first)
	second.SetFiltProb(0.9)
	k.Push([]*Candidate{second})

	seq := k.Sequence()
	require.Len(t, seq, 2)
	assert.Same(t, first, seq[0])
	assert.Same(t, second, seq[1])
}

func TestKStateSequencePicksHighestSeqProbNotFiltProb(t *testing.T) {
	k := NewKState(NewConfig())

	low := NewCandidate(roadnetwork.RoadPoint{})
	low.SetFiltProb(0.9)
	low.SetSeqProb(-5)

	high := NewCandidate(roadnetwork.RoadPoint{})
	high.SetFiltProb(0.1)
	high.SetSeqProb(-1)

	k.Push([]*Candidate{low, high})

	seq := k.Sequence()
	require.Len(t, seq, 1)
	assert.Same(t, high, seq[0])
}

func TestKStatePrunesCandidatesUnreferencedByCurrentFrontier(t *testing.T) {
	k := NewKState(NewConfig())

	firstA := NewCandidate(roadnetwork.RoadPoint{})
	firstB := NewCandidate(roadnetwork.RoadPoint{})
	k.Push([]*Candidate{firstA, firstB})

	// Only firstA is chained forward; firstB is a dead branch.
	second := NewCandidate(roadnetwork.RoadPoint{})
	second.SetPredecessor(firstA)
	k.Push([]*Candidate{second})

	assert.Equal(t, []*Candidate{firstA}, k.vectors[0])
}

// straightRoadOfLength builds a one-road RoadMap whose single BaseRoad is
// exactly lengthM meters long, so a same-road Path's cost() (and therefore
// Transition.Distance) is an exact, known value.
func straightRoadOfLength(t *testing.T, id int64, lengthM float64) *roadnetwork.Road {
	t.Helper()
	start := spatial.NewPoint(0, 0)
	end := spatial.Destination(start, lengthM, 90)

	m := roadnetwork.NewRoadMap()
	require.NoError(t, m.AddRoad(&roadnetwork.BaseRoad{
		ID: id, Name: "seg", RoadClass: "residential",
		Direction: roadnetwork.DirectionForward, MaxSpeedForwardKM: 30, MaxSpeedBackwardKM: 30, Priority: 1,
		Geometry: []spatial.Point{start, end},
	}))
	return m.Road(roadnetwork.ForwardEdgeID(id))
}

func transitionOfLength(t *testing.T, id int64, lengthM float64) *Transition {
	t.Helper()
	road := straightRoadOfLength(t, id, lengthM)
	return &Transition{Route: &router.Path{
		Source: roadnetwork.RoadPoint{Road: road, Fraction: 0},
		Target: roadnetwork.RoadPoint{Road: road, Fraction: 1},
	}}
}

func TestKStatePrunesVectorsBeyondMaxDistance(t *testing.T) {
	cfg := NewConfig()
	cfg.KStateMaxDistance = 100
	k := NewKState(cfg)

	a := NewCandidate(roadnetwork.RoadPoint{})
	k.Push([]*Candidate{a})

	b := NewCandidate(roadnetwork.RoadPoint{})
	b.SetPredecessor(a)
	b.SetTransition(transitionOfLength(t, 101, 40))
	k.Push([]*Candidate{b})

	c := NewCandidate(roadnetwork.RoadPoint{})
	c.SetPredecessor(b)
	c.SetTransition(transitionOfLength(t, 102, 80))
	k.Push([]*Candidate{c})

	// a->b is 40m, b->c is 80m; traveling back from c, 40+80=120 exceeds the
	// 100m window partway through b, so the oldest vector (a) is dropped
	// while b and c remain.
	require.Len(t, k.vectors, 2)
	assert.Same(t, b, k.vectors[0][0])
	assert.Same(t, c, k.vectors[1][0])
}

func TestEffectiveSigmaWidensOnGPSOutageFlag(t *testing.T) {
	_, idx, r := buildStraightRoadFixture(t)
	cfg := NewConfig()
	f := NewHMMFilter(nil, idx, r, cfg)
	_ = r

	base := time.Unix(4000, 0)
	previous := NewSample(spatial.NewPoint(0, 0), base)
	sample := NewSample(spatial.NewPoint(0, 0.001), base.Add(time.Second)).WithGPSOutage(true)

	assert.InDelta(t, cfg.SigmaZ*cfg.GapSigmaFactor, f.effectiveSigma(previous, sample), 1e-9)
}

func TestEffectiveSigmaWidensOnLargeTimeGapEvenWithoutOutageFlag(t *testing.T) {
	_, idx, r := buildStraightRoadFixture(t)
	cfg := NewConfig()
	cfg.GapInterval = 5 * time.Second
	f := NewHMMFilter(nil, idx, r, cfg)

	base := time.Unix(5000, 0)
	previous := NewSample(spatial.NewPoint(0, 0), base)
	sample := NewSample(spatial.NewPoint(0, 0.001), base.Add(time.Minute))

	assert.InDelta(t, cfg.SigmaZ*cfg.GapSigmaFactor, f.effectiveSigma(previous, sample), 1e-9)
}

func TestComputeTransitionBoundsByElapsedTimeTimesMaxVelocity(t *testing.T) {
	m := roadnetwork.NewRoadMap()
	require.NoError(t, m.AddRoad(&roadnetwork.BaseRoad{
		ID: 1, Name: "A", RoadClass: "residential",
		Direction: roadnetwork.DirectionForward, MaxSpeedForwardKM: 20, MaxSpeedBackwardKM: 20, Priority: 1,
		Geometry: []spatial.Point{spatial.NewPoint(0, 0), spatial.NewPoint(0, 0.01)},
	}))
	require.NoError(t, m.AddRoad(&roadnetwork.BaseRoad{
		ID: 2, Name: "B", RoadClass: "residential",
		Direction: roadnetwork.DirectionForward, MaxSpeedForwardKM: 20, MaxSpeedBackwardKM: 20, Priority: 1,
		Geometry: []spatial.Point{spatial.NewPoint(0, 0.01), spatial.NewPoint(0, 0.02)},
	}))
	idx, err := spatialindex.New(m)
	require.NoError(t, err)
	rt := router.New(m)

	cfg := NewConfig()
	cfg.MaxRouteVelocity = 10 // m/s, above the roads' ~5.56 m/s limit so routing is allowed
	f := NewHMMFilter(nil, idx, rt, cfg)

	roadA := m.Road(roadnetwork.ForwardEdgeID(1))
	roadB := m.Road(roadnetwork.ForwardEdgeID(2))
	source := NewCandidate(roadnetwork.RoadPoint{Road: roadA, Fraction: 0})
	target := NewCandidate(roadnetwork.RoadPoint{Road: roadB, Fraction: 1})

	// The combined route is ~2224m long at ~5.56 m/s, roughly 400s of
	// travel time, so a 1-second elapsed gap (maxBound = 1*10 = 10) must
	// reject the transition as implausible, while a 600-second gap
	// (maxBound = 6000) must accept it.
	tooFast := f.computeTransition(source, target, 2224, 1)
	assert.False(t, tooFast.Ok)

	plausible := f.computeTransition(source, target, 2224, 600)
	assert.True(t, plausible.Ok)
}

func TestRouteLengthDistinguishesSameEdgeFromOneHopTransition(t *testing.T) {
	road := straightRoadOfLength(t, 201, 100)
	sameEdge := &Transition{Route: &router.Path{
		Source: roadnetwork.RoadPoint{Road: road, Fraction: 0},
		Target: roadnetwork.RoadPoint{Road: road, Fraction: 1},
	}}
	assert.Equal(t, 1, sameEdge.RouteLength())

	roadA := straightRoadOfLength(t, 202, 50)
	roadB := straightRoadOfLength(t, 203, 50)
	oneHop := &Transition{Route: &router.Path{
		Source: roadnetwork.RoadPoint{Road: roadA, Fraction: 0},
		Target: roadnetwork.RoadPoint{Road: roadB, Fraction: 1},
	}}
	assert.Equal(t, 2, oneHop.RouteLength())
	assert.Greater(t, oneHop.RouteLength(), sameEdge.RouteLength())
}

func TestEmissionProbabilityDecreasesWithDistance(t *testing.T) {
	near := emissionProbability(1, 5)
	far := emissionProbability(100, 5)
	assert.Greater(t, near, far)
}

func TestTransitionProbabilityPenalizesDivergence(t *testing.T) {
	close := transitionProbability(100, 100, 5)
	diverged := transitionProbability(100, 500, 5)
	assert.Greater(t, close, diverged)
}
