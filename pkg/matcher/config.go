package matcher

import "time"

// Config holds every tunable of the matcher: emission/transition model
// parameters, search radii, and the KState sliding-window bounds.
type Config struct {
	// SigmaZ is the standard deviation, in meters, of the emission
	// Gaussian on GPS measurement error.
	SigmaZ float64
	// Beta is the scale of the transition exponential on
	// |routeLength - greatCircleDistance|.
	Beta float64

	// SearchRadius is the initial candidate-search radius in meters;
	// MaxSearchRadius bounds how far Matcher widens it when no candidate
	// is found.
	SearchRadius    float64
	MaxSearchRadius float64

	// MaxTransitionDistance rejects a transition outright when the route
	// length and great-circle distance diverge by more than this many
	// meters, mirroring the teacher's maxTransitionDist cutoff.
	MaxTransitionDistance float64

	// MaxRouteVelocity bounds the underlying router.Params.MaxVelocity used
	// when resolving a transition's route (spec.md §6 vMax, default ~36
	// m/s). The router's MaxBound for that search is computed per step as
	// Δt·MaxRouteVelocity, where Δt is the gap between the two samples
	// being connected, not a fixed config value.
	MaxRouteVelocity float64

	// MinDistance and MinInterval gate which samples the Matcher façade
	// actually feeds to the filter: samples closer than MinDistance to
	// the last accepted one, or sooner than MinInterval after it, are
	// dropped.
	MinDistance float64
	MinInterval time.Duration

	// GapInterval and GapSigmaFactor widen SigmaZ by GapSigmaFactor when
	// the interval since the previous sample exceeds GapInterval,
	// modeling degraded confidence after a GPS outage.
	GapInterval   time.Duration
	GapSigmaFactor float64

	// KStateMaxStates bounds the number of state vectors (time steps) the
	// sliding window keeps (tau in the original), KStateMaxDistance
	// bounds how far back it prunes converged predecessor chains (the
	// k-window).
	KStateMaxStates   int
	KStateMaxDistance float64

	// TransitionWorkers bounds the number of goroutines used to compute
	// the pairwise transition matrix between two sample's candidates.
	TransitionWorkers int
}

// NewConfig returns the specification's own generic defaults: a GPS
// measurement sigma around 5m and a transition beta on the same scale.
func NewConfig() Config {
	return Config{
		SigmaZ:                5,
		Beta:                  5,
		SearchRadius:          200,
		MaxSearchRadius:       500,
		MaxTransitionDistance: 15000,
		MaxRouteVelocity:      36, // ~130 km/h, spec.md §4.E/§6 default vMax
		MinDistance:           0,
		MinInterval:           0,
		GapInterval:           2 * time.Minute,
		GapSigmaFactor:        4,
		KStateMaxStates:       100,
		KStateMaxDistance:     5000,
		TransitionWorkers:     30,
	}
}

// TeacherPreset returns the tuned constants used by the teacher's own
// hmm_mapmatching.go (sigmaZ=4.07, beta=0.0009), for callers that want to
// match its specific calibration rather than the specification's generic
// defaults.
func TeacherPreset() Config {
	c := NewConfig()
	c.SigmaZ = 4.07
	c.Beta = 0.0009
	return c
}
