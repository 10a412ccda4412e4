package matcher

import (
	"log"

	"github.com/lintang-b-s/roadmatch/pkg/concurrent"
	"github.com/lintang-b-s/roadmatch/pkg/markov"
	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
	"github.com/lintang-b-s/roadmatch/pkg/router"
	"github.com/lintang-b-s/roadmatch/pkg/spatial"
	"github.com/lintang-b-s/roadmatch/pkg/spatialindex"
)

// HMMFilter wires the generic markov.Filter to road-network candidates and
// router-derived transitions, grounded on
// pkg/engine/matching/interface.go's façade-over-graph-and-index shape and
// on hmm_mapmatching.go's emission/transition formulas and worker-pool
// usage pattern.
type HMMFilter struct {
	roads  *roadnetwork.RoadMap
	index  *spatialindex.Index
	routes *router.Router
	config Config
}

func NewHMMFilter(roads *roadnetwork.RoadMap, index *spatialindex.Index, routes *router.Router, config Config) *HMMFilter {
	return &HMMFilter{roads: roads, index: index, routes: routes, config: config}
}

// RoadMap returns the underlying road network, so callers (e.g. pkg/server)
// can resolve a matched edge id back to its BaseRoad for rendering.
func (f *HMMFilter) RoadMap() *roadnetwork.RoadMap {
	return f.roads
}

type transitionKey struct {
	predecessorEdge int64
	candidateEdge   int64
}

// Step runs one forward-pass filter iteration from predecessors (the prior
// state vector, possibly empty) to sample, given the previous sample for
// great-circle distance computation.
func (f *HMMFilter) Step(predecessors []*Candidate, previous, sample Sample, radius *float64) []*Candidate {
	searchRadius := f.config.SearchRadius
	if radius != nil {
		searchRadius = *radius
	}

	sigmaZ := f.effectiveSigma(previous, sample)

	weighted := f.weightedCandidates(sample, searchRadius, sigmaZ)
	transitionMatrix := f.computeTransitionMatrix(predecessors, weighted, previous, sample)

	filter := &markov.Filter[*Candidate, *Transition, Sample]{
		Candidates: func(_ []*Candidate, _ Sample, _ *float64) []markov.WeightedCandidate[*Candidate] {
			return weighted
		},
		Transition: func(_ Sample, predecessor *Candidate, _ Sample, candidate *Candidate) markov.WeightedTransition[*Transition] {
			wt, ok := transitionMatrix[transitionKey{predecessor.EdgeID(), candidate.EdgeID()}]
			if !ok {
				return markov.WeightedTransition[*Transition]{Ok: false}
			}
			return wt
		},
		OnBreak: func(sample Sample, reason string) {
			log.Printf("HMM break: %s at %v", reason, sample.Point)
		},
	}

	return filter.Execute(predecessors, previous, sample, radius)
}

// effectiveSigma widens the emission sigma when the sample itself reports a
// GPS outage (spec.md §4.E's "gpsOutage=true samples ... implementation may
// widen σ"), and additionally when the gap since the previous sample
// exceeds GapInterval — a separate heuristic for outages a sample source
// doesn't flag explicitly, not a substitute for the gpsOutage field.
func (f *HMMFilter) effectiveSigma(previous, sample Sample) float64 {
	if sample.GPSOutage {
		return f.config.SigmaZ * f.config.GapSigmaFactor
	}
	if f.config.GapInterval > 0 && !previous.SampleTime.IsZero() {
		if sample.SampleTime.Sub(previous.SampleTime) > f.config.GapInterval {
			return f.config.SigmaZ * f.config.GapSigmaFactor
		}
	}
	return f.config.SigmaZ
}

func (f *HMMFilter) weightedCandidates(sample Sample, radius, sigmaZ float64) []markov.WeightedCandidate[*Candidate] {
	hits := f.index.Radius(sample.Point, radius)
	out := make([]markov.WeightedCandidate[*Candidate], 0, len(hits))

	for _, hit := range hits {
		emission := emissionProbability(hit.Distance, sigmaZ)
		if sample.HasAzimuth {
			_, roadAzimuth := hit.RoadPoint.Point()
			emission *= azimuthFactor(sample.Azimuth, roadAzimuth)
		}
		if emission == 0 {
			continue
		}
		out = append(out, markov.WeightedCandidate[*Candidate]{
			Candidate: NewCandidateFromSample(hit.RoadPoint, sample),
			Emission:  emission,
		})
	}
	return out
}

// computeTransitionMatrix fans the pairwise transition computation for
// every (predecessor, candidate) pair out across a concurrent.WorkerPool,
// mirroring hmm_mapmatching.go's concurrent.NewWorkerPool[...] usage in its
// MapMatch loop.
func (f *HMMFilter) computeTransitionMatrix(
	predecessors []*Candidate, candidates []markov.WeightedCandidate[*Candidate], previous, sample Sample,
) map[transitionKey]markov.WeightedTransition[*Transition] {
	result := make(map[transitionKey]markov.WeightedTransition[*Transition])
	if len(predecessors) == 0 || len(candidates) == 0 {
		return result
	}

	type job struct {
		predecessor *Candidate
		candidate   *Candidate
	}
	type jobResult struct {
		key transitionKey
		wt  markov.WeightedTransition[*Transition]
	}

	greatCircle := spatial.Distance(previous.Point, sample.Point)
	deltaT := sample.SampleTime.Sub(previous.SampleTime).Seconds()
	if deltaT < 0 {
		deltaT = 0
	}

	pool := concurrent.NewWorkerPool[job, jobResult](f.config.TransitionWorkers, len(predecessors)*len(candidates))
	for _, predecessor := range predecessors {
		for _, wc := range candidates {
			pool.AddJob(job{predecessor: predecessor, candidate: wc.Candidate})
		}
	}
	pool.Close()
	pool.Start(func(j job) jobResult {
		wt := f.computeTransition(j.predecessor, j.candidate, greatCircle, deltaT)
		return jobResult{key: transitionKey{j.predecessor.EdgeID(), j.candidate.EdgeID()}, wt: wt}
	})
	pool.Wait()

	for r := range pool.CollectResults() {
		result[r.key] = r.wt
	}
	return result
}

// computeTransition resolves the route between one predecessor/candidate
// pair. Per spec.md §4.E, the bound on that search is the elapsed time
// between the two samples (deltaT, seconds) multiplied by the configured
// speed ceiling, not a fixed distance constant — a route that would require
// implausible average speed is pruned by the Router itself rather than by a
// post-hoc check.
func (f *HMMFilter) computeTransition(predecessor, candidate *Candidate, greatCircle, deltaT float64) markov.WeightedTransition[*Transition] {
	maxBound := deltaT * f.config.MaxRouteVelocity
	if maxBound <= 0 {
		maxBound = f.config.MaxTransitionDistance * 2
	}

	paths, err := f.routes.Route(predecessor.Point, []roadnetwork.RoadPoint{candidate.Point}, router.Params{
		Cost:        router.TimeCost(),
		Bound:       router.TimeCost(),
		MaxBound:    maxBound,
		MaxVelocity: f.config.MaxRouteVelocity,
	})
	if err != nil || len(paths) == 0 || paths[0] == nil {
		return markov.WeightedTransition[*Transition]{Ok: false}
	}

	path := paths[0]
	routeLength := path.Length()
	if abs(routeLength-greatCircle) > f.config.MaxTransitionDistance {
		return markov.WeightedTransition[*Transition]{Ok: false}
	}

	prob := transitionProbability(routeLength, greatCircle, f.config.Beta)
	return markov.WeightedTransition[*Transition]{
		Transition:  &Transition{Route: path},
		Probability: prob,
		Ok:          true,
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
