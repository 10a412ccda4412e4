// Package server exposes the map matcher over HTTP: per-trace online
// updates, trajectory retrieval and nearest-road snapping. Grounded on
// pkg/server/mm_rest/handlers.go and pkg/server/mm_rest/service/mapmatch.go's
// service-wraps-interfaces shape, generalized from the teacher's one-shot
// batch MapMatch call to per-trace online Update calls.
package server

import (
	"fmt"
	"sync"

	"github.com/lintang-b-s/roadmatch/pkg/matcher"
	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
	"github.com/lintang-b-s/roadmatch/pkg/router"
	"github.com/lintang-b-s/roadmatch/pkg/spatial"
	"github.com/lintang-b-s/roadmatch/pkg/spatialindex"
)

// MatchService holds one matcher.Matcher per active trace id, so concurrent
// callers can feed samples into independent traces without interfering with
// each other, mirroring how MapMatchingService in the teacher wraps a
// single-trace HMM run behind a request-scoped call.
type MatchService struct {
	roads  *roadnetwork.RoadMap
	index  *spatialindex.Index
	routes *router.Router
	config matcher.Config

	mu     sync.Mutex
	traces map[string]*matcher.Matcher
}

func NewMatchService(roads *roadnetwork.RoadMap, index *spatialindex.Index, routes *router.Router, config matcher.Config) *MatchService {
	return &MatchService{
		roads:  roads,
		index:  index,
		routes: routes,
		config: config,
		traces: make(map[string]*matcher.Matcher),
	}
}

func (s *MatchService) traceMatcher(traceID string) *matcher.Matcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.traces[traceID]
	if !ok {
		m = matcher.New(s.roads, s.index, s.routes, s.config)
		s.traces[traceID] = m
	}
	return m
}

// Update feeds one sample into a trace's matcher and returns the updated
// candidate vector.
func (s *MatchService) Update(traceID string, sample matcher.Sample) ([]*matcher.Candidate, error) {
	return s.traceMatcher(traceID).Update(sample)
}

// Trajectory returns a trace's most probable matched road points so far.
func (s *MatchService) Trajectory(traceID string) []roadnetwork.RoadPoint {
	return s.traceMatcher(traceID).Trajectory()
}

// Reset discards a trace's state entirely, freeing its matcher.
func (s *MatchService) Reset(traceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.traces, traceID)
}

// NearestRoads reports the k closest road points to (lat, lon) within
// radiusM, mirroring NearestRoadSegmentsForMapMatching's snap-then-sort
// shape but backed by spatialindex.Index directly.
func (s *MatchService) NearestRoads(lat, lon, radiusM float64, k int) ([]spatialindex.Candidate, error) {
	cands := s.index.Radius(spatial.NewPoint(lat, lon), radiusM)
	if len(cands) == 0 {
		return nil, fmt.Errorf("server: no road within %gm of (%g, %g)", radiusM, lat, lon)
	}
	if k > 0 && k < len(cands) {
		cands = cands[:k]
	}
	return cands, nil
}
