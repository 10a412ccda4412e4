package router

import (
	"fmt"

	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
)

// Router runs a bounded, goal-directed Dijkstra search over a RoadMap,
// grounded on the teacher's pkg/engine/routingalgorithm/bidirectional_dijkstra.go
// queue-draining shape and on original_source topology.Router's route()
// signature (source, targets, cost, bound, max, deltaTime, maxVelocity).
type Router struct {
	m *roadnetwork.RoadMap
}

func New(m *roadnetwork.RoadMap) *Router {
	return &Router{m: m}
}

// Params bounds a Route search: MaxBound caps the accumulated Bound cost
// (typically distance), MaxTime caps elapsed seconds, MaxVelocity rejects
// edges whose effective speed would exceed a physically plausible cutoff.
type Params struct {
	Cost        Cost
	Bound       Cost
	MaxBound    float64
	MaxTime     float64
	MaxVelocity float64 // meters/sec, 0 disables the check
}

var ErrNoRoute = fmt.Errorf("router: no path within bound")

// vertexState is one Dijkstra frontier record: the best known cost/bound to
// reach a vertex and the edge id it was reached through (-1 for the source
// road's target vertex, reached via the source's partial edge).
type vertexState struct {
	dist     float64
	bound    float64
	predEdge int64
	known    bool
}

// Route finds, for each target, the least-Cost Path from source, subject to
// Params.Bound never exceeding Params.MaxBound along the way. The result
// slice has one entry per target; unreachable or over-bound targets get a
// nil entry at their index.
func (r *Router) Route(source roadnetwork.RoadPoint, targets []roadnetwork.RoadPoint, p Params) ([]*Path, error) {
	if source.Road == nil {
		return nil, fmt.Errorf("router: nil source road")
	}

	state := make(map[int64]*vertexState)
	h := newMinHeap()

	startVertex := source.Road.Target
	startDist := p.Cost(source.Road) * (1 - source.Fraction)
	startBound := p.Bound(source.Road) * (1 - source.Fraction)

	state[startVertex] = &vertexState{dist: startDist, bound: startBound, predEdge: -1, known: true}
	h.push(entry{rank: startDist, vertex: startVertex, viaEdge: -1})

	settled := make(map[int64]bool)

	for !h.isEmpty() {
		cur, _ := h.pop()
		if settled[cur.vertex] {
			continue
		}
		settled[cur.vertex] = true

		st := state[cur.vertex]
		if st == nil || st.dist < cur.rank {
			continue
		}
		if st.bound > p.MaxBound {
			continue
		}

		for _, road := range r.m.Successors(cur.vertex) {
			if p.MaxVelocity > 0 {
				speed := road.MaxSpeedKM() * 1000 / 3600
				if speed > p.MaxVelocity {
					continue
				}
			}

			edgeCost := p.Cost(road)
			edgeBound := p.Bound(road)
			nd := st.dist + edgeCost
			nb := st.bound + edgeBound
			if nb > p.MaxBound {
				continue
			}
			if p.MaxTime > 0 && nd > p.MaxTime {
				continue
			}

			next := state[road.Target]
			if next == nil || !next.known || nd < next.dist ||
				(nd == next.dist && road.ID < next.predEdge) {
				state[road.Target] = &vertexState{dist: nd, bound: nb, predEdge: road.ID, known: true}
				h.push(entry{rank: nd, vertex: road.Target, viaEdge: road.ID})
			}
		}
	}

	results := make([]*Path, len(targets))
	for i, target := range targets {
		path, ok := r.buildPath(source, target, state)
		if ok && path.cost(p.Bound) <= p.MaxBound {
			results[i] = path
		}
	}
	return results, nil
}

func (r *Router) buildPath(source, target roadnetwork.RoadPoint, state map[int64]*vertexState) (*Path, bool) {
	if source.Road == target.Road {
		if target.Fraction >= source.Fraction {
			return &Path{Source: source, Target: target}, true
		}
	}

	st := state[target.Road.Source]
	if st == nil || !st.known {
		return nil, false
	}

	edges := make([]int64, 0)
	vertex := target.Road.Source
	for {
		s := state[vertex]
		if s == nil || s.predEdge == -1 {
			break
		}
		edges = append(edges, s.predEdge)
		road := r.m.Road(s.predEdge)
		if road == nil {
			return nil, false
		}
		vertex = road.Source
		if vertex == source.Road.Target {
			break
		}
	}

	roads := make([]*roadnetwork.Road, 0, len(edges))
	for i := len(edges) - 1; i >= 0; i-- {
		road := r.m.Road(edges[i])
		if road == nil {
			return nil, false
		}
		roads = append(roads, road)
	}

	return &Path{Source: source, Target: target, Roads: roads}, true
}

