package router

import "github.com/lintang-b-s/roadmatch/pkg/roadnetwork"

// Path is a sequence of directed Roads connecting a source RoadPoint to a
// target RoadPoint, possibly a single partial Road when both points lie on
// the same edge. Grounded directly on barefoot's topology.Path.
type Path struct {
	Source roadnetwork.RoadPoint
	Target roadnetwork.RoadPoint
	Roads  []*roadnetwork.Road // full edges strictly between Source.Road and Target.Road, in order
}

// valid returns true if the Path is non-degenerate: source and target are
// set and, when they differ, consecutive Roads actually connect.
func (p Path) valid() bool {
	if p.Source.Road == nil || p.Target.Road == nil {
		return false
	}
	for i := 0; i+1 < len(p.Roads); i++ {
		if p.Roads[i].Target != p.Roads[i+1].Source {
			return false
		}
	}
	return true
}

// Valid exposes valid() as a public query, matching the teacher's exported
// invariant checks elsewhere in the codebase.
func (p Path) Valid() bool { return p.valid() }

// isUturn reports whether the path reverses direction on one BaseRoad: the
// target lies on the reverse of the source edge with no Roads between them,
// or the first (last) interior Road is the reverse of the source (target)
// edge.
func (p Path) isUturn() bool {
	if p.Source.Road == nil || p.Target.Road == nil {
		return false
	}
	if len(p.Roads) == 0 {
		return p.Source.Road.Base.ID == p.Target.Road.Base.ID && p.Source.Road.Forward != p.Target.Road.Forward
	}
	first, last := p.Roads[0], p.Roads[len(p.Roads)-1]
	return p.Source.Road.Base.ID == first.Base.ID && p.Source.Road.Forward != first.Forward ||
		p.Target.Road.Base.ID == last.Base.ID && p.Target.Road.Forward != last.Forward
}

// IsUturn exposes isUturn() publicly.
func (p Path) IsUturn() bool { return p.isUturn() }

// hasTunnel reports whether any Road on the path, including the partial
// source/target edges, passes through a tunnel.
func (p Path) hasTunnel() bool {
	if p.Source.Road != nil && p.Source.Road.Base.Tunnel {
		return true
	}
	if p.Target.Road != nil && p.Target.Road.Base.Tunnel {
		return true
	}
	for _, r := range p.Roads {
		if r.Base.Tunnel {
			return true
		}
	}
	return false
}

// HasTunnel exposes hasTunnel() publicly.
func (p Path) HasTunnel() bool { return p.hasTunnel() }

// cost computes the path's total weight under the given Cost function,
// accounting for the partial fractions of the source and target edges when
// they coincide with a single edge.
func (p Path) cost(c Cost) float64 {
	if p.Source.Road == p.Target.Road && len(p.Roads) == 0 {
		full := c(p.Source.Road)
		frac := p.Target.Fraction - p.Source.Fraction
		if frac < 0 {
			frac = 0
		}
		return full * frac
	}

	total := c(p.Source.Road) * (1 - p.Source.Fraction)
	for _, r := range p.Roads {
		total += c(r)
	}
	total += c(p.Target.Road) * p.Target.Fraction
	return total
}

// Cost exposes cost() publicly.
func (p Path) Cost(c Cost) float64 { return p.cost(c) }

// Length is the path's physical length in meters, a convenience wrapper
// around cost(DistanceCost()).
func (p Path) Length() float64 {
	return p.cost(DistanceCost())
}

// add concatenates two paths end to end; the caller must ensure p's target
// equals other's source.
func (p Path) add(other Path) Path {
	roads := make([]*roadnetwork.Road, 0, len(p.Roads)+1+len(other.Roads))
	roads = append(roads, p.Roads...)
	roads = append(roads, p.Target.Road)
	roads = append(roads, other.Roads...)
	return Path{Source: p.Source, Target: other.Target, Roads: roads}
}

// Add exposes add() publicly.
func (p Path) Add(other Path) Path { return p.add(other) }
