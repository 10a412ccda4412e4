package roadnetwork

import "fmt"

// RoadMap is a directed road graph built from a set of BaseRoads. It
// deduplicates shared vertices and indexes Roads both by edge id and by
// source vertex, so the router can enumerate outgoing edges without
// scanning the whole graph.
type RoadMap struct {
	bases       map[int64]*BaseRoad
	roads       map[int64]*Road   // edge id -> Road
	outEdges    map[int64][]*Road // source vertex -> outgoing Roads
	nextVertex  int64
	vertexByKey map[string]int64 // "lat,lon" rounded -> vertex id, used only during construction
}

func NewRoadMap() *RoadMap {
	return &RoadMap{
		bases:       make(map[int64]*BaseRoad),
		roads:       make(map[int64]*Road),
		outEdges:    make(map[int64][]*Road),
		vertexByKey: make(map[string]int64),
	}
}

// vertexKey rounds coordinates to ~1cm to dedupe shared endpoints across
// BaseRoads without requiring the caller to pre-assign vertex ids.
func vertexKey(lat, lon float64) string {
	return fmt.Sprintf("%.7f,%.7f", lat, lon)
}

// vertexFor returns the canonical vertex id for a coordinate, assigning a
// fresh one on first sight.
func (m *RoadMap) vertexFor(lat, lon float64) int64 {
	key := vertexKey(lat, lon)
	if id, ok := m.vertexByKey[key]; ok {
		return id
	}
	id := m.nextVertex
	m.nextVertex++
	m.vertexByKey[key] = id
	return id
}

// AddRoad validates and inserts a BaseRoad, deriving its vertex ids from its
// first/last geometry points and creating forward/backward Roads per its
// Direction. It returns an error rather than panicking on an invalid road.
func (m *RoadMap) AddRoad(b *BaseRoad) error {
	if err := b.validate(); err != nil {
		return err
	}
	if _, exists := m.bases[b.ID]; exists {
		return fmt.Errorf("%w: id=%d already present", ErrInvalidRoad, b.ID)
	}

	first := b.Geometry[0]
	last := b.Geometry[len(b.Geometry)-1]
	b.Source = m.vertexFor(first.Lat, first.Lon)
	b.Target = m.vertexFor(last.Lat, last.Lon)

	m.bases[b.ID] = b

	if b.Direction == DirectionForward || b.Direction == DirectionBoth {
		fwd := &Road{ID: ForwardEdgeID(b.ID), Base: b, Forward: true, Source: b.Source, Target: b.Target}
		m.roads[fwd.ID] = fwd
		m.outEdges[fwd.Source] = append(m.outEdges[fwd.Source], fwd)
	}
	if b.Direction == DirectionBackward || b.Direction == DirectionBoth {
		bwd := &Road{ID: BackwardEdgeID(b.ID), Base: b, Forward: false, Source: b.Target, Target: b.Source}
		m.roads[bwd.ID] = bwd
		m.outEdges[bwd.Source] = append(m.outEdges[bwd.Source], bwd)
	}
	return nil
}

// Road returns the directed Road for an edge id, or nil if unknown.
func (m *RoadMap) Road(edgeID int64) *Road {
	return m.roads[edgeID]
}

// BaseRoad returns the undirected BaseRoad for an id, or nil if unknown.
func (m *RoadMap) BaseRoad(id int64) *BaseRoad {
	return m.bases[id]
}

// Successors returns the Roads leaving a vertex.
func (m *RoadMap) Successors(vertex int64) []*Road {
	return m.outEdges[vertex]
}

// Roads returns every directed Road in the map. Iteration order is not
// stable; callers that need determinism should sort by ID.
func (m *RoadMap) Roads() []*Road {
	out := make([]*Road, 0, len(m.roads))
	for _, r := range m.roads {
		out = append(out, r)
	}
	return out
}

func (m *RoadMap) NumBaseRoads() int { return len(m.bases) }
func (m *RoadMap) NumRoads() int     { return len(m.roads) }
