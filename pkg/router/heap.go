package router

// entry is one Dijkstra frontier item: the vertex being relaxed, the
// accumulated cost to reach it, and the edge id it was reached through
// (used only to break cost ties deterministically).
type entry struct {
	rank    float64
	vertex  int64
	viaEdge int64
}

func less(a, b entry) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.viaEdge < b.viaEdge
}

// minHeap is a binary min-heap keyed by entry.rank, tie-broken by ascending
// edge id, adapted from the teacher's Rank-keyed PriorityQueueNodeRtree2
// heap (pkg/datastructure/pq_rtree.go) to carry the router's richer key.
type minHeap struct {
	items []entry
}

func newMinHeap() *minHeap {
	return &minHeap{items: make([]entry, 0)}
}

func (h *minHeap) isEmpty() bool { return len(h.items) == 0 }

func (h *minHeap) push(e entry) {
	h.items = append(h.items, e)
	index := len(h.items) - 1
	for index != 0 {
		parent := (index - 1) / 2
		if !less(h.items[index], h.items[parent]) {
			break
		}
		h.items[index], h.items[parent] = h.items[parent], h.items[index]
		index = parent
	}
}

func (h *minHeap) pop() (entry, bool) {
	if h.isEmpty() {
		return entry{}, false
	}
	root := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items = h.items[:last]

	index := 0
	for {
		smallest := index
		left := 2*index + 1
		right := 2*index + 2
		if left < len(h.items) && less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < len(h.items) && less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == index {
			break
		}
		h.items[index], h.items[smallest] = h.items[smallest], h.items[index]
		index = smallest
	}
	return root, true
}
