package conceptgraph

import "sync/atomic"

// Holder publishes the current graph to concurrent readers. Writers replace
// the whole graph; readers never observe a partially applied upsert.
type Holder struct {
	cur atomic.Pointer[Graph]
}

// NewHolder returns a holder seeded with g.
func NewHolder(g *Graph) *Holder {
	h := &Holder{}
	h.cur.Store(g)
	return h
}

// Load returns the current graph.
func (h *Holder) Load() *Graph {
	return h.cur.Load()
}

// Store publishes a new graph.
func (h *Holder) Store(g *Graph) {
	h.cur.Store(g)
}
