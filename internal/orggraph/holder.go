package orggraph

import "sync/atomic"

// Holder publishes the current graph snapshot. Reloads build a complete new
// graph and swap it in; readers always see a whole snapshot.
type Holder struct {
	current atomic.Pointer[Graph]
}

// NewHolder returns a holder seeded with g.
func NewHolder(g *Graph) *Holder {
	h := &Holder{}
	h.current.Store(g)
	return h
}

// Current returns the published snapshot.
func (h *Holder) Current() *Graph {
	return h.current.Load()
}

// Swap publishes g and returns the previous snapshot.
func (h *Holder) Swap(g *Graph) *Graph {
	return h.current.Swap(g)
}
