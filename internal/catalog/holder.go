package catalog

import (
	"context"
	"sync/atomic"
)

// Holder publishes the active catalog index and lets a reseed swap in a
// replacement without pausing readers. An empty holder reports the index
// as unavailable rather than panicking.
type Holder struct {
	current atomic.Pointer[indexBox]
}

type indexBox struct {
	index Index
}

func NewHolder(initial Index) *Holder {
	h := &Holder{}
	if initial != nil {
		h.current.Store(&indexBox{index: initial})
	}
	return h
}

// Swap replaces the active index. In-flight readers finish against the
// index they loaded; new readers see the replacement.
func (h *Holder) Swap(next Index) {
	if next == nil {
		return
	}
	h.current.Store(&indexBox{index: next})
}

func (h *Holder) NearestNeighbors(ctx context.Context, query []float32, topK int) ([]Neighbor, error) {
	idx, err := h.active()
	if err != nil {
		return nil, err
	}
	return idx.NearestNeighbors(ctx, query, topK)
}

func (h *Holder) ExactLookup(ctx context.Context, phrase string) (Entry, bool, error) {
	idx, err := h.active()
	if err != nil {
		return Entry{}, false, err
	}
	return idx.ExactLookup(ctx, phrase)
}

func (h *Holder) Len() int {
	idx, err := h.active()
	if err != nil {
		return 0
	}
	return idx.Len()
}

func (h *Holder) active() (Index, error) {
	box := h.current.Load()
	if box == nil || box.index == nil {
		return nil, ErrIndexUnavailable
	}
	return box.index, nil
}
