package service

import "github.com/okian/scorecard/internal/domain/matrix"

// state is one undoable point: the matrix together with the selection it was
// valid for. Matrices are immutable and selections are never mutated in
// place, so storing them is enough.
type state struct {
	matrix   matrix.Matrix
	selected []string
}

// history is a bounded undo/redo stack of session states.
type history struct {
	depth  int
	past   []state
	future []state
}

func newHistory(depth int) *history {
	return &history{depth: depth}
}

// record pushes the state being replaced and drops the redo branch.
func (h *history) record(prev state) {
	h.future = h.future[:0]
	if h.depth <= 0 {
		return
	}
	h.past = append(h.past, prev)
	if over := len(h.past) - h.depth; over > 0 {
		h.past = append(h.past[:0:0], h.past[over:]...)
	}
}

func (h *history) undo(cur state) (state, bool) {
	if len(h.past) == 0 {
		return cur, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, cur)
	return prev, true
}

func (h *history) redo(cur state) (state, bool) {
	if len(h.future) == 0 {
		return cur, false
	}
	next := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, cur)
	return next, true
}

func (h *history) reset() {
	h.past, h.future = nil, nil
}
