package wizard

import "sync/atomic"

// Guard discards superseded async results. Every request takes a Ticket;
// a result may be applied only while its ticket is still current, that is,
// no newer request was issued and the guard was not closed.
type Guard struct {
	seq    atomic.Uint64
	closed atomic.Bool
}

// Ticket identifies one dispatched request.
type Ticket struct {
	g   *Guard
	seq uint64
}

// NewGuard returns an open guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Begin issues a new ticket, superseding every earlier one.
func (g *Guard) Begin() Ticket {
	return Ticket{g: g, seq: g.seq.Add(1)}
}

// Invalidate supersedes outstanding tickets without issuing a new request.
func (g *Guard) Invalidate() {
	g.seq.Add(1)
}

// Close stops every outstanding and future ticket from being applied.
func (g *Guard) Close() {
	g.closed.Store(true)
}

// Closed reports whether the guard was closed.
func (g *Guard) Closed() bool {
	return g.closed.Load()
}

// Current reports whether the ticket's result may still be applied.
func (t Ticket) Current() bool {
	return t.g != nil && !t.g.closed.Load() && t.g.seq.Load() == t.seq
}
