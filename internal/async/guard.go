package async

import "sync/atomic"

// Guard hands out tokens for asynchronous operations. Only the token from the
// most recent Begin stays live, and Close kills every token.
type Guard struct {
	generation atomic.Int64
	closed     atomic.Bool
}

// Token identifies one triggered operation.
type Token struct {
	guard      *Guard
	generation int64
}

// Begin starts a new operation and supersedes all earlier tokens.
func (g *Guard) Begin() Token {
	return Token{guard: g, generation: g.generation.Add(1)}
}

// Cancel supersedes every outstanding token without starting a new operation.
func (g *Guard) Cancel() {
	g.generation.Add(1)
}

// Close permanently invalidates all tokens, including future ones.
func (g *Guard) Close() {
	g.closed.Store(true)
	g.generation.Add(1)
}

// Closed reports whether Close has been called.
func (g *Guard) Closed() bool {
	return g.closed.Load()
}

// Live reports whether the operation may still write state: it is the most
// recently begun one and the guard has not been closed.
func (t Token) Live() bool {
	if t.guard == nil {
		return false
	}
	return !t.guard.closed.Load() && t.guard.generation.Load() == t.generation
}
