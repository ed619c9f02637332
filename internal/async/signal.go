package async

import "sync"

// RefreshSignal is a shared, monotonically increasing counter announcing that
// backing data changed. Mutations bump it; read views subscribe and refetch.
type RefreshSignal struct {
	mu     sync.Mutex
	value  uint64
	nextID int
	subs   map[int]func(uint64)
}

// NewRefreshSignal returns a signal starting at zero.
func NewRefreshSignal() *RefreshSignal {
	return &RefreshSignal{subs: make(map[int]func(uint64))}
}

// Value returns the current counter.
func (s *RefreshSignal) Value() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Bump increments the counter and notifies subscribers with the new value.
// Subscribers run synchronously in registration order, outside the lock.
func (s *RefreshSignal) Bump() uint64 {
	s.mu.Lock()
	s.value++
	v := s.value
	fns := make([]func(uint64), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
	return v
}

// Subscribe registers fn for future bumps and returns a function that
// removes it.
func (s *RefreshSignal) Subscribe(fn func(uint64)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func(uint64))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
