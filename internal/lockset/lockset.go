package lockset

import "sync"

// Set hands out one mutex per key. Entries are reference counted and dropped
// once no goroutine holds or waits on them.
type Set struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *Set {
	return &Set{locks: make(map[string]*entry)}
}

// Lock blocks until key is held and returns the matching unlock function.
func (s *Set) Lock(key string) func() {
	s.mu.Lock()
	e, ok := s.locks[key]
	if !ok {
		e = &entry{}
		s.locks[key] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		s.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
