package cart

import "sync"

// Store is the single writer of one client's cart state.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: Reduce(State{}, ClearCart())}
}

// Dispatch runs action through the reducer and returns the new state.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
	return s.snapshot()
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) snapshot() State {
	return State{Items: cloneItems(s.state.Items), Total: s.state.Total}
}
