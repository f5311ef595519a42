package explorer

import "sync"

// subject holds a value and notifies subscribers of every new one. With
// replay, a new subscriber first receives the current value.
type subject[T any] struct {
	mu       sync.Mutex
	value    T
	hasValue bool
	replay   bool
	subs     map[int]func(T)
	next     int
}

func newSubject[T any](replay bool) *subject[T] {
	return &subject[T]{replay: replay, subs: make(map[int]func(T))}
}

func (s *subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *subject[T]) Next(v T) {
	s.mu.Lock()
	s.value = v
	s.hasValue = true
	subs := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

func (s *subject[T]) Subscribe(fn func(T)) (cancel func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	v, replay := s.value, s.replay && s.hasValue
	s.mu.Unlock()
	if replay {
		fn(v)
	}
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
