package slice

import "maps"

// State is the reduced view of one resource.
type State[T any] struct {
	Items   []T
	Current *T
	Loading bool
	// Error holds the last normalized failure message; empty means none.
	Error string
	// Counters holds derived values maintained alongside Items.
	Counters map[string]int
}

// HasError reports whether the last request failed.
func (s State[T]) HasError() bool { return s.Error != "" }

// Counter returns a derived counter, zero when unset.
func (s State[T]) Counter(name string) int { return s.Counters[name] }

// SetCounter stores v, clamped at zero.
func (s *State[T]) SetCounter(name string, v int) {
	if s.Counters == nil {
		s.Counters = make(map[string]int)
	}
	s.Counters[name] = max(v, 0)
}

// AddCounter adjusts a counter by delta, clamped at zero.
func (s *State[T]) AddCounter(name string, delta int) {
	s.SetCounter(name, s.Counter(name)+delta)
}

// Snapshot copies the state so readers never share backing arrays with the
// container.
func (s State[T]) Snapshot() State[T] {
	out := State[T]{
		Loading:  s.Loading,
		Error:    s.Error,
		Items:    make([]T, len(s.Items)),
		Counters: maps.Clone(s.Counters),
	}
	copy(out.Items, s.Items)
	if out.Counters == nil {
		out.Counters = map[string]int{}
	}
	if s.Current != nil {
		cur := *s.Current
		out.Current = &cur
	}
	return out
}
