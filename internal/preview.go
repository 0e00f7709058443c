package internal

import "sync"

// PreviewSession orders the optimistic heuristic preview against the
// authoritative pipeline result. Each query takes a monotonic sequence
// number; a result is delivered only while its number is still current,
// so a slow authoritative answer for an abandoned query is dropped
// instead of racing a newer preview.
type PreviewSession struct {
	mu  sync.Mutex
	seq uint64
}

// Begin starts a new query generation and invalidates all earlier ones.
func (s *PreviewSession) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Deliver runs apply only if seq is still the current generation, holding
// the session lock so delivery and supersession cannot interleave. It
// reports whether the result was applied.
func (s *PreviewSession) Deliver(seq uint64, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return false
	}
	apply()
	return true
}

// Current returns the active generation, for tests and diagnostics.
func (s *PreviewSession) Current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
