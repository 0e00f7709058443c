package internal

import (
	"sync"

	"github.com/lychee-technology/sift"
)

// RowStore is the in-memory store the owning application reads base rows
// from and writes evaluated results back into as a named filtered view
// per entity.
type RowStore struct {
	mu    sync.RWMutex
	rows  map[sift.Entity][]sift.Row
	views map[sift.Entity]*FilteredView
}

// FilteredView is an evaluated result pinned against an entity until the
// caller clears or replaces it.
type FilteredView struct {
	Name   string      `json:"name"`
	Filter sift.Node   `json:"filter"`
	Source sift.Source `json:"source"`
	Rows   []sift.Row  `json:"rows"`
}

// NewRowStore creates an empty store.
func NewRowStore() *RowStore {
	return &RowStore{
		rows:  make(map[sift.Entity][]sift.Row),
		views: make(map[sift.Entity]*FilteredView),
	}
}

// SetRows replaces the base rows for an entity and drops any filtered
// view, which would otherwise reference rows that no longer exist.
func (s *RowStore) SetRows(entity sift.Entity, rows []sift.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[entity] = rows
	delete(s.views, entity)
}

// Rows returns the current base rows for an entity.
func (s *RowStore) Rows(entity sift.Entity) []sift.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows[entity]
}

// SetView pins a filtered view for an entity, replacing any prior one.
func (s *RowStore) SetView(entity sift.Entity, view *FilteredView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[entity] = view
}

// View returns the pinned filtered view, if any.
func (s *RowStore) View(entity sift.Entity) (*FilteredView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.views[entity]
	return view, ok
}

// ClearView removes the filtered view for an entity.
func (s *RowStore) ClearView(entity sift.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, entity)
}
