// Package memorysink records checklists in memory, keyed like the file sink,
// for tests and dry runs.
package memorysink

import (
	"context"
	"sync"

	"github.com/checklisting/crawler/internal/checklist"
)

// Sink stores the latest copy of each checklist keyed by source and
// identifier, preserving first-save order.
type Sink struct {
	mu    sync.Mutex
	order []string
	byKey map[string]*checklist.Checklist
}

// New returns an empty in-memory sink.
func New() *Sink {
	return &Sink{byKey: make(map[string]*checklist.Checklist)}
}

// Save stores a deep copy of the checklist, overwriting any previous save of
// the same (source, identifier).
func (s *Sink) Save(_ context.Context, c *checklist.Checklist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := c.Source + "/" + c.Identifier
	if _, ok := s.byKey[key]; !ok {
		s.order = append(s.order, key)
	}
	s.byKey[key] = c.Clone()
	return nil
}

// Saved returns the stored checklists in first-save order.
func (s *Sink) Saved() []*checklist.Checklist {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*checklist.Checklist, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.byKey[key])
	}
	return out
}
