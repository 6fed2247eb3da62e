// Package store holds the latest fetched plan documents as immutable
// snapshots that are swapped wholesale on every refresh.
package store

import (
	"encoding/json"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/abts/buildmonitor/pkg/plan"
)

type Document struct {
	Ref       plan.Ref
	Plan      plan.Plan
	Raw       json.RawMessage
	FetchedAt time.Time
}

// Snapshot maps plan ids to documents. It is never modified after creation.
type Snapshot struct {
	docs map[string]Document
}

func NewSnapshot(docs ...Document) Snapshot {
	return Snapshot{}.With(docs...)
}

func (s Snapshot) Get(id string) (Document, bool) {
	doc, ok := s.docs[id]
	return doc, ok
}

func (s Snapshot) Has(id string) bool {
	_, ok := s.docs[id]
	return ok
}

func (s Snapshot) Len() int {
	return len(s.docs)
}

// Ids returns the plan ids in lexical order.
func (s Snapshot) Ids() []string {
	return slices.Sorted(maps.Keys(s.docs))
}

// With returns a new snapshot with docs added or replacing existing entries.
func (s Snapshot) With(docs ...Document) Snapshot {
	next := make(map[string]Document, len(s.docs)+len(docs))
	maps.Copy(next, s.docs)
	for _, doc := range docs {
		next[doc.Ref.Id] = doc
	}
	return Snapshot{docs: next}
}

type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	s := &Store{}
	empty := NewSnapshot()
	s.current.Store(&empty)
	return s
}

func (s *Store) Current() Snapshot {
	return *s.current.Load()
}

func (s *Store) Replace(snapshot Snapshot) {
	s.current.Store(&snapshot)
}
