package history

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

type RepositoryStub struct {
	mu        sync.Mutex
	nextId    int
	snapshots []Snapshot
	Err       error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{}
}

func (s *RepositoryStub) StoreSnapshot(ctx context.Context, snapshot Snapshot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	for _, existing := range s.snapshots {
		if existing.CycleId == snapshot.CycleId {
			return 0, fmt.Errorf("%s: %w", snapshot.CycleId, ErrDuplicateCycle)
		}
	}
	s.nextId++
	snapshot.Id = s.nextId
	snapshot.PlanCompletion = maps.Clone(snapshot.PlanCompletion)
	s.snapshots = append(s.snapshots, snapshot)
	return snapshot.Id, nil
}

func (s *RepositoryStub) ListRecent(ctx context.Context, limit int) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	sorted := slices.Clone(s.snapshots)
	slices.SortFunc(sorted, func(a, b Snapshot) int {
		if c := b.RecordedAt.Compare(a.RecordedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Id, a.Id)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}
