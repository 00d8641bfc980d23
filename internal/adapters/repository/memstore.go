package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mazdak/triaged/internal/domain/model"
	"github.com/mazdak/triaged/pkg/metrics"
)

// InMemoryStore implements Store with a mutex-guarded map. Items never
// leave the store through this core; deletion belongs to the outer layers.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]*model.QueueItem
	now   func() time.Time
}

// NewInMemoryStore creates an empty store with configuration options.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		items: make(map[string]*model.QueueItem),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a new item.
func (s *InMemoryStore) Create(_ context.Context, item model.QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return ErrExists
	}
	now := s.now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	stored := item
	s.items[item.ID] = &stored
	s.updateStatusMetricsLocked()
	return nil
}

// Get returns a copy of the item.
func (s *InMemoryStore) Get(_ context.Context, id string) (model.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return model.QueueItem{}, ErrNotFound
	}
	return copyItem(item), nil
}

// List returns copies of all items, newest first.
func (s *InMemoryStore) List(_ context.Context) ([]model.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.QueueItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, copyItem(item))
	}
	sortNewestFirst(out)
	return out, nil
}

// ListByStatus returns copies of items in the given status, newest first.
func (s *InMemoryStore) ListByStatus(_ context.Context, status model.Status) ([]model.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.QueueItem
	for _, item := range s.items {
		if item.Status == status {
			out = append(out, copyItem(item))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Transition compare-and-swaps the item status, applying mutate under the
// same critical section so no other writer observes a half-applied change.
func (s *InMemoryStore) Transition(_ context.Context, id string, from, to model.Status, mutate func(*model.QueueItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[id]
	if !exists {
		return ErrNotFound
	}
	if item.Status != from {
		return ErrConflict
	}
	if from != to && !model.CanTransition(from, to) {
		return ErrIllegal
	}

	item.Status = to
	if mutate != nil {
		mutate(item)
	}
	item.UpdatedAt = s.now().UTC()
	metrics.RecordQueueTransition(string(from), string(to))
	s.updateStatusMetricsLocked()
	return nil
}

// Update applies mutate without changing status.
func (s *InMemoryStore) Update(_ context.Context, id string, mutate func(*model.QueueItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[id]
	if !exists {
		return ErrNotFound
	}
	status := item.Status
	mutate(item)
	item.Status = status // status changes go through Transition only
	item.UpdatedAt = s.now().UTC()
	return nil
}

// CountByStatus returns the number of items per status.
func (s *InMemoryStore) CountByStatus(_ context.Context) map[model.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.Status]int)
	for _, item := range s.items {
		counts[item.Status]++
	}
	return counts
}

// updateStatusMetricsLocked refreshes the per-status gauges. Caller holds s.mu.
func (s *InMemoryStore) updateStatusMetricsLocked() {
	counts := make(map[model.Status]int)
	for _, item := range s.items {
		counts[item.Status]++
	}
	for _, status := range []model.Status{
		model.StatusQueued, model.StatusAnalyzing, model.StatusAwaitingReview,
		model.StatusProcessed, model.StatusError,
	} {
		metrics.UpdateQueueItemsByStatus(string(status), counts[status])
	}
}

func copyItem(item *model.QueueItem) model.QueueItem {
	out := *item
	if item.Result != nil {
		result := *item.Result
		result.Passes = append([]model.AnalysisPass(nil), item.Result.Passes...)
		out.Result = &result
	}
	out.Event.Entities = append([]model.Entity(nil), item.Event.Entities...)
	return out
}

func sortNewestFirst(items []model.QueueItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
