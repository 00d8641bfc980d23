// Package repository defines the persisted store for queue items and the
// atomic transition discipline the state machine relies on.
package repository

import (
	"context"

	"github.com/mazdak/triaged/internal/domain/model"
)

// Store persists queue items. Implementations must make Transition atomic
// per item: two writers racing to move the same item see exactly one win.
type Store interface {
	// Create inserts a new item; ErrExists if the ID is taken.
	Create(ctx context.Context, item model.QueueItem) error

	// Get returns a copy of the item, or ErrNotFound.
	Get(ctx context.Context, id string) (model.QueueItem, error)

	// List returns copies of all items, newest first.
	List(ctx context.Context) ([]model.QueueItem, error)

	// ListByStatus returns copies of items in the given status, newest first.
	ListByStatus(ctx context.Context, status model.Status) ([]model.QueueItem, error)

	// Transition compare-and-swaps the item from one status to another,
	// applying mutate to the item while the swap is held. It fails with
	// ErrConflict when the current status is not from, and ErrIllegal when
	// the edge is not part of the state machine. A nil mutate is allowed.
	Transition(ctx context.Context, id string, from, to model.Status, mutate func(*model.QueueItem)) error

	// Update applies mutate to the item without changing status. Used for
	// bookkeeping writes such as attempt counts.
	Update(ctx context.Context, id string, mutate func(*model.QueueItem)) error

	// CountByStatus returns the number of items per status.
	CountByStatus(ctx context.Context) map[model.Status]int
}
