package task

import "context"

// Store describes the document persistence operations for tasks. Listings
// return tasks ordered by descending creation time; absence is ErrNotFound.
type Store interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// Update merges the patch onto the stored record and returns the
	// result. Concurrent updates are last-write-wins; there is no version
	// check.
	Update(ctx context.Context, id string, patch Patch) (*Task, error)
	Delete(ctx context.Context, id string) error
	ListByCreator(ctx context.Context, userID string) ([]Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]Task, error)
	ListAll(ctx context.Context) ([]Task, error)
}
