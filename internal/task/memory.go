package task

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. It backs
// unit tests and the no-database development mode.
type InMemory struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	now   func() time.Time
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty task store.
func NewInMemory() *InMemory {
	return &InMemory{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

func (s *InMemory) Create(ctx context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *InMemory) Get(ctx context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *InMemory) Update(ctx context.Context, id string, patch Patch) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	applyPatch(t, patch)
	t.UpdatedAt = s.now().UTC()
	cp := *t
	return &cp, nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *InMemory) ListByCreator(ctx context.Context, userID string) ([]Task, error) {
	return s.list(func(t *Task) bool { return t.CreatedBy == userID }), nil
}

func (s *InMemory) ListByAssignee(ctx context.Context, userID string) ([]Task, error) {
	return s.list(func(t *Task) bool { return t.AssignedTo == userID }), nil
}

func (s *InMemory) ListAll(ctx context.Context) ([]Task, error) {
	return s.list(func(*Task) bool { return true }), nil
}

func (s *InMemory) list(match func(*Task) bool) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, 0)
	for _, t := range s.tasks {
		if match(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			// ULIDs sort by creation time, which keeps same-instant
			// inserts deterministic.
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// applyPatch merges non-nil fields onto the record.
func applyPatch(t *Task, patch Patch) {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.DueDate != nil {
		t.DueDate = *patch.DueDate
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = *patch.AssignedTo
	}
	if patch.IsRecurring != nil {
		t.IsRecurring = *patch.IsRecurring
	}
	if patch.Recurrence != nil {
		t.Recurrence = *patch.Recurrence
	}
}
