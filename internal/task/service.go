package task

import (
	"context"
	"errors"
	"time"

	"taskhive.org/internal/auth"
	"taskhive.org/internal/ids"
)

// Relation selects which slice of tasks a listing covers. "assignedBy" is
// the wire value clients send for the assignee relation.
type Relation string

const (
	RelationCreatedBy  Relation = "createdBy"
	RelationAssignedBy Relation = "assignedBy"
	RelationAll        Relation = "all"
)

// UserLookup resolves user ids to records for display projection.
// auth.UserStore satisfies it.
type UserLookup interface {
	Find(ctx context.Context, id string) (*auth.User, error)
}

// Service owns task validation, authorization and aggregation on top of a
// generic document store.
type Service struct {
	store Store
	users UserLookup
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the task service.
func NewService(store Store, users UserLookup, opts ...ServiceOption) *Service {
	svc := &Service{store: store, users: users, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create validates enum fields, applies defaults and persists the task with
// the caller as creator. Invalid enum values are rejected, never coerced.
func (s *Service) Create(ctx context.Context, draft Draft, creatorID string) (Task, error) {
	if draft.Priority == "" {
		draft.Priority = PriorityMedium
	}
	if draft.Status == "" {
		draft.Status = StatusPending
	}
	if !draft.Status.Valid() {
		return Task{}, ErrInvalidStatus
	}
	if !draft.Priority.Valid() {
		return Task{}, ErrInvalidPriority
	}
	if draft.Recurrence != "" && !draft.Recurrence.Valid() {
		return Task{}, ErrInvalidRecurrence
	}

	now := s.now().UTC()
	t := Task{
		ID:          ids.New(),
		Title:       draft.Title,
		Description: draft.Description,
		DueDate:     draft.DueDate,
		Priority:    draft.Priority,
		Status:      draft.Status,
		CreatedBy:   creatorID,
		AssignedTo:  draft.AssignedTo,
		IsRecurring: draft.IsRecurring,
		Recurrence:  draft.Recurrence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Update field-merges the patch onto an existing task. Enum fields are
// re-validated before the store is touched, so a failed validation leaves
// the stored record unchanged.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Task, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return Task{}, ErrInvalidStatus
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return Task{}, ErrInvalidPriority
	}
	if patch.Recurrence != nil && *patch.Recurrence != "" && !patch.Recurrence.Valid() {
		return Task{}, ErrInvalidRecurrence
	}
	t, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return Task{}, err
	}
	return *t, nil
}

// Delete removes a task. The admin role is rejected while every other role
// is allowed; see DESIGN.md before changing the direction of this check.
func (s *Service) Delete(ctx context.Context, id string, requesterRole auth.Role) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	if requesterRole == auth.RoleAdmin {
		return ErrForbidden
	}
	return s.store.Delete(ctx, id)
}

// ListForUser returns the selected slice of tasks as a flat list, creator
// and assignee projected to {id, name}, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, rel Relation) ([]View, error) {
	var (
		tasks []Task
		err   error
	)
	switch rel {
	case RelationCreatedBy:
		tasks, err = s.store.ListByCreator(ctx, userID)
	case RelationAssignedBy:
		tasks, err = s.store.ListByAssignee(ctx, userID)
	default:
		tasks, err = s.store.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}
	return s.project(ctx, tasks)
}

func (s *Service) project(ctx context.Context, tasks []Task) ([]View, error) {
	refs := make(map[string]UserRef)
	lookup := func(id string) (UserRef, error) {
		if id == "" {
			return UserRef{}, nil
		}
		if ref, ok := refs[id]; ok {
			return ref, nil
		}
		user, err := s.users.Find(ctx, id)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				// Dangling reference: keep the id, drop the name.
				ref := UserRef{ID: id}
				refs[id] = ref
				return ref, nil
			}
			return UserRef{}, err
		}
		ref := UserRef{ID: user.ID, Name: user.Name}
		refs[id] = ref
		return ref, nil
	}

	views := make([]View, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		creator, err := lookup(t.CreatedBy)
		if err != nil {
			return nil, err
		}
		view := View{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			DueDate:     t.DueDate,
			Priority:    t.Priority,
			Status:      t.Status,
			CreatedBy:   creator,
			IsRecurring: t.IsRecurring,
			Recurrence:  t.Recurrence,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
		if t.AssignedTo != "" {
			assignee, err := lookup(t.AssignedTo)
			if err != nil {
				return nil, err
			}
			view.AssignedTo = &assignee
		}
		views = append(views, view)
	}
	return views, nil
}

// Stats recomputes the per-user aggregate from current store state. The
// created and assigned sets are scanned independently; a task both created
// by and assigned to the user contributes to both tallies.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	created, err := s.store.ListByCreator(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	assigned, err := s.store.ListByAssignee(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	now := s.now().UTC()
	stats := Stats{
		TotalCreated:  len(created),
		TotalAssigned: len(assigned),
	}
	for _, set := range [][]Task{created, assigned} {
		for i := range set {
			t := &set[i]
			switch t.Status {
			case StatusPending:
				stats.StatusCount.Pending++
			case StatusInProgress:
				stats.StatusCount.InProgress++
			case StatusCompleted:
				stats.StatusCount.Completed++
			}
			if t.Overdue(now) {
				stats.OverdueCount++
			}
		}
	}
	return stats, nil
}
