package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"taskhive.org/internal/audit"
	"taskhive.org/internal/task"
)

type createTaskRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	AssignedTo  string    `json:"assignedTo"`
	IsRecurring bool      `json:"isRecurring"`
	Recurrence  string    `json:"recurrence"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    *string    `json:"priority"`
	Status      *string    `json:"status"`
	AssignedTo  *string    `json:"assignedTo"`
	IsRecurring *bool      `json:"isRecurring"`
	Recurrence  *string    `json:"recurrence"`
}

func (a *API) handleTasks(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks"), "/")
	switch {
	case rest == "":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.createTask(w, r)
	case rest == "stats":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.taskStats(w, r)
	case strings.HasPrefix(rest, "user/"):
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listTasks(w, r, strings.TrimPrefix(rest, "user/"))
	default:
		switch r.Method {
		case http.MethodPut:
			a.updateTask(w, r, rest)
		case http.MethodDelete:
			a.deleteTask(w, r, rest)
		default:
			methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
		}
	}
}

func (a *API) createTask(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	draft := task.Draft{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    task.Priority(req.Priority),
		Status:      task.Status(req.Status),
		AssignedTo:  req.AssignedTo,
		IsRecurring: req.IsRecurring,
		Recurrence:  task.Recurrence(req.Recurrence),
	}
	created, err := a.tasks.Create(r.Context(), draft, user.ID)
	if err != nil {
		a.writeTaskError(w, r, err, "Error creating task")
		return
	}
	_ = audit.LogEvent(r.Context(), "task.create", map[string]any{
		"task_id": created.ID,
		"user_id": user.ID,
	})
	writeEnvelope(w, http.StatusCreated, created, "Task created")
}

func (a *API) updateTask(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	if !validTaskID(id) {
		writeError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}
	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	patch := task.Patch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
		IsRecurring: req.IsRecurring,
	}
	if req.Priority != nil {
		p := task.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.Status != nil {
		s := task.Status(*req.Status)
		patch.Status = &s
	}
	if req.Recurrence != nil {
		rec := task.Recurrence(*req.Recurrence)
		patch.Recurrence = &rec
	}

	updated, err := a.tasks.Update(r.Context(), id, patch)
	if err != nil {
		a.writeTaskError(w, r, err, "Error updating task")
		return
	}
	_ = audit.LogEvent(r.Context(), "task.update", map[string]any{
		"task_id": id,
		"user_id": user.ID,
	})
	writeEnvelope(w, http.StatusOK, updated, "Task updated")
}

func (a *API) deleteTask(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	if !validTaskID(id) {
		writeError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}
	if err := a.tasks.Delete(r.Context(), id, user.Role); err != nil {
		a.writeTaskError(w, r, err, "Error deleting task")
		return
	}
	_ = audit.LogEvent(r.Context(), "task.delete", map[string]any{
		"task_id": id,
		"user_id": user.ID,
	})
	writeEnvelope(w, http.StatusOK, nil, "Task deleted successfully")
}

func (a *API) listTasks(w http.ResponseWriter, r *http.Request, userID string) {
	if _, ok := identity(w, r); !ok {
		return
	}
	rel := task.Relation(r.URL.Query().Get("type"))
	views, err := a.tasks.ListForUser(r.Context(), userID, rel)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Error fetching tasks")
		return
	}
	writeEnvelope(w, http.StatusOK, views, "Tasks fetched successfully")
}

func (a *API) taskStats(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	stats, err := a.tasks.Stats(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Error fetching task stats")
		return
	}
	writeEnvelope(w, http.StatusOK, stats, "Task stats fetched")
}

func (a *API) writeTaskError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, task.ErrInvalidStatus):
		writeError(w, r, http.StatusBadRequest, "Invalid status value")
	case errors.Is(err, task.ErrInvalidPriority):
		writeError(w, r, http.StatusBadRequest, "Invalid priority value")
	case errors.Is(err, task.ErrInvalidRecurrence):
		writeError(w, r, http.StatusBadRequest, "Invalid recurrence value")
	case errors.Is(err, task.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Task not found")
	case errors.Is(err, task.ErrForbidden):
		writeError(w, r, http.StatusUnauthorized, "Unauthorized access")
	default:
		writeError(w, r, http.StatusInternalServerError, fallback)
	}
}

func validTaskID(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}
