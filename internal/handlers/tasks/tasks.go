package tasks

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"taskboard/internal/handlers"
	"taskboard/internal/router"
	"taskboard/internal/store"
)

// TaskController handles the owner-scoped task CRUD surface. Every
// action reads the caller id from the request context; routes carry
// the auth unit so an unauthenticated request never reaches here.
type TaskController struct {
	h *handlers.Handler
}

func NewTaskController(h *handlers.Handler) *TaskController {
	return &TaskController{h: h}
}

// Actions returns the controller's dispatchable methods by name.
func (t *TaskController) Actions() map[string]router.HandlerFunc {
	return map[string]router.HandlerFunc{
		"index":      t.Index,
		"show":       t.Show,
		"create":     t.Create,
		"update":     t.Update,
		"remove":     t.Remove,
		"complete":   t.Complete,
		"uncomplete": t.Uncomplete,
		"export":     t.Export,
	}
}

// Index lists the caller's tasks.
func (t *TaskController) Index(c *router.Context) any {
	tasks, err := t.h.Tasks.ListByOwner(c.Request.Context(), c.CurrentUserID())
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	return router.OK("", tasks)
}

// Show returns one owned task.
func (t *TaskController) Show(c *router.Context) any {
	id, response := taskID(c)
	if response != nil {
		return response
	}

	task, err := t.h.Tasks.GetOwned(c.Request.Context(), id, c.CurrentUserID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return router.NotFound("Task not found")
		}
		return err
	}
	return router.OK("", task)
}

// CreateTaskRequest is the task creation payload.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Create inserts a task for the caller. Title is required; status
// defaults to pending.
func (t *TaskController) Create(c *router.Context) any {
	var req CreateTaskRequest
	if err := c.DecodeJSON(&req); err != nil {
		return router.BadRequest("Invalid request payload")
	}

	title := t.h.Sanitizer.Sanitize(req.Title)
	if title == "" {
		return router.BadRequest("Title is required")
	}

	task, err := t.h.Tasks.Create(c.Request.Context(), store.CreateTaskParams{
		Title:       title,
		Description: t.h.Sanitizer.Sanitize(req.Description),
		Status:      req.Status,
		CreatedBy:   c.CurrentUserID(),
	})
	if err != nil {
		return err
	}

	t.h.Logger.Info("task created", "task_id", task.ID, "user_id", task.CreatedBy)
	return router.OK("Task created", task)
}

// UpdateTaskRequest is the partial update payload; absent fields keep
// their stored values.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Update applies a partial update to an owned task. An empty payload
// is acknowledged without touching the row.
func (t *TaskController) Update(c *router.Context) any {
	id, response := taskID(c)
	if response != nil {
		return response
	}

	var req UpdateTaskRequest
	if err := c.DecodeJSON(&req); err != nil {
		return router.BadRequest("Invalid request payload")
	}

	params := store.UpdateTaskParams{
		Description: req.Description,
		Status:      req.Status,
	}
	if req.Title != nil {
		title := t.h.Sanitizer.Sanitize(*req.Title)
		if title == "" {
			return router.BadRequest("Title cannot be empty")
		}
		params.Title = &title
	}
	if req.Description != nil {
		description := t.h.Sanitizer.Sanitize(*req.Description)
		params.Description = &description
	}

	if params.Empty() {
		return router.OK("Nothing to update", nil)
	}

	task, err := t.h.Tasks.Update(c.Request.Context(), id, c.CurrentUserID(), params)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return router.NotFound("Task not found")
		}
		return err
	}
	return router.OK("Task updated", task)
}

// Remove deletes an owned task.
func (t *TaskController) Remove(c *router.Context) any {
	id, response := taskID(c)
	if response != nil {
		return response
	}

	if err := t.h.Tasks.Delete(c.Request.Context(), id, c.CurrentUserID()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return router.NotFound("Task not found")
		}
		return err
	}
	return router.OK("Task removed", nil)
}

// Complete marks an owned task completed. Completing again simply
// re-stamps completed_at.
func (t *TaskController) Complete(c *router.Context) any {
	return t.setCompletion(c, true, "Task completed")
}

// Uncomplete returns an owned task to pending and clears
// completed_at. Safe to repeat.
func (t *TaskController) Uncomplete(c *router.Context) any {
	return t.setCompletion(c, false, "Task marked pending")
}

func (t *TaskController) setCompletion(c *router.Context, completed bool, message string) any {
	id, response := taskID(c)
	if response != nil {
		return response
	}

	task, err := t.h.Tasks.SetCompletion(c.Request.Context(), id, c.CurrentUserID(), completed)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return router.NotFound("Task not found")
		}
		return err
	}
	return router.OK(message, task)
}

// taskID parses the {id} path parameter.
func taskID(c *router.Context) (int64, *router.Response) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, router.BadRequest("Invalid task id")
	}
	return id, nil
}

var exportHeaders = []string{"ID", "Title", "Description", "Status", "Created At", "Updated At", "Completed At"}

// Export streams the caller's tasks as an .xlsx attachment. This
// action writes the body itself, so it bypasses the JSON envelope.
func (t *TaskController) Export(c *router.Context) any {
	tasks, err := t.h.Tasks.ListByOwner(c.Request.Context(), c.CurrentUserID())
	if err != nil {
		return err
	}

	file, err := buildWorkbook(tasks)
	if err != nil {
		return err
	}
	defer file.Close()

	filename := fmt.Sprintf("tasks_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Writer.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Writer.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := file.Write(c.Writer); err != nil {
		t.h.Logger.Error("spreadsheet write failed", "error", err)
	}
	return router.Sent
}
