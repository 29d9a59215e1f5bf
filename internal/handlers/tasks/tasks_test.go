package tasks

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskboard/internal/handlers"
	"taskboard/internal/router"
	"taskboard/internal/store"
)

type fakeTaskStore struct {
	rows   map[int64]*store.Task
	nextID int64
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{rows: map[int64]*store.Task{}}
}

func (f *fakeTaskStore) Create(ctx context.Context, params store.CreateTaskParams) (*store.Task, error) {
	status := params.Status
	if status == "" {
		status = store.TaskStatusPending
	}
	f.nextID++
	now := time.Now()
	task := &store.Task{
		ID:          f.nextID,
		Title:       params.Title,
		Description: params.Description,
		Status:      status,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.rows[task.ID] = task
	return task, nil
}

func (f *fakeTaskStore) GetOwned(ctx context.Context, id, ownerID int64) (*store.Task, error) {
	task, ok := f.rows[id]
	if !ok || task.CreatedBy != ownerID {
		return nil, store.ErrNotFound
	}
	return task, nil
}

func (f *fakeTaskStore) ListByOwner(ctx context.Context, ownerID int64) ([]*store.Task, error) {
	var tasks []*store.Task
	for _, task := range f.rows {
		if task.CreatedBy == ownerID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, id, ownerID int64, params store.UpdateTaskParams) (*store.Task, error) {
	task, err := f.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.Status != nil {
		task.Status = *params.Status
	}
	task.UpdatedAt = time.Now()
	return task, nil
}

func (f *fakeTaskStore) Delete(ctx context.Context, id, ownerID int64) error {
	if _, err := f.GetOwned(ctx, id, ownerID); err != nil {
		return err
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeTaskStore) SetCompletion(ctx context.Context, id, ownerID int64, completed bool) (*store.Task, error) {
	task, err := f.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if completed {
		now := time.Now()
		task.Status = store.TaskStatusCompleted
		task.CompletedAt = &now
	} else {
		task.Status = store.TaskStatusPending
		task.CompletedAt = nil
	}
	task.UpdatedAt = time.Now()
	return task, nil
}

func newController(tasks store.TaskStore) *TaskController {
	h := handlers.NewHandler(nil, tasks, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewTaskController(h)
}

// authedContext builds a request context carrying the given caller id
// and path parameters.
func authedContext(t *testing.T, method, path, body string, userID int64, params map[string]string) *router.Context {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	c := router.NewContext(httptest.NewRecorder(), req, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.SetIdentity(router.Identity{"id": userID})
	for name, value := range params {
		c.Params[name] = value
	}
	return c
}

func asResponse(t *testing.T, result any) *router.Response {
	t.Helper()
	response, ok := result.(*router.Response)
	if !ok {
		t.Fatalf("handler result = %T (%v), want *router.Response", result, result)
	}
	return response
}

func TestIndexEmptyList(t *testing.T) {
	controller := newController(newFakeTaskStore())

	c := authedContext(t, "GET", "/get-tasks", "", 1, nil)
	response := asResponse(t, controller.Index(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}
	tasks, ok := response.Data.([]*store.Task)
	if !ok {
		t.Fatalf("data = %T, want []*store.Task", response.Data)
	}
	if tasks == nil {
		t.Error("data is a nil slice, want empty list")
	}
}

func TestIndexScopedToOwner(t *testing.T) {
	tasks := newFakeTaskStore()
	tasks.Create(context.Background(), store.CreateTaskParams{Title: "mine", CreatedBy: 1})
	tasks.Create(context.Background(), store.CreateTaskParams{Title: "theirs", CreatedBy: 2})
	controller := newController(tasks)

	c := authedContext(t, "GET", "/get-tasks", "", 1, nil)
	response := asResponse(t, controller.Index(c))
	list := response.Data.([]*store.Task)
	if len(list) != 1 || list[0].Title != "mine" {
		t.Errorf("listed tasks = %v, want only the caller's", list)
	}
}

func TestCreateTask(t *testing.T) {
	tasks := newFakeTaskStore()
	controller := newController(tasks)

	c := authedContext(t, "POST", "/create-task", `{"title":"  <b>Write tests</b> ","description":"cover the handlers"}`, 1, nil)
	response := asResponse(t, controller.Create(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}
	task := response.Data.(*store.Task)
	if task.Title != "Write tests" {
		t.Errorf("title = %q, want sanitized %q", task.Title, "Write tests")
	}
	if task.Status != store.TaskStatusPending {
		t.Errorf("status = %q, want %q", task.Status, store.TaskStatusPending)
	}
	if task.CreatedBy != 1 {
		t.Errorf("created_by = %d, want 1", task.CreatedBy)
	}
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	controller := newController(newFakeTaskStore())

	for _, body := range []string{`{}`, `{"title":"   "}`, `{"title":"<b></b>"}`} {
		c := authedContext(t, "POST", "/create-task", body, 1, nil)
		response := asResponse(t, controller.Create(c))
		if response.StatusCode != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want %d", body, response.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestShowOwnershipScoping(t *testing.T) {
	tasks := newFakeTaskStore()
	created, _ := tasks.Create(context.Background(), store.CreateTaskParams{Title: "secret", CreatedBy: 2})
	controller := newController(tasks)

	c := authedContext(t, "GET", "/get-task/1", "", 1, map[string]string{"id": "1"})
	response := asResponse(t, controller.Show(c))
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("foreign task status = %d, want %d", response.StatusCode, http.StatusNotFound)
	}

	c = authedContext(t, "GET", "/get-task/1", "", 2, map[string]string{"id": "1"})
	response = asResponse(t, controller.Show(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("owner status = %d, want %d", response.StatusCode, http.StatusOK)
	}
	if got := response.Data.(*store.Task).ID; got != created.ID {
		t.Errorf("task id = %d, want %d", got, created.ID)
	}
}

func TestShowInvalidID(t *testing.T) {
	controller := newController(newFakeTaskStore())

	c := authedContext(t, "GET", "/get-task/abc", "", 1, map[string]string{"id": "abc"})
	response := asResponse(t, controller.Show(c))
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", response.StatusCode, http.StatusBadRequest)
	}
}

func TestUpdateTask(t *testing.T) {
	tasks := newFakeTaskStore()
	tasks.Create(context.Background(), store.CreateTaskParams{Title: "old", Description: "keep me", CreatedBy: 1})
	controller := newController(tasks)

	c := authedContext(t, "PUT", "/update-task/1", `{"title":"new"}`, 1, map[string]string{"id": "1"})
	response := asResponse(t, controller.Update(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}
	task := response.Data.(*store.Task)
	if task.Title != "new" {
		t.Errorf("title = %q, want %q", task.Title, "new")
	}
	if task.Description != "keep me" {
		t.Errorf("description = %q, want untouched %q", task.Description, "keep me")
	}
}

func TestUpdateTaskEmptyPayload(t *testing.T) {
	tasks := newFakeTaskStore()
	tasks.Create(context.Background(), store.CreateTaskParams{Title: "old", CreatedBy: 1})
	controller := newController(tasks)

	c := authedContext(t, "PUT", "/update-task/1", `{}`, 1, map[string]string{"id": "1"})
	response := asResponse(t, controller.Update(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}
	if response.Message != "Nothing to update" {
		t.Errorf("message = %q, want %q", response.Message, "Nothing to update")
	}
	if tasks.rows[1].Title != "old" {
		t.Errorf("title = %q, want untouched %q", tasks.rows[1].Title, "old")
	}
}

func TestUpdateTaskRejectsEmptyTitle(t *testing.T) {
	tasks := newFakeTaskStore()
	tasks.Create(context.Background(), store.CreateTaskParams{Title: "old", CreatedBy: 1})
	controller := newController(tasks)

	c := authedContext(t, "PUT", "/update-task/1", `{"title":"  "}`, 1, map[string]string{"id": "1"})
	response := asResponse(t, controller.Update(c))
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", response.StatusCode, http.StatusBadRequest)
	}
}

func TestUpdateForeignTask(t *testing.T) {
	tasks := newFakeTaskStore()
	tasks.Create(context.Background(), store.CreateTaskParams{Title: "theirs", CreatedBy: 2})
	controller := newController(tasks)

	c := authedContext(t, "PUT", "/update-task/1", `{"title":"hijack"}`, 1, map[string]string{"id": "1"})
	response := asResponse(t, controller.Update(c))
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", response.StatusCode, http.StatusNotFound)
	}
}

func TestCompleteAndUncomplete(t *testing.T) {
	tasks := newFakeTaskStore()
	tasks.Create(context.Background(), store.CreateTaskParams{Title: "t", CreatedBy: 1})
	controller := newController(tasks)
	params := map[string]string{"id": "1"}

	response := asResponse(t, controller.Complete(authedContext(t, "POST", "/complete-task/1", "", 1, params)))
	task := response.Data.(*store.Task)
	if task.Status != store.TaskStatusCompleted {
		t.Errorf("status after complete = %q, want %q", task.Status, store.TaskStatusCompleted)
	}
	if task.CompletedAt == nil {
		t.Error("completed_at = nil after complete, want timestamp")
	}

	// Completing twice re-stamps rather than failing.
	response = asResponse(t, controller.Complete(authedContext(t, "POST", "/complete-task/1", "", 1, params)))
	if response.StatusCode != http.StatusOK {
		t.Errorf("second complete status = %d, want %d", response.StatusCode, http.StatusOK)
	}

	response = asResponse(t, controller.Uncomplete(authedContext(t, "POST", "/uncomplete-task/1", "", 1, params)))
	task = response.Data.(*store.Task)
	if task.Status != store.TaskStatusPending {
		t.Errorf("status after uncomplete = %q, want %q", task.Status, store.TaskStatusPending)
	}
	if task.CompletedAt != nil {
		t.Errorf("completed_at = %v after uncomplete, want nil", task.CompletedAt)
	}
}

func TestRemoveTask(t *testing.T) {
	tasks := newFakeTaskStore()
	tasks.Create(context.Background(), store.CreateTaskParams{Title: "t", CreatedBy: 1})
	controller := newController(tasks)

	c := authedContext(t, "DELETE", "/delete-task/1", "", 1, map[string]string{"id": "1"})
	response := asResponse(t, controller.Remove(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}
	if len(tasks.rows) != 0 {
		t.Errorf("rows after delete = %d, want 0", len(tasks.rows))
	}

	c = authedContext(t, "DELETE", "/delete-task/1", "", 1, map[string]string{"id": "1"})
	response = asResponse(t, controller.Remove(c))
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", response.StatusCode, http.StatusNotFound)
	}
}

func TestExportWritesWorkbook(t *testing.T) {
	tasks := newFakeTaskStore()
	tasks.Create(context.Background(), store.CreateTaskParams{Title: "t", CreatedBy: 1})
	controller := newController(tasks)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/export-tasks", nil)
	c := router.NewContext(rec, req, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.SetIdentity(router.Identity{"id": int64(1)})

	result := controller.Export(c)
	if result != router.Sent {
		t.Fatalf("Export result = %v, want router.Sent", result)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Errorf("Content-Type = %q, want spreadsheet", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(got, `attachment; filename="tasks_`) {
		t.Errorf("Content-Disposition = %q, want attachment", got)
	}
	// xlsx files are zip archives.
	if body := rec.Body.Bytes(); len(body) < 4 || body[0] != 'P' || body[1] != 'K' {
		t.Error("body is not a zip archive")
	}
}
