package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Tasks is the pgx-backed TaskStore.
type Tasks struct {
	pool *pgxpool.Pool
}

// NewTasks creates a task store on the given pool.
func NewTasks(pool *pgxpool.Pool) *Tasks {
	return &Tasks{pool: pool}
}

const taskColumns = "id, title, description, status, created_by, created_at, updated_at, completed_at"

// CreateTaskParams holds the fields for a new task.
type CreateTaskParams struct {
	Title       string
	Description string
	Status      string
	CreatedBy   int64
}

// Create inserts a task for its owner. An empty status defaults to
// pending.
func (s *Tasks) Create(ctx context.Context, params CreateTaskParams) (*Task, error) {
	status := params.Status
	if status == "" {
		status = TaskStatusPending
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+taskColumns,
		params.Title, params.Description, status, params.CreatedBy)

	task, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// GetOwned fetches a task only when the given user owns it.
func (s *Tasks) GetOwned(ctx context.Context, id, ownerID int64) (*Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND created_by = $2`, id, ownerID)

	task, err := scanTask(row)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListByOwner returns the user's tasks ordered by id.
func (s *Tasks) ListByOwner(ctx context.Context, ownerID int64) ([]*Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE created_by = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTaskParams holds optional task fields; nil means keep the
// stored value.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	Status      *string
}

// Empty reports whether no field is set.
func (p UpdateTaskParams) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// Update applies the set fields to an owned task, bumping updated_at.
// Returns ErrNotFound when the task does not exist or belongs to
// another user.
func (s *Tasks) Update(ctx context.Context, id, ownerID int64, params UpdateTaskParams) (*Task, error) {
	sets := []string{"updated_at = now()"}
	args := make([]any, 0, 5)

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Title != nil {
		addSet("title", *params.Title)
	}
	if params.Description != nil {
		addSet("description", *params.Description)
	}
	if params.Status != nil {
		addSet("status", *params.Status)
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d AND created_by = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), taskColumns)

	task, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete removes an owned task.
func (s *Tasks) Delete(ctx context.Context, id, ownerID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND created_by = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCompletion marks an owned task completed or pending. Completing
// always re-stamps completed_at, so repeat calls are idempotent in
// status and refresh the timestamp.
func (s *Tasks) SetCompletion(ctx context.Context, id, ownerID int64, completed bool) (*Task, error) {
	var query string
	if completed {
		query = `UPDATE tasks
			SET status = '` + TaskStatusCompleted + `', completed_at = now(), updated_at = now()
			WHERE id = $1 AND created_by = $2
			RETURNING ` + taskColumns
	} else {
		query = `UPDATE tasks
			SET status = '` + TaskStatusPending + `', completed_at = NULL, updated_at = now()
			WHERE id = $1 AND created_by = $2
			RETURNING ` + taskColumns
	}

	task, err := scanTask(s.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set task completion: %w", err)
	}
	return task, nil
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
