package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Dip11/medic-media-coding-test-backend/internal/domain"
	"github.com/Dip11/medic-media-coding-test-backend/internal/repository"
)

const taskColumns = `id, title, detail, due_date, created_by, created_at, updated_at`

// sortColumns maps allow-listed sort fields to real column names. Caller input
// never reaches the ORDER BY clause directly.
var sortColumns = map[repository.SortField]string{
	repository.SortFieldID:        "id",
	repository.SortFieldTitle:     "title",
	repository.SortFieldDetail:    "detail",
	repository.SortFieldDueDate:   "due_date",
	repository.SortFieldCreatedAt: "created_at",
	repository.SortFieldUpdatedAt: "updated_at",
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.Title, &t.Detail, &t.DueDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListTasksByOwner returns the owner's tasks. A nil sort keeps storage order;
// otherwise the field is resolved through the column allow-list.
func (r *Repository) ListTasksByOwner(ctx context.Context, ownerID int64, sort *repository.TaskSort) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE created_by = $1`
	if sort != nil {
		column, ok := sortColumns[sort.Field]
		if !ok {
			return nil, repository.ErrInvalidSort
		}
		if sort.Direction != repository.SortAsc && sort.Direction != repository.SortDesc {
			return nil, repository.ErrInvalidSort
		}
		query = fmt.Sprintf("%s ORDER BY %s %s", query, column, sort.Direction)
	}

	tasks := make([]domain.Task, 0)
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, ownerID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var t domain.Task
			if err := rows.Scan(&t.ID, &t.Title, &t.Detail, &t.DueDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
				return err
			}
			tasks = append(tasks, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask persists the task and fills in its generated id, due date, and
// timestamps.
func (r *Repository) CreateTask(ctx context.Context, task *domain.Task) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const insert = `INSERT INTO tasks (title, detail, due_date, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING id, due_date, created_at, updated_at`
		return tx.QueryRow(ctx, insert, task.Title, task.Detail, task.DueDate, task.CreatedBy).
			Scan(&task.ID, &task.DueDate, &task.CreatedAt, &task.UpdatedAt)
	})
}

// UpdateTask replaces the three mutable fields of the owner's task. A missing
// id, or an id owned by someone else, fails with ErrNotFound and rolls back.
func (r *Repository) UpdateTask(ctx context.Context, ownerID, id int64, title string, detail *string, dueDate time.Time) (*domain.Task, error) {
	var updated *domain.Task
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		const lock = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND created_by = $2 FOR UPDATE`
		task, err := scanTask(tx.QueryRow(ctx, lock, id, ownerID))
		if err != nil {
			return err
		}
		const update = `UPDATE tasks SET title = $2, detail = $3, due_date = $4, updated_at = now()
			WHERE id = $1
			RETURNING due_date, updated_at`
		if err := tx.QueryRow(ctx, update, id, title, detail, dueDate).Scan(&task.DueDate, &task.UpdatedAt); err != nil {
			return err
		}
		task.Title = title
		task.Detail = detail
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTask removes the owner's task and returns the pre-deletion snapshot.
func (r *Repository) DeleteTask(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	var snapshot *domain.Task
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		const lock = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND created_by = $2 FOR UPDATE`
		task, err := scanTask(tx.QueryRow(ctx, lock, id, ownerID))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
			return err
		}
		snapshot = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
