package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/todo/entity"
)

var ErrNotFound = errors.New("todo not found")

const todoColumns = `id, user_id, title, description, completed, due_date, created_at, updated_at`

// Repo is the todos repository backed by PostgreSQL. Every query is scoped
// by user_id so one user can never see or touch another user's rows.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, t *entity.Todo) error {
	const q = `INSERT INTO todos (id, user_id, title, description, completed, due_date)
		VALUES (:id, :user_id, :title, :description, :completed, :due_date)
		RETURNING created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, t)
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("insert todo: %w", err)
		}
		return errors.New("insert todo: no row returned")
	}
	return rows.Scan(&t.CreatedAt, &t.UpdatedAt)
}

// List returns the user's todos newest first. limit <= 0 means no limit.
func (r *Repo) List(ctx context.Context, userID string, limit int) ([]*entity.Todo, error) {
	q := `SELECT ` + todoColumns + ` FROM todos WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	todos := []*entity.Todo{}
	if err := r.db.SelectContext(ctx, &todos, q, args...); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

func (r *Repo) Get(ctx context.Context, userID, id string) (*entity.Todo, error) {
	var t entity.Todo
	err := r.db.GetContext(ctx, &t, `SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return &t, nil
}

// Update writes the mutable columns of t and refreshes t.UpdatedAt.
func (r *Repo) Update(ctx context.Context, t *entity.Todo) error {
	const q = `UPDATE todos SET title = $3, description = $4, completed = $5, due_date = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 RETURNING updated_at`
	err := r.db.GetContext(ctx, &t.UpdatedAt, q, t.ID, t.UserID, t.Title, t.Description, t.Completed, t.DueDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update todo: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Counts returns the total and completed number of todos for userID.
func (r *Repo) Counts(ctx context.Context, userID string) (total, completed int, err error) {
	const q = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE completed) AS completed FROM todos WHERE user_id = $1`
	var row struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}
	if err := r.db.GetContext(ctx, &row, q, userID); err != nil {
		return 0, 0, fmt.Errorf("count todos: %w", err)
	}
	return row.Total, row.Completed, nil
}
