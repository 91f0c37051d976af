package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/todo/entity"
)

var cols = []string{"id", "user_id", "title", "description", "completed", "due_date", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestCreate(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO todos \(id, user_id, title, description, completed, due_date\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)`).
		WithArgs("t1", "u1", "Task", "", false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	td := &entity.Todo{ID: "t1", UserID: "u1", Title: "Task"}
	require.NoError(t, r.Create(context.Background(), td))
	assert.Equal(t, now, td.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM todos WHERE user_id = \$1 ORDER BY created_at DESC, id DESC$`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("t2", "u1", "B", "", true, nil, now, now).
			AddRow("t1", "u1", "A", "", false, now, now, now))
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC LIMIT \$2$`).
		WithArgs("u1", 5).
		WillReturnRows(sqlmock.NewRows(cols))

	all, err := r.List(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Nil(t, all[0].DueDate)
	require.NotNil(t, all[1].DueDate)

	none, err := r.List(context.Background(), "u1", 5)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM todos WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t1", "u2").
		WillReturnError(sql.ErrNoRows)

	_, err := r.Get(context.Background(), "u2", "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE todos SET title = \$3, description = \$4, completed = \$5, due_date = \$6, updated_at = NOW\(\)\s+WHERE id = \$1 AND user_id = \$2 RETURNING updated_at`).
		WithArgs("t1", "u1", "New", "", true, nil).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectQuery(`UPDATE todos`).WillReturnError(sql.ErrNoRows)

	td := &entity.Todo{ID: "t1", UserID: "u1", Title: "New", Completed: true}
	require.NoError(t, r.Update(context.Background(), td))
	assert.Equal(t, now, td.UpdatedAt)

	assert.ErrorIs(t, r.Update(context.Background(), td), ErrNotFound)
}

func TestDelete(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectExec(`DELETE FROM todos WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM todos`).
		WithArgs("t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.Delete(context.Background(), "u1", "t1"))
	assert.ErrorIs(t, r.Delete(context.Background(), "u1", "t1"), ErrNotFound)
}

func TestCounts(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total, COUNT\(\*\) FILTER \(WHERE completed\) AS completed FROM todos WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "completed"}).AddRow(4, 1))

	total, done, err := r.Counts(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, 1, done)
}
