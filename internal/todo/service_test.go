package todo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/todo/entity"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/todo/repo"
)

type fakeStore struct {
	mu    sync.Mutex
	rows  map[string]*entity.Todo
	seq   int
	limit int
	err   error
}

func newFakeStore() *fakeStore { return &fakeStore{rows: map[string]*entity.Todo{}} }

func (f *fakeStore) Create(_ context.Context, t *entity.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.seq++
	t.CreatedAt = time.Date(2024, 5, 1, 0, 0, f.seq, 0, time.UTC)
	t.UpdatedAt = t.CreatedAt
	cp := *t
	f.rows[t.ID] = &cp
	return nil
}

func (f *fakeStore) List(_ context.Context, userID string, limit int) ([]*entity.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	out := []*entity.Todo{}
	for _, t := range f.rows {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, userID, id string) (*entity.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok || t.UserID != userID {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) Update(_ context.Context, t *entity.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[t.ID]
	if !ok || cur.UserID != t.UserID {
		return repo.ErrNotFound
	}
	cp := *t
	f.rows[t.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok || t.UserID != userID {
		return repo.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeStore) Counts(_ context.Context, userID string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total, done int
	for _, t := range f.rows {
		if t.UserID == userID {
			total++
			if t.Completed {
				done++
			}
		}
	}
	return total, done, nil
}

func ptr[T any](v T) *T { return &v }

func TestCreateValidation(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil)
	ctx := context.Background()

	cases := []struct {
		in   CreateInput
		want error
	}{
		{CreateInput{Title: "   "}, ErrTitleRequired},
		{CreateInput{Title: "ab"}, ErrTitleTooShort},
		{CreateInput{Title: strings.Repeat("t", 201)}, ErrTitleTooLong},
		{CreateInput{Title: "Buy milk", Description: strings.Repeat("d", 1001)}, ErrDescriptionLength},
	}
	for _, c := range cases {
		_, err := svc.Create(ctx, "u1", c.in)
		assert.ErrorIs(t, err, c.want)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	}

	got, err := svc.Create(ctx, "u1", CreateInput{Title: "  Buy milk  ", Description: " 2L "})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, "2L", got.Description)
	assert.False(t, got.Completed)
	assert.Nil(t, got.DueDate)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "u1", got.UserID)
}

func TestOwnershipScoping(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil)
	ctx := context.Background()

	mine, err := svc.Create(ctx, "u1", CreateInput{Title: "Mine"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "u2", mine.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, "u2", mine.ID, Patch{Completed: ptr(true)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "u2", mine.ID), ErrNotFound)

	list, err := svc.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, svc.Delete(ctx, "u1", mine.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", mine.ID), ErrNotFound)
}

func TestUpdatePartial(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil)
	ctx := context.Background()
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	td, err := svc.Create(ctx, "u1", CreateInput{Title: "Write report", Description: "Q2", DueDate: &due})
	require.NoError(t, err)

	got, err := svc.Update(ctx, "u1", td.ID, Patch{Completed: ptr(true)})
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, "Q2", got.Description)
	require.NotNil(t, got.DueDate)

	got, err = svc.Update(ctx, "u1", td.ID, Patch{Title: ptr(" Final report "), ClearDueDate: true})
	require.NoError(t, err)
	assert.Equal(t, "Final report", got.Title)
	assert.Nil(t, got.DueDate)
	assert.True(t, got.Completed)

	_, err = svc.Update(ctx, "u1", td.ID, Patch{Title: ptr("")})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestRecentAndStats(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	st, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.Stats{}, *st)

	for i := 0; i < 7; i++ {
		_, err := svc.Create(ctx, "u1", CreateInput{Title: "Task " + string(rune('A'+i)), Completed: i < 2})
		require.NoError(t, err)
	}

	recent, err := svc.Recent(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, recent, DefaultRecentLimit)
	assert.Equal(t, "Task G", recent[0].Title)

	_, err = svc.Recent(ctx, "u1", 1000)
	require.NoError(t, err)
	assert.Equal(t, MaxRecentLimit, store.limit)

	st, err = svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.Stats{TotalTodos: 7, CompletedTodos: 2, PendingTodos: 5, CompletionPercentage: 29}, *st)
}

func TestCreateStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")
	_, err := NewService(store, nil, nil).Create(context.Background(), "u1", CreateInput{Title: "Task"})
	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
}

func TestParseDueDate(t *testing.T) {
	d, err := ParseDueDate("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *d)

	d, err = ParseDueDate("2024-06-01T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC), d.UTC())

	_, err = ParseDueDate("2024-06-01T10:30")
	require.NoError(t, err)

	_, err = ParseDueDate("tomorrow")
	assert.ErrorIs(t, err, ErrDueDate)
}
