package todo

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/todo/entity"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/todo/repo"
	"github.com/ovaphlow/pitchfork/service-todo-go/pkg/utilities"
)

const (
	DefaultRecentLimit = 5
	MaxRecentLimit     = 100
)

var (
	ErrNotFound          = apperr.New(apperr.NotFound, "Todo not found")
	ErrTitleRequired     = apperr.Validationf("Title is required")
	ErrTitleTooShort     = apperr.Validationf("Title must be at least 3 characters")
	ErrTitleTooLong      = apperr.Validationf("Title cannot exceed 200 characters")
	ErrDescriptionLength = apperr.Validationf("Description cannot exceed 1000 characters")
	ErrDueDate           = apperr.Validationf("Invalid due date format")
	ErrCompletedType     = apperr.Validationf("Completed must be a boolean value")
)

// Store is implemented by repo.Repo.
type Store interface {
	Create(ctx context.Context, t *entity.Todo) error
	List(ctx context.Context, userID string, limit int) ([]*entity.Todo, error)
	Get(ctx context.Context, userID, id string) (*entity.Todo, error)
	Update(ctx context.Context, t *entity.Todo) error
	Delete(ctx context.Context, userID, id string) error
	Counts(ctx context.Context, userID string) (total, completed int, err error)
}

// Service encapsulates business logic for todos and depends on a store.
type Service struct {
	store    Store
	ids      *utilities.IDGenerator
	validate *validator.Validate
}

func NewService(s Store, ids *utilities.IDGenerator, v *validator.Validate) *Service {
	if ids == nil {
		ids = utilities.NewIDGenerator(1)
	}
	if v == nil {
		v = validator.New()
	}
	return &Service{store: s, ids: ids, validate: v}
}

// fields is validated with struct tags after trimming.
type fields struct {
	Title       string `validate:"required,min=3,max=200"`
	Description string `validate:"max=1000"`
}

type CreateInput struct {
	Title       string
	Description string
	Completed   bool
	DueDate     *time.Time
}

// Patch holds the fields present in a partial update. ClearDueDate removes
// the due date and wins over DueDate.
type Patch struct {
	Title        *string
	Description  *string
	Completed    *bool
	DueDate      *time.Time
	ClearDueDate bool
}

func (s *Service) List(ctx context.Context, userID string) ([]*entity.Todo, error) {
	return s.store.List(ctx, userID, 0)
}

func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]*entity.Todo, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	return s.store.List(ctx, userID, limit)
}

func (s *Service) Stats(ctx context.Context, userID string) (*entity.Stats, error) {
	total, completed, err := s.store.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := &entity.Stats{TotalTodos: total, CompletedTodos: completed, PendingTodos: total - completed}
	if total > 0 {
		st.CompletionPercentage = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return st, nil
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*entity.Todo, error) {
	f := fields{Title: strings.TrimSpace(in.Title), Description: strings.TrimSpace(in.Description)}
	if err := s.check(f); err != nil {
		return nil, err
	}
	t := &entity.Todo{
		ID:          s.ids.NewID(),
		UserID:      userID,
		Title:       f.Title,
		Description: f.Description,
		Completed:   in.Completed,
		DueDate:     in.DueDate,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*entity.Todo, error) {
	t, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

// Update applies p to the caller's todo. Absent fields keep their value.
func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (*entity.Todo, error) {
	t, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, mapErr(err)
	}
	f := fields{Title: t.Title, Description: t.Description}
	if p.Title != nil {
		f.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		f.Description = strings.TrimSpace(*p.Description)
	}
	if err := s.check(f); err != nil {
		return nil, err
	}
	t.Title, t.Description = f.Title, f.Description
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		t.DueDate = p.DueDate
	}
	if err := s.store.Update(ctx, t); err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return mapErr(s.store.Delete(ctx, userID, id))
}

func (s *Service) check(f fields) error {
	err := s.validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	switch {
	case fe.Field() == "Title" && fe.Tag() == "required":
		return ErrTitleRequired
	case fe.Field() == "Title" && fe.Tag() == "min":
		return ErrTitleTooShort
	case fe.Field() == "Title":
		return ErrTitleTooLong
	default:
		return ErrDescriptionLength
	}
}

var dueDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// ParseDueDate accepts RFC 3339 timestamps, datetime-local values and plain
// dates. Layouts without a zone are read as UTC.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, ErrDueDate
}

func mapErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
