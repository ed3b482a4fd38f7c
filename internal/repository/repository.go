package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Dip11/medic-media-coding-test-backend/internal/domain"
)

// UserRepository persists account records.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// TaskRepository persists tasks scoped to their owning user. Implementations
// run every operation inside a dedicated transaction.
type TaskRepository interface {
	ListTasksByOwner(ctx context.Context, ownerID int64, sort *TaskSort) ([]domain.Task, error)
	CreateTask(ctx context.Context, task *domain.Task) error
	UpdateTask(ctx context.Context, ownerID, id int64, title string, detail *string, dueDate time.Time) (*domain.Task, error)
	DeleteTask(ctx context.Context, ownerID, id int64) (*domain.Task, error)
}

// SortField names a task column callers may order by.
type SortField string

// Allow-listed sortable fields. Anything else is rejected before reaching SQL.
const (
	SortFieldID        SortField = "id"
	SortFieldTitle     SortField = "title"
	SortFieldDetail    SortField = "detail"
	SortFieldDueDate   SortField = "dueDate"
	SortFieldCreatedAt SortField = "createdAt"
	SortFieldUpdatedAt SortField = "updatedAt"
)

// SortDirection is the ordering direction of a sorted listing.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// TaskSort describes an explicit listing order. A nil *TaskSort means
// storage-defined order (no ORDER BY).
type TaskSort struct {
	Field     SortField
	Direction SortDirection
}

var sortFields = map[SortField]struct{}{
	SortFieldID:        {},
	SortFieldTitle:     {},
	SortFieldDetail:    {},
	SortFieldDueDate:   {},
	SortFieldCreatedAt: {},
	SortFieldUpdatedAt: {},
}

// ParseTaskSort validates caller-supplied sort parameters against the
// allow-list. Both empty means no explicit order; a field or direction outside
// the allow-list fails with ErrInvalidSort.
func ParseTaskSort(field, direction string) (*TaskSort, error) {
	field = strings.TrimSpace(field)
	direction = strings.TrimSpace(direction)
	if field == "" && direction == "" {
		return nil, nil
	}
	if _, ok := sortFields[SortField(field)]; !ok {
		return nil, ErrInvalidSort
	}
	dir := SortDirection(strings.ToUpper(direction))
	if direction == "" {
		dir = SortAsc
	}
	if dir != SortAsc && dir != SortDesc {
		return nil, ErrInvalidSort
	}
	return &TaskSort{Field: SortField(field), Direction: dir}, nil
}
