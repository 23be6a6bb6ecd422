package repository

import (
	"context"
	"time"

	"docflow/internal/model"
)

// Document is a stored document row joined with its creator.
type Document struct {
	ID          string
	Name        string
	Status      model.Status
	CreatorID   string
	StoragePath string
	Size        int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Creator model.Creator
}

// DocumentFilter restricts a listing. Empty fields do not filter.
type DocumentFilter struct {
	CreatorID     string
	ExcludeStatus []model.Status
}

// DocumentRepository is persistence only; workflow rules live in the service.
type DocumentRepository interface {
	Create(ctx context.Context, doc *Document) (*Document, error)

	// FindByID returns ErrNotFound when the document does not exist.
	FindByID(ctx context.Context, id string) (*Document, error)

	List(ctx context.Context, f DocumentFilter, s Sort, pq PageQuery) (*PageResult[Document], error)

	UpdateName(ctx context.Context, id, name string, at time.Time) (*Document, error)

	// UpdateStatus moves the row from one status to another. It returns
	// ErrStaleStatus when the row is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (*Document, error)

	UpdateContent(ctx context.Context, id, storagePath string, size int64, at time.Time) (*Document, error)

	// Delete removes a document by ID. It returns ErrNotFound if no row was deleted.
	Delete(ctx context.Context, id string) error
}

// User is an account of the document store.
type User struct {
	ID           string
	Email        string
	FullName     string
	Role         model.Role
	PasswordHash string
	CreatedAt    time.Time
}

type UserRepository interface {
	// Create returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *User) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
}
