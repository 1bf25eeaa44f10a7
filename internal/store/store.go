// Package store persists users, addresses and audit logs.
//
// Services run every check-then-write sequence inside RunInTx. The guarantees
// are those of the backing engine's isolation level plus the unique indexes
// created by Migrate; nothing in this package adds locking beyond that.
package store

import (
	"context"
	"errors"
	"time"

	"erpcore/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports a unique constraint violation in the backing store.
	ErrConflict = errors.New("unique constraint violation")
)

type Store interface {
	Users() UserStore
	Addresses() AddressStore
	Audit() AuditStore
	// RunInTx runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	// FindByID loads the user with its addresses.
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByCPF(ctx context.Context, cpf string) (*models.User, error)
	ExistsByCPF(ctx context.Context, cpf string, exclude *uuid.UUID) (bool, error)
	ExistsByEmail(ctx context.Context, email string, exclude *uuid.UUID) (bool, error)
	List(ctx context.Context, page models.Page) ([]models.User, int64, error)
	// Lock takes a row lock on the user for the rest of the transaction.
	Lock(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type AddressStore interface {
	Create(ctx context.Context, a *models.Address) error
	Update(ctx context.Context, a *models.Address) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	PageByUser(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Address, int64, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// ClearPrimary unflags every primary address of the user except exceptID
	// and returns the ids it changed.
	ClearPrimary(ctx context.Context, userID uuid.UUID, exceptID uuid.UUID) ([]uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// AuditFilter selects audit rows; zero fields are ignored.
type AuditFilter struct {
	UserID     *uuid.UUID
	EntityType string
	EntityID   string
	FieldName  string
	From       *time.Time
	To         *time.Time
}

type AuditStore interface {
	CreateBatch(ctx context.Context, logs []models.AuditLog) error
	// Query orders by changed_at descending, then field name ascending.
	Query(ctx context.Context, f AuditFilter, page models.Page) ([]models.AuditLog, int64, error)
	// DetachUser clears user_id on the user's audit rows so the history
	// survives a permanent delete.
	DetachUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
