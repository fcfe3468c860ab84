package store

import (
	"context"
	"errors"

	"github.com/quokkahq/tokenforge/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Tokens() Tokens
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh
	// rotation). The caller MUST call Commit() or Rollback() on the
	// returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Tokens interface {
	// Save persists a freshly minted token record and returns its row id.
	Save(ctx context.Context, t domain.AccessToken) (int64, error)

	// GetByTokenID returns a token by its jti, excluding revoked records.
	GetByTokenID(ctx context.Context, tokenID string) (domain.AccessToken, error)

	// GetByRefreshToken returns the token record holding the given refresh
	// token, excluding revoked records.
	GetByRefreshToken(ctx context.Context, refreshToken string) (domain.AccessToken, error)

	// ListByUserID returns all token records for a user, newest first.
	ListByUserID(ctx context.Context, userID int64) ([]domain.AccessToken, error)

	// ListByClientID returns all token records for a client, newest first.
	ListByClientID(ctx context.Context, clientID string) ([]domain.AccessToken, error)

	// Revoke flips revoked=1 for the given jti. Unknown jtis are a no-op.
	Revoke(ctx context.Context, tokenID string) error

	// RevokeAllForUser bulk-revokes every active token a user holds.
	RevokeAllForUser(ctx context.Context, userID int64) error

	// ExistsActive reports whether a non-revoked, non-expired record with
	// this jti exists.
	ExistsActive(ctx context.Context, tokenID string) (bool, error)

	// DeleteExpiredOrRevoked removes dead rows and returns how many went.
	DeleteExpiredOrRevoked(ctx context.Context) (int64, error)
}

type Users interface {
	// GetByLogin is used during password grant. Roles are loaded eagerly.
	// Only active accounts are returned; a disabled login looks identical
	// to an unknown one.
	GetByLogin(ctx context.Context, login string) (domain.User, error)

	// GetByID returns a user by id with roles loaded, active or not.
	GetByID(ctx context.Context, id int64) (domain.User, error)

	// List returns all users with roles loaded, ordered by id.
	List(ctx context.Context) ([]domain.User, error)

	// Create inserts a new user and returns its row id.
	Create(ctx context.Context, u domain.User) (int64, error)

	// CreateRole inserts a role and returns its row id.
	CreateRole(ctx context.Context, r domain.Role) (int64, error)

	// AssignRole links an existing role to an existing user.
	AssignRole(ctx context.Context, userID, roleID int64) error

	// SetActive enables or disables an account and bumps updated_at.
	SetActive(ctx context.Context, userID int64, active bool) error
}
