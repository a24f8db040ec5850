package authcore

import (
	"context"
	"time"

	"github.com/taskforge/authcore/credential"
)

// RecordStore is the persistence contract the service runs against.
// [credential.RedisStore] is the production implementation; tests use an
// in-memory fake. Implementations must honor optimistic concurrency:
// Save fails with [credential.ErrConflict] when the stored version no
// longer matches the record's.
type RecordStore interface {
	Create(ctx context.Context, r *credential.Record) error
	Save(ctx context.Context, r *credential.Record) error
	FindByID(ctx context.Context, id string) (*credential.Record, error)
	FindByIdentifier(ctx context.Context, identifier string) (*credential.Record, error)
	ExistsByIdentifier(ctx context.Context, kind credential.IdentifierKind, value string) (bool, error)
}

// TokenPair is the result of a successful login or registration.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Account is the caller-facing view of a credential record. It never
// carries the password hash or the stored refresh token.
type Account struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Active      bool       `json:"active"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func accountView(r *credential.Record) Account {
	return Account{
		ID:          r.ID,
		Email:       r.Email,
		Username:    r.Username,
		Active:      r.Active,
		LockedUntil: r.LockedUntil,
		CreatedAt:   r.CreatedAt,
	}
}
