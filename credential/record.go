// Package credential owns the per-account security record: the password
// hash, failed-attempt counter, lockout window, and the currently valid
// refresh token. Record state only changes through Store transitions;
// persistence of the resulting record is the caller's responsibility.
package credential

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// IdentifierKind names one of the two unique login identifiers.
type IdentifierKind string

const (
	IdentifierEmail    IdentifierKind = "email"
	IdentifierUsername IdentifierKind = "username"
)

// Record is one account's credential state. Identifiers are normalized
// (lowercased, trimmed) at creation and immutable afterwards. Version is
// the optimistic-concurrency token maintained by the record store; callers
// never set it.
type Record struct {
	ID       string
	Email    string
	Username string

	// PasswordHash is the PHC-encoded argon2id hash. It must never be
	// logged or returned across an API boundary; String and LogValue
	// redact it.
	PasswordHash string

	// PasswordChangedAt is set (with a small backdating skew) whenever the
	// hash is replaced on an existing record, never at creation. Tokens
	// issued before it are invalid.
	PasswordChangedAt *time.Time

	FailedAttempts int
	LockedUntil    *time.Time
	Active         bool

	// RefreshToken is the single currently accepted refresh token for the
	// account; it is replaced, never appended.
	RefreshToken string

	CreatedAt time.Time
	Version   uint64
}

// NormalizeIdentifier lowercases and trims an email or username for
// case-insensitive matching and storage.
func NormalizeIdentifier(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// String renders the record without secret material.
func (r *Record) String() string {
	return fmt.Sprintf("credential.Record{ID:%s Email:%s Username:%s Active:%t FailedAttempts:%d}",
		r.ID, r.Email, r.Username, r.Active, r.FailedAttempts)
}

// LogValue keeps the password hash and refresh token out of slog output.
func (r *Record) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.String("username", r.Username),
		slog.Bool("active", r.Active),
		slog.Int("failed_attempts", r.FailedAttempts),
	)
}
