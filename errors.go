package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskforge/authcore/credential"
	"github.com/taskforge/authcore/password"
)

var (
	// ErrInvalidCredentials covers both unknown identifiers and wrong
	// passwords so that login responses cannot be used to enumerate
	// accounts. The audit trail keeps the distinction.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout window is active.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive is returned for deactivated accounts.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountNotFound is returned by administrative operations that
	// address an account by id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrIdentifierTaken is returned on registration when the email or
	// username is already claimed.
	ErrIdentifierTaken = errors.New("identifier already taken")
	// ErrPasswordPolicy is returned when a candidate password fails
	// policy evaluation.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is returned when a password change supplies the
	// current password as the new one.
	ErrPasswordReuse = errors.New("new password must differ from current password")
	// ErrTokenInvalid is returned for malformed or badly signed tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed tokens past expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionInvalidated is returned when a token was signed for a
	// password that has since been changed.
	ErrSessionInvalidated = errors.New("session invalidated by password change")
	// ErrRefreshTokenMismatch is returned when a presented refresh token
	// is not the account's current one.
	ErrRefreshTokenMismatch = errors.New("refresh token superseded")
	// ErrStoreUnavailable is returned when the credential backend cannot
	// be reached.
	ErrStoreUnavailable = credential.ErrStoreUnavailable
	// ErrServiceNotReady is returned when a Service method is called on
	// a zero or closed Service.
	ErrServiceNotReady = errors.New("service not initialized")
)

// ValidationError carries the individual policy violations behind
// ErrPasswordPolicy.
type ValidationError struct {
	Violations []password.Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("password policy violation (%d rules)", len(e.Violations))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrPasswordPolicy
}

// IdentifierTakenError names which identifier collided on registration.
type IdentifierTakenError struct {
	Kind credential.IdentifierKind
}

func (e *IdentifierTakenError) Error() string {
	return fmt.Sprintf("%s already taken", e.Kind)
}

func (e *IdentifierTakenError) Is(target error) bool {
	return target == ErrIdentifierTaken
}

// LockedError reports when the active lockout window ends.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// PublicMessage maps a service error to text safe to send to end users.
// Internal detail, including anything that would distinguish an unknown
// account from a wrong password, is withheld.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email/username or password."
	case errors.Is(err, ErrAccountLocked):
		return "Account temporarily locked due to repeated failed logins. Try again later."
	case errors.Is(err, ErrAccountInactive):
		return "Account is inactive."
	case errors.Is(err, ErrIdentifierTaken):
		var taken *IdentifierTakenError
		if errors.As(err, &taken) {
			return fmt.Sprintf("That %s is already in use.", taken.Kind)
		}
		return "That identifier is already in use."
	case errors.Is(err, ErrPasswordPolicy):
		return "Password does not meet the security requirements."
	case errors.Is(err, ErrPasswordReuse):
		return "New password must be different from the current password."
	case errors.Is(err, ErrTokenExpired):
		return "Session expired. Please sign in again."
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrSessionInvalidated),
		errors.Is(err, ErrRefreshTokenMismatch):
		return "Session is no longer valid. Please sign in again."
	case errors.Is(err, ErrStoreUnavailable):
		return "Service temporarily unavailable. Try again shortly."
	default:
		return "Something went wrong. Try again shortly."
	}
}
