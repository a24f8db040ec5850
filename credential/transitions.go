package credential

import (
	"errors"
	"time"

	"github.com/taskforge/authcore/password"
)

// passwordChangedAtSkew backdates PasswordChangedAt so a token issued in the
// same instant as a password change still validates. The value is inherited
// from the system this models; deriving it from store write-visibility
// latency instead is an open question.
const passwordChangedAtSkew = time.Second

// LockoutPolicy controls the brute-force lockout transition.
type LockoutPolicy struct {
	Threshold int           // consecutive failures before the account locks
	Duration  time.Duration // how long a triggered lock lasts
}

// DefaultLockoutPolicy locks an account for two hours after five
// consecutive failed logins.
var DefaultLockoutPolicy = LockoutPolicy{Threshold: 5, Duration: 2 * time.Hour}

// Store hashes and verifies passwords and applies the pure state
// transitions on a Record. It never loads or persists records itself.
type Store struct {
	hasher  *password.Hasher
	lockout LockoutPolicy
}

// NewStore builds a Store around an argon2 hasher and a lockout policy.
func NewStore(hasher *password.Hasher, lockout LockoutPolicy) (*Store, error) {
	if hasher == nil {
		return nil, errors.New("credential: nil hasher")
	}
	if lockout.Threshold <= 0 {
		return nil, errors.New("credential: lockout threshold must be positive")
	}
	if lockout.Duration <= 0 {
		return nil, errors.New("credential: lockout duration must be positive")
	}
	return &Store{hasher: hasher, lockout: lockout}, nil
}

// Hash derives a fresh salted hash for plaintext.
func (s *Store) Hash(plaintext string) (string, error) {
	return s.hasher.Hash(plaintext)
}

// Verify compares plaintext against a stored hash in constant time.
func (s *Store) Verify(plaintext, hash string) (bool, error) {
	return s.hasher.Verify(plaintext, hash)
}

// NeedsRehash reports whether hash was produced with parameters weaker
// than the store's current ones.
func (s *Store) NeedsRehash(hash string) (bool, error) {
	return s.hasher.NeedsRehash(hash)
}

// IsLocked reports whether the record is under an active lockout at now.
// An expired LockedUntil counts as unlocked even before a transition
// clears it.
func (s *Store) IsLocked(r Record, now time.Time) bool {
	return r.LockedUntil != nil && r.LockedUntil.After(now)
}

// RecordFailure applies one failed login attempt. An expired lock resets
// the counter to 1 and clears LockedUntil first; otherwise the counter
// increments. Reaching the threshold on an unlocked record sets
// LockedUntil = now + lockout duration.
func (s *Store) RecordFailure(r Record, now time.Time) Record {
	if r.LockedUntil != nil && !r.LockedUntil.After(now) {
		r.FailedAttempts = 1
		r.LockedUntil = nil
	} else {
		r.FailedAttempts++
	}

	if r.FailedAttempts >= s.lockout.Threshold && r.LockedUntil == nil {
		until := now.Add(s.lockout.Duration)
		r.LockedUntil = &until
	}
	return r
}

// ResetFailures zeroes the counter and clears any lockout; applied on
// successful login and on explicit unlock.
func (s *Store) ResetFailures(r Record) Record {
	r.FailedAttempts = 0
	r.LockedUntil = nil
	return r
}

// OnPasswordChanged stamps PasswordChangedAt for a replaced hash on an
// existing record. Never applied at first creation.
func (s *Store) OnPasswordChanged(r Record, now time.Time) Record {
	changed := now.Add(-passwordChangedAtSkew)
	r.PasswordChangedAt = &changed
	return r
}

// PasswordChangedAfter reports whether the password changed strictly after
// issuedAt, compared at epoch-second resolution to match token claim
// precision.
func (s *Store) PasswordChangedAfter(r Record, issuedAt time.Time) bool {
	return r.PasswordChangedAt != nil && r.PasswordChangedAt.Unix() > issuedAt.Unix()
}
