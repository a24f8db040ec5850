package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/taskforge/authcore/credential"
)

// Login verifies an identifier/password pair and issues a fresh token
// pair, superseding any previously issued refresh token. Unknown
// identifiers and wrong passwords both surface as ErrInvalidCredentials;
// the audit event keeps the real reason.
func (s *Service) Login(ctx context.Context, identifier, plaintext string) (TokenPair, error) {
	if err := s.ready(); err != nil {
		return TokenPair{}, err
	}

	rec, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			s.metrics.Inc(MetricLoginFailure)
			s.emitAudit(ctx, AuditLogin, "", false, ReasonUnknownIdentifier, nil)
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("find account: %w", err)
	}

	now := s.clock.Now()
	if s.creds.IsLocked(*rec, now) {
		s.metrics.Inc(MetricLoginLocked)
		s.emitAudit(ctx, AuditLogin, rec.ID, false, ReasonLocked, nil)
		return TokenPair{}, &LockedError{Until: *rec.LockedUntil}
	}
	if !rec.Active {
		s.metrics.Inc(MetricLoginFailure)
		s.emitAudit(ctx, AuditLogin, rec.ID, false, ReasonInactive, nil)
		return TokenPair{}, ErrAccountInactive
	}

	ok, err := s.creds.Verify(plaintext, rec.PasswordHash)
	if err != nil {
		return TokenPair{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return TokenPair{}, s.recordLoginFailure(ctx, rec, now)
	}

	return s.completeLogin(ctx, rec, plaintext)
}

// recordLoginFailure persists the failed attempt and, on crossing the
// threshold, opens the lockout window. The response for the crossing
// attempt is still ErrInvalidCredentials; only later attempts see the
// lock.
func (s *Service) recordLoginFailure(ctx context.Context, rec *credential.Record, now time.Time) error {
	err := s.mutate(ctx, rec, func(r *credential.Record) {
		*r = s.creds.RecordFailure(*r, now)
	})
	if err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}

	s.metrics.Inc(MetricLoginFailure)
	s.emitAudit(ctx, AuditLogin, rec.ID, false, ReasonWrongPassword, map[string]string{
		"failed_attempts": strconv.Itoa(rec.FailedAttempts),
	})
	if s.creds.IsLocked(*rec, now) {
		s.metrics.Inc(MetricAccountLocked)
		s.emitAudit(ctx, AuditAccountLocked, rec.ID, false, ReasonLocked, map[string]string{
			"locked_until": rec.LockedUntil.Format(time.RFC3339),
		})
	}
	return ErrInvalidCredentials
}

// completeLogin resets the failure counter, optionally rehashes the
// password under current parameters, and persists the new refresh token.
func (s *Service) completeLogin(ctx context.Context, rec *credential.Record, plaintext string) (TokenPair, error) {
	newHash := ""
	if s.cfg.Password.RehashOnLogin {
		stale, err := s.creds.NeedsRehash(rec.PasswordHash)
		if err == nil && stale {
			if rehashed, herr := s.creds.Hash(plaintext); herr == nil {
				newHash = rehashed
			}
		}
	}

	pair, err := s.issueTokens(rec)
	if err != nil {
		return TokenPair{}, err
	}
	refresh := rec.RefreshToken

	err = s.mutate(ctx, rec, func(r *credential.Record) {
		*r = s.creds.ResetFailures(*r)
		r.RefreshToken = refresh
		if newHash != "" {
			r.PasswordHash = newHash
		}
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("persist login: %w", err)
	}

	if newHash != "" {
		s.metrics.Inc(MetricPasswordRehash)
	}
	s.metrics.Inc(MetricLoginSuccess)
	s.emitAudit(ctx, AuditLogin, rec.ID, true, "", nil)
	return pair, nil
}
