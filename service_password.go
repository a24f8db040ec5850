package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskforge/authcore/credential"
	"github.com/taskforge/authcore/password"
)

// ChangePassword rotates an account's password after verifying the
// current one. Tokens issued before the change stop validating; the
// active refresh token is revoked outright. The change timestamp is
// backdated by one second so a token minted in the same second as the
// change is not spuriously invalidated.
func (s *Service) ChangePassword(ctx context.Context, accountID, current, next string) error {
	if err := s.ready(); err != nil {
		return err
	}

	rec, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}

	ok, err := s.creds.Verify(current, rec.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.metrics.Inc(MetricPasswordChangeRejected)
		s.emitAudit(ctx, AuditPasswordChange, rec.ID, false, ReasonWrongPassword, nil)
		return ErrInvalidCredentials
	}

	if next == current {
		s.metrics.Inc(MetricPasswordChangeRejected)
		s.emitAudit(ctx, AuditPasswordChange, rec.ID, false, ReasonReuse, nil)
		return ErrPasswordReuse
	}
	if res := password.Evaluate(next); !res.Valid {
		s.metrics.Inc(MetricPasswordChangeRejected)
		s.emitAudit(ctx, AuditPasswordChange, rec.ID, false, ReasonPolicy, nil)
		return &ValidationError{Violations: res.Violations}
	}

	hash, err := s.creds.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	err = s.mutate(ctx, rec, func(r *credential.Record) {
		r.PasswordHash = hash
		*r = s.creds.OnPasswordChanged(*r, now)
		r.RefreshToken = ""
	})
	if err != nil {
		return fmt.Errorf("persist password change: %w", err)
	}

	s.metrics.Inc(MetricPasswordChangeSuccess)
	s.emitAudit(ctx, AuditPasswordChange, rec.ID, true, "", nil)
	return nil
}
