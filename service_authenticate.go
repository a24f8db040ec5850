package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskforge/authcore/credential"
	"github.com/taskforge/authcore/token"
)

// Authenticate validates an access token and returns the account it was
// issued for. Tokens signed before the account's last password change are
// rejected even when their signature and expiry check out, and an active
// lockout window rejects the token for its duration.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Account, error) {
	if err := s.ready(); err != nil {
		return Account{}, err
	}

	claims, err := s.issuer.VerifyAccess(accessToken)
	if err != nil {
		s.metrics.Inc(MetricAuthenticateFailure)
		if errors.Is(err, token.ErrExpired) {
			s.emitAudit(ctx, AuditAuthenticate, "", false, ReasonTokenExpired, nil)
			return Account{}, ErrTokenExpired
		}
		s.emitAudit(ctx, AuditAuthenticate, "", false, ReasonTokenInvalid, nil)
		return Account{}, ErrTokenInvalid
	}

	rec, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			s.metrics.Inc(MetricAuthenticateFailure)
			s.emitAudit(ctx, AuditAuthenticate, claims.Subject, false, ReasonTokenInvalid, nil)
			return Account{}, ErrTokenInvalid
		}
		return Account{}, fmt.Errorf("find account: %w", err)
	}

	if !rec.Active {
		s.metrics.Inc(MetricAuthenticateFailure)
		s.emitAudit(ctx, AuditAuthenticate, rec.ID, false, ReasonInactive, nil)
		return Account{}, ErrAccountInactive
	}
	if s.creds.IsLocked(*rec, s.clock.Now()) {
		s.metrics.Inc(MetricAuthenticateFailure)
		s.emitAudit(ctx, AuditAuthenticate, rec.ID, false, ReasonLocked, nil)
		return Account{}, &LockedError{Until: *rec.LockedUntil}
	}
	if s.creds.PasswordChangedAfter(*rec, claims.IssuedAt.Time) {
		s.metrics.Inc(MetricSessionInvalidated)
		s.emitAudit(ctx, AuditAuthenticate, rec.ID, false, ReasonPasswordChanged, nil)
		return Account{}, ErrSessionInvalidated
	}

	s.metrics.Inc(MetricAuthenticateSuccess)
	return accountView(rec), nil
}
