package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskforge/authcore/credential"
	"github.com/taskforge/authcore/token"
)

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is retained: the account keeps a single active
// refresh token until the next login or logout. A token superseded by a
// newer login is rejected, as is one issued before a password change.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if err := s.ready(); err != nil {
		return TokenPair{}, err
	}

	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		s.metrics.Inc(MetricRefreshFailure)
		if errors.Is(err, token.ErrExpired) {
			s.emitAudit(ctx, AuditRefresh, "", false, ReasonTokenExpired, nil)
			return TokenPair{}, ErrTokenExpired
		}
		s.emitAudit(ctx, AuditRefresh, "", false, ReasonTokenInvalid, nil)
		return TokenPair{}, ErrTokenInvalid
	}

	rec, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			s.metrics.Inc(MetricRefreshFailure)
			s.emitAudit(ctx, AuditRefresh, claims.Subject, false, ReasonTokenInvalid, nil)
			return TokenPair{}, ErrTokenInvalid
		}
		return TokenPair{}, fmt.Errorf("find account: %w", err)
	}

	if !rec.Active {
		s.metrics.Inc(MetricRefreshFailure)
		s.emitAudit(ctx, AuditRefresh, rec.ID, false, ReasonInactive, nil)
		return TokenPair{}, ErrAccountInactive
	}
	if rec.RefreshToken != refreshToken {
		s.metrics.Inc(MetricRefreshSuperseded)
		s.emitAudit(ctx, AuditRefresh, rec.ID, false, ReasonSuperseded, nil)
		return TokenPair{}, ErrRefreshTokenMismatch
	}
	if s.creds.PasswordChangedAfter(*rec, claims.IssuedAt.Time) {
		s.metrics.Inc(MetricSessionInvalidated)
		s.emitAudit(ctx, AuditRefresh, rec.ID, false, ReasonPasswordChanged, nil)
		return TokenPair{}, ErrSessionInvalidated
	}

	access, err := s.issuer.IssueAccess(rec.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	s.metrics.Inc(MetricRefreshSuccess)
	s.emitAudit(ctx, AuditRefresh, rec.ID, true, "", nil)
	return TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}
