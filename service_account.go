package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskforge/authcore/credential"
)

// Logout revokes the account's active refresh token. Outstanding access
// tokens stay valid until they expire.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	if err := s.ready(); err != nil {
		return err
	}

	rec, err := s.findByID(ctx, accountID)
	if err != nil {
		return err
	}

	err = s.mutate(ctx, rec, func(r *credential.Record) {
		r.RefreshToken = ""
	})
	if err != nil {
		return fmt.Errorf("persist logout: %w", err)
	}

	s.metrics.Inc(MetricLogout)
	s.emitAudit(ctx, AuditLogout, rec.ID, true, "", nil)
	return nil
}

// UnlockAccount clears the lockout window and failure counter ahead of
// schedule. Administrative; no password check.
func (s *Service) UnlockAccount(ctx context.Context, accountID string) error {
	if err := s.ready(); err != nil {
		return err
	}

	rec, err := s.findByID(ctx, accountID)
	if err != nil {
		return err
	}

	err = s.mutate(ctx, rec, func(r *credential.Record) {
		*r = s.creds.ResetFailures(*r)
	})
	if err != nil {
		return fmt.Errorf("persist unlock: %w", err)
	}

	s.emitAudit(ctx, AuditAccountUnlocked, rec.ID, true, "", nil)
	return nil
}

// SetActive enables or disables an account. Deactivation also revokes the
// active refresh token so the account cannot silently re-enter.
func (s *Service) SetActive(ctx context.Context, accountID string, active bool) error {
	if err := s.ready(); err != nil {
		return err
	}

	rec, err := s.findByID(ctx, accountID)
	if err != nil {
		return err
	}
	if rec.Active == active {
		return nil
	}

	err = s.mutate(ctx, rec, func(r *credential.Record) {
		r.Active = active
		if !active {
			r.RefreshToken = ""
		}
	})
	if err != nil {
		return fmt.Errorf("persist status change: %w", err)
	}

	s.emitAudit(ctx, AuditStatusChange, rec.ID, true, "", map[string]string{
		"active": fmt.Sprintf("%t", active),
	})
	return nil
}

// GetAccount returns the caller-facing view of an account.
func (s *Service) GetAccount(ctx context.Context, accountID string) (Account, error) {
	if err := s.ready(); err != nil {
		return Account{}, err
	}
	rec, err := s.findByID(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	return accountView(rec), nil
}

func (s *Service) findByID(ctx context.Context, accountID string) (*credential.Record, error) {
	rec, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return rec, nil
}
