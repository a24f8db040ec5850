package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskforge/authcore/credential"
	"github.com/taskforge/authcore/password"
)

// Register creates an account and signs the caller in. The password is
// policy-checked before anything touches the store; identifier uniqueness
// is enforced atomically by the store itself, so two concurrent
// registrations of the same email cannot both win.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, TokenPair, error) {
	if err := s.ready(); err != nil {
		return Account{}, TokenPair{}, err
	}

	email := credential.NormalizeIdentifier(in.Email)
	username := credential.NormalizeIdentifier(in.Username)
	if email == "" || username == "" {
		return Account{}, TokenPair{}, errors.New("authcore: email and username are required")
	}

	if res := password.Evaluate(in.Password); !res.Valid {
		s.metrics.Inc(MetricRegisterPolicyRejected)
		s.emitAudit(ctx, AuditRegister, "", false, ReasonPolicy, nil)
		return Account{}, TokenPair{}, &ValidationError{Violations: res.Violations}
	}

	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		return Account{}, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	rec := &credential.Record{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
	}

	pair, err := s.issueTokens(rec)
	if err != nil {
		return Account{}, TokenPair{}, err
	}

	if err := s.store.Create(ctx, rec); err != nil {
		var dup *credential.DuplicateError
		if errors.As(err, &dup) {
			s.metrics.Inc(MetricRegisterDuplicate)
			s.emitAudit(ctx, AuditRegister, "", false, ReasonDuplicate, map[string]string{
				"kind": string(dup.Kind),
			})
			return Account{}, TokenPair{}, &IdentifierTakenError{Kind: dup.Kind}
		}
		return Account{}, TokenPair{}, fmt.Errorf("create account: %w", err)
	}

	s.metrics.Inc(MetricRegisterSuccess)
	s.emitAudit(ctx, AuditRegister, rec.ID, true, "", nil)
	return accountView(rec), pair, nil
}
