package authcore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/taskforge/authcore/credential"
	"github.com/taskforge/authcore/internal/audit"
	"github.com/taskforge/authcore/password"
	"github.com/taskforge/authcore/token"
)

// Service orchestrates registration, login, token lifecycle, and account
// administration on top of a [RecordStore]. All dependencies are fixed at
// construction; a Service is safe for concurrent use.
type Service struct {
	cfg     Config
	store   RecordStore
	creds   *credential.Store
	issuer  *token.Issuer
	clock   Clock
	metrics *Metrics
	audit   *audit.Dispatcher
	closed  atomic.Bool
}

// Option adjusts Service construction.
type Option func(*options)

type options struct {
	clock Clock
	sink  AuditSink
}

// WithClock substitutes the time source. Tests use this to step through
// lockout windows and token expiry.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithAuditSink sets the destination for audit events. Ignored unless
// auditing is enabled in the config.
func WithAuditSink(sink AuditSink) Option {
	return func(o *options) { o.sink = sink }
}

// New validates the config and wires the service. The returned Service
// owns the audit dispatcher; call Close to flush it on shutdown.
func New(cfg Config, store RecordStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("authcore: nil record store")
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := options{clock: SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("authcore: password hasher: %w", err)
	}

	creds, err := credential.NewStore(hasher, credential.LockoutPolicy{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("authcore: credential store: %w", err)
	}

	s := &Service{
		cfg:     cfg,
		store:   store,
		creds:   creds,
		clock:   o.clock,
		metrics: NewMetrics(cfg.Metrics),
	}

	s.issuer, err = token.New(token.Config{
		AccessSecret:  cfg.Token.AccessSecret,
		RefreshSecret: cfg.Token.RefreshSecret,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Leeway:        cfg.Token.Leeway,
		Now:           s.clock.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("authcore: token issuer: %w", err)
	}

	s.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, o.sink)

	return s, nil
}

// Close flushes and stops the audit dispatcher. The Service rejects all
// operations afterwards.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.closed.Store(true)
	s.audit.Close()
}

func (s *Service) ready() error {
	if s == nil || s.store == nil || s.closed.Load() {
		return ErrServiceNotReady
	}
	return nil
}

// MetricsSnapshot exposes the current counter values for exporters.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// AuditDropped reports audit events discarded under backpressure.
func (s *Service) AuditDropped() uint64 {
	return s.audit.Dropped()
}

// issueTokens mints a fresh pair and records the refresh token on the
// record as the single active one.
func (s *Service) issueTokens(r *credential.Record) (TokenPair, error) {
	access, err := s.issuer.IssueAccess(r.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.issuer.IssueRefresh(r.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	r.RefreshToken = refresh
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// mutate applies a state transition and saves it, retrying exactly once
// when a concurrent writer advanced the record's version first. The apply
// function must be re-runnable against the reloaded state.
func (s *Service) mutate(ctx context.Context, rec *credential.Record, apply func(*credential.Record)) error {
	apply(rec)
	err := s.store.Save(ctx, rec)
	if err == nil || !errors.Is(err, credential.ErrConflict) {
		return err
	}

	s.metrics.Inc(MetricStoreConflictRetry)
	fresh, ferr := s.store.FindByID(ctx, rec.ID)
	if ferr != nil {
		return ferr
	}
	apply(fresh)
	if err := s.store.Save(ctx, fresh); err != nil {
		return err
	}
	*rec = *fresh
	return nil
}
