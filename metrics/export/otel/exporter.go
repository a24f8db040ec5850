package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskforge/authcore"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter observes. *authcore.Service satisfies it.
type Source interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   authcore.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{authcore.MetricRegisterSuccess, "authcore_register_success_total", "Successful account registrations."},
	{authcore.MetricRegisterDuplicate, "authcore_register_duplicate_total", "Registrations rejected for a taken identifier."},
	{authcore.MetricRegisterPolicyRejected, "authcore_register_policy_rejected_total", "Registrations rejected by password policy."},
	{authcore.MetricLoginSuccess, "authcore_login_success_total", "Successful logins."},
	{authcore.MetricLoginFailure, "authcore_login_failure_total", "Failed logins (unknown identifier or wrong password)."},
	{authcore.MetricLoginLocked, "authcore_login_locked_total", "Logins rejected during an active lockout window."},
	{authcore.MetricAccountLocked, "authcore_account_locked_total", "Lockout windows opened."},
	{authcore.MetricRefreshSuccess, "authcore_refresh_success_total", "Successful access token refreshes."},
	{authcore.MetricRefreshFailure, "authcore_refresh_failure_total", "Refresh attempts with invalid or expired tokens."},
	{authcore.MetricRefreshSuperseded, "authcore_refresh_superseded_total", "Refresh attempts with a superseded token."},
	{authcore.MetricAuthenticateSuccess, "authcore_authenticate_success_total", "Successful access token validations."},
	{authcore.MetricAuthenticateFailure, "authcore_authenticate_failure_total", "Failed access token validations."},
	{authcore.MetricSessionInvalidated, "authcore_session_invalidated_total", "Tokens rejected after a password change."},
	{authcore.MetricPasswordChangeSuccess, "authcore_password_change_success_total", "Successful password changes."},
	{authcore.MetricPasswordChangeRejected, "authcore_password_change_rejected_total", "Rejected password changes."},
	{authcore.MetricPasswordRehash, "authcore_password_rehash_total", "Hashes upgraded to current parameters on login."},
	{authcore.MetricLogout, "authcore_logout_total", "Logouts."},
	{authcore.MetricStoreConflictRetry, "authcore_store_conflict_retry_total", "Optimistic concurrency conflicts retried."},
}

type observedCounter struct {
	id         authcore.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter observes a Source through a registered OTel callback.
type Exporter struct {
	source       Source
	registration metric.Registration
	counters     []observedCounter
	auditDropped metric.Int64ObservableCounter
}

func NewExporter(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}
	observables := make([]metric.Observable, 0, len(counterDefs)+1)

	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	dropped, err := meter.Int64ObservableCounter(
		"authcore_audit_dropped_total",
		metric.WithDescription("Audit events discarded under dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	e.registration, err = meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := e.source.MetricsSnapshot()
		for _, c := range e.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	return e, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
