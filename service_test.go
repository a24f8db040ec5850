package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(testServiceConfig(), nil); err == nil {
		t.Fatal("New accepted nil store")
	}

	cfg := testServiceConfig()
	cfg.Token.AccessSecret = nil
	if _, err := New(cfg, newMemStore()); err == nil {
		t.Fatal("New accepted missing secret")
	}

	cfg = testServiceConfig()
	cfg.Token.AccessTTL = 48 * time.Hour
	if _, err := New(cfg, newMemStore()); err == nil {
		t.Fatal("New accepted access TTL above refresh TTL")
	}
}

func TestServiceRejectsAfterClose(t *testing.T) {
	svc := newTestService(t, newMemStore(), newFakeClock())
	registerTestAccount(t, svc)
	svc.Close()

	if _, err := svc.Login(context.Background(), "alice", testPassword); !errors.Is(err, ErrServiceNotReady) {
		t.Fatalf("err = %v, want ErrServiceNotReady", err)
	}
	// Close is idempotent.
	svc.Close()
}

func TestSaveConflictRetriedOnce(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, newFakeClock())
	acct, _ := registerTestAccount(t, svc)

	// A concurrent writer bumps the version right before the first Save,
	// exactly once. The operation must recover transparently.
	fired := false
	store.beforeSave = func() {
		if !fired {
			fired = true
			store.bumpVersion(acct.ID)
		}
	}

	if err := svc.Logout(context.Background(), acct.ID); err != nil {
		t.Fatalf("Logout under conflict: %v", err)
	}
	if got := svc.MetricsSnapshot().Counters[MetricStoreConflictRetry]; got != 1 {
		t.Fatalf("conflict retries = %d, want 1", got)
	}
}

func TestSaveConflictSecondFailurePropagates(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, newFakeClock())
	acct, _ := registerTestAccount(t, svc)

	store.beforeSave = func() {
		store.bumpVersion(acct.ID)
	}

	if err := svc.Logout(context.Background(), acct.ID); err == nil {
		t.Fatal("Logout succeeded despite persistent conflicts")
	}
}

func TestMetricsCountOperations(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, newFakeClock())
	registerTestAccount(t, svc)

	_, _ = svc.Login(context.Background(), "alice", testPassword)
	_, _ = svc.Login(context.Background(), "alice", "Wrong-Password-7!")
	_, _ = svc.Login(context.Background(), "nobody", "Wrong-Password-7!")

	snap := svc.MetricsSnapshot()
	if snap.Counters[MetricRegisterSuccess] != 1 {
		t.Errorf("register successes = %d, want 1", snap.Counters[MetricRegisterSuccess])
	}
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Errorf("login successes = %d, want 1", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 2 {
		t.Errorf("login failures = %d, want 2", snap.Counters[MetricLoginFailure])
	}
}

func TestAuditTrailPreservesFailureReasons(t *testing.T) {
	store := newMemStore()
	sink := NewChannelSink(64)

	cfg := testServiceConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 64}
	svc, err := New(cfg, store, WithClock(newFakeClock()), WithAuditSink(sink))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	registerTestAccount(t, svc)

	_, _ = svc.Login(context.Background(), "nobody", testPassword)
	_, _ = svc.Login(context.Background(), "alice", "Wrong-Password-7!")
	svc.Close()

	reasons := map[string]bool{}
	for {
		select {
		case ev := <-sink.Events():
			if ev.Action == AuditLogin && !ev.Success {
				reasons[ev.Reason] = true
			}
			continue
		default:
		}
		break
	}

	// The API collapses both cases into invalid credentials; the audit
	// trail must keep them apart.
	if !reasons[ReasonUnknownIdentifier] || !reasons[ReasonWrongPassword] {
		t.Fatalf("missing reasons, got %v", reasons)
	}
}

func TestGetAccountView(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, newFakeClock())
	acct, _ := registerTestAccount(t, svc)

	got, err := svc.GetAccount(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Email != "alice@example.com" || got.Username != "alice" || !got.Active {
		t.Fatalf("unexpected view: %+v", got)
	}
	if _, err := svc.GetAccount(context.Background(), "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestPublicMessageNeverLeaksInternals(t *testing.T) {
	errs := []error{
		ErrInvalidCredentials,
		&LockedError{Until: time.Now()},
		ErrAccountInactive,
		&IdentifierTakenError{Kind: "email"},
		ErrPasswordPolicy,
		ErrPasswordReuse,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrSessionInvalidated,
		ErrRefreshTokenMismatch,
		ErrStoreUnavailable,
		errors.New("dial tcp 10.0.0.4:6379: connection refused"),
	}
	for _, err := range errs {
		msg := PublicMessage(err)
		if msg == "" || msg == err.Error() {
			t.Errorf("PublicMessage(%v) = %q", err, msg)
		}
	}
	if PublicMessage(nil) != "" {
		t.Error("PublicMessage(nil) not empty")
	}
}
