package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/taskforge/authcore/credential"
)

// memStore is an in-memory RecordStore with the same optimistic
// concurrency contract as the Redis implementation.
type memStore struct {
	mu       sync.Mutex
	records  map[string]credential.Record
	versions map[string]uint64
	byIdent  map[string]string

	// beforeSave, when set, runs under the lock right before Save checks
	// the version. Tests use it to inject concurrent writers.
	beforeSave func()
}

func newMemStore() *memStore {
	return &memStore{
		records:  make(map[string]credential.Record),
		versions: make(map[string]uint64),
		byIdent:  make(map[string]string),
	}
}

func (m *memStore) Create(_ context.Context, r *credential.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := credential.NormalizeIdentifier(r.Email)
	username := credential.NormalizeIdentifier(r.Username)
	if _, ok := m.byIdent[email]; ok {
		return &credential.DuplicateError{Kind: credential.IdentifierEmail}
	}
	if _, ok := m.byIdent[username]; ok {
		return &credential.DuplicateError{Kind: credential.IdentifierUsername}
	}
	if _, ok := m.records[r.ID]; ok {
		return credential.ErrDuplicate
	}

	r.Version = 1
	m.records[r.ID] = *r
	m.versions[r.ID] = 1
	m.byIdent[email] = r.ID
	m.byIdent[username] = r.ID
	return nil
}

func (m *memStore) Save(_ context.Context, r *credential.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.beforeSave != nil {
		m.beforeSave()
	}
	cur, ok := m.versions[r.ID]
	if !ok {
		return credential.ErrNotFound
	}
	if cur != r.Version {
		return credential.ErrConflict
	}
	r.Version = cur + 1
	m.records[r.ID] = *r
	m.versions[r.ID] = r.Version
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*credential.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, credential.ErrNotFound
	}
	out := rec
	return &out, nil
}

func (m *memStore) FindByIdentifier(_ context.Context, identifier string) (*credential.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byIdent[credential.NormalizeIdentifier(identifier)]
	if !ok {
		return nil, credential.ErrNotFound
	}
	out := m.records[id]
	return &out, nil
}

func (m *memStore) ExistsByIdentifier(_ context.Context, _ credential.IdentifierKind, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.byIdent[credential.NormalizeIdentifier(value)]
	return ok, nil
}

// bumpVersion simulates a concurrent writer advancing the record. Only
// safe from a beforeSave hook, which already holds the lock.
func (m *memStore) bumpVersion(id string) {
	rec := m.records[id]
	m.versions[id]++
	rec.Version = m.versions[id]
	m.records[id] = rec
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testServiceConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessSecret:  []byte("test-access-secret-0123456789abcdef"),
			RefreshSecret: []byte("test-refresh-secret-0123456789abcde"),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		},
		// Deliberately weak argon parameters to keep the suite fast.
		Password: PasswordConfig{Memory: 8192, Time: 1, Parallelism: 1},
		Metrics:  MetricsConfig{Enabled: true},
	}
}

func newTestService(t *testing.T, store RecordStore, clock *fakeClock, opts ...Option) *Service {
	t.Helper()
	opts = append(opts, WithClock(clock))
	svc, err := New(testServiceConfig(), store, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

const testPassword = "Correct-Horse-91!"

func registerTestAccount(t *testing.T, svc *Service) (Account, TokenPair) {
	t.Helper()
	acct, pair, err := svc.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return acct, pair
}
