package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no record exists for an id or identifier.
	ErrNotFound = errors.New("credential record not found")

	// ErrConflict is returned by Save when the record changed underneath
	// the caller; reload and reapply the transition.
	ErrConflict = errors.New("credential record version conflict")

	// ErrDuplicate is returned by Create when an identifier or id is
	// already taken; match DuplicateError for which one.
	ErrDuplicate = errors.New("credential record already exists")

	// ErrStoreUnavailable wraps backend transport failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// DuplicateError reports which unique field collided at Create.
type DuplicateError struct {
	Kind IdentifierKind
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("credential record already exists: %s taken", e.Kind)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// createScript refuses to write if either identifier index or the record
// key already exists, then writes the blob, its version counter, and both
// indexes in one atomic step.
const createScript = `
if redis.call("EXISTS", KEYS[3]) == 1 then return "email" end
if redis.call("EXISTS", KEYS[4]) == 1 then return "username" end
if redis.call("EXISTS", KEYS[1]) == 1 then return "id" end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], "1")
redis.call("SET", KEYS[3], ARGV[2])
redis.call("SET", KEYS[4], ARGV[2])
return "ok"
`

// saveScript is a compare-and-swap on the record's version counter. It
// returns -1 when the record is gone, 0 on version mismatch, and the new
// version after a successful swap.
const saveScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then return -1 end
local cur = tonumber(redis.call("GET", KEYS[2]) or "0")
if cur ~= tonumber(ARGV[2]) then return 0 end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], tostring(cur + 1))
return cur + 1
`

var (
	createLua = redis.NewScript(createScript)
	saveLua   = redis.NewScript(saveScript)
)

// RedisStore persists credential records in Redis: one JSON blob and one
// version counter per record, plus one index key per unique identifier.
// Save uses a Lua compare-and-swap on the version counter so concurrent
// read-modify-write cycles on the same account surface as ErrConflict
// instead of losing updates.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore wraps a Redis client; prefix namespaces every key and
// defaults to "ac".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ac"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) recordKey(id string) string  { return s.prefix + ":rec:" + id }
func (s *RedisStore) versionKey(id string) string { return s.prefix + ":ver:" + id }

func (s *RedisStore) indexKey(kind IdentifierKind, value string) string {
	return s.prefix + ":idx:" + string(kind) + ":" + NormalizeIdentifier(value)
}

// storedRecord is the persisted shape; kept separate from Record so the
// exported model carries no serialization concerns and Version stays
// owned by the store.
type storedRecord struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username"`
	PasswordHash      string     `json:"password_hash"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	FailedAttempts    int        `json:"failed_attempts"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	Active            bool       `json:"active"`
	RefreshToken      string     `json:"refresh_token,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func encodeRecord(r *Record) ([]byte, error) {
	return json.Marshal(storedRecord{
		ID:                r.ID,
		Email:             r.Email,
		Username:          r.Username,
		PasswordHash:      r.PasswordHash,
		PasswordChangedAt: r.PasswordChangedAt,
		FailedAttempts:    r.FailedAttempts,
		LockedUntil:       r.LockedUntil,
		Active:            r.Active,
		RefreshToken:      r.RefreshToken,
		CreatedAt:         r.CreatedAt,
	})
}

func decodeRecord(data []byte, version uint64) (*Record, error) {
	var sr storedRecord
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("corrupt credential record: %w", err)
	}
	return &Record{
		ID:                sr.ID,
		Email:             sr.Email,
		Username:          sr.Username,
		PasswordHash:      sr.PasswordHash,
		PasswordChangedAt: sr.PasswordChangedAt,
		FailedAttempts:    sr.FailedAttempts,
		LockedUntil:       sr.LockedUntil,
		Active:            sr.Active,
		RefreshToken:      sr.RefreshToken,
		CreatedAt:         sr.CreatedAt,
		Version:           version,
	}, nil
}

// Create persists a new record and both identifier indexes atomically,
// refusing identifier collisions. The record's Version becomes 1.
func (s *RedisStore) Create(ctx context.Context, r *Record) error {
	blob, err := encodeRecord(r)
	if err != nil {
		return err
	}

	keys := []string{
		s.recordKey(r.ID),
		s.versionKey(r.ID),
		s.indexKey(IdentifierEmail, r.Email),
		s.indexKey(IdentifierUsername, r.Username),
	}
	status, err := createLua.Run(ctx, s.redis, keys, blob, r.ID).Text()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch status {
	case "ok":
		r.Version = 1
		return nil
	case "email":
		return &DuplicateError{Kind: IdentifierEmail}
	case "username":
		return &DuplicateError{Kind: IdentifierUsername}
	default:
		return fmt.Errorf("%w: id taken", ErrDuplicate)
	}
}

// Save replaces an existing record if its stored version still matches
// r.Version; on success r.Version is advanced to the stored value.
func (s *RedisStore) Save(ctx context.Context, r *Record) error {
	blob, err := encodeRecord(r)
	if err != nil {
		return err
	}

	keys := []string{s.recordKey(r.ID), s.versionKey(r.ID)}
	next, err := saveLua.Run(ctx, s.redis, keys, blob, r.Version).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch {
	case next == -1:
		return ErrNotFound
	case next == 0:
		return ErrConflict
	default:
		r.Version = uint64(next)
		return nil
	}
}

// FindByID loads one record by account id.
func (s *RedisStore) FindByID(ctx context.Context, id string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	version, err := s.redis.Get(ctx, s.versionKey(id)).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return decodeRecord(data, version)
}

// FindByIdentifier resolves either identifier, case-insensitively, to its
// record.
func (s *RedisStore) FindByIdentifier(ctx context.Context, identifier string) (*Record, error) {
	for _, kind := range [...]IdentifierKind{IdentifierEmail, IdentifierUsername} {
		id, err := s.redis.Get(ctx, s.indexKey(kind, identifier)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return s.FindByID(ctx, id)
	}
	return nil, ErrNotFound
}

// ExistsByIdentifier reports whether a normalized identifier of the given
// kind is already taken.
func (s *RedisStore) ExistsByIdentifier(ctx context.Context, kind IdentifierKind, value string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.indexKey(kind, value)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}
