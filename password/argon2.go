package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params is the argon2id work factor. Raising any cost field makes stored
// hashes more expensive to brute-force; NeedsRehash reports when a stored
// hash was produced under a weaker configuration.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

const (
	minMemoryKiB   uint32 = 8 * 1024
	minTime        uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	phcAlgorithm = "argon2id"
)

// DefaultParams is a server-grade work factor (64 MiB, t=3, p=2).
var DefaultParams = Params{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher derives and verifies argon2id password hashes in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt-b64>$<key-b64>
//
// Hashing is self-salting: the same input never produces the same output,
// while verification cost stays deterministic for a given Params.
type Hasher struct {
	params Params
}

// NewHasher validates the work factor and returns a ready Hasher.
func NewHasher(p Params) (*Hasher, error) {
	switch {
	case p.Memory < minMemoryKiB:
		return nil, fmt.Errorf("argon2 memory must be >= %d KiB", minMemoryKiB)
	case p.Time < minTime:
		return nil, fmt.Errorf("argon2 time cost must be >= %d", minTime)
	case p.Parallelism < minParallelism:
		return nil, fmt.Errorf("argon2 parallelism must be >= %d", minParallelism)
	case p.SaltLength < minSaltLength:
		return nil, fmt.Errorf("argon2 salt length must be >= %d", minSaltLength)
	case p.KeyLength < minKeyLength:
		return nil, fmt.Errorf("argon2 key length must be >= %d", minKeyLength)
	}
	return &Hasher{params: p}, nil
}

// Hash derives a fresh salted hash of plaintext under the configured work
// factor. Input bytes are used exactly as provided; no Unicode normalization.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify re-derives the key under the parameters stored inside encoded and
// compares in constant time. A malformed encoded hash is an error; a clean
// mismatch is (false, nil).
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	dec, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(plaintext), dec.salt, dec.time, dec.memory, dec.parallelism, uint32(len(dec.key)))
	return subtle.ConstantTimeCompare(key, dec.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced under a weaker work
// factor than the Hasher is configured with.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	dec, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	return dec.memory < h.params.Memory ||
		dec.time < h.params.Time ||
		dec.parallelism < h.params.Parallelism ||
		uint32(len(dec.key)) != h.params.KeyLength, nil
}

type decodedHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func decodePHC(encoded string) (*decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("malformed password hash")
	}
	if parts[1] != phcAlgorithm {
		return nil, fmt.Errorf("unsupported hash algorithm %q", parts[1])
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if !strings.HasPrefix(parts[2], "v=") || err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var dec decodedHash
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("malformed argon2 parameters")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n == 0 {
				return nil, errors.New("malformed argon2 memory parameter")
			}
			dec.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n == 0 {
				return nil, errors.New("malformed argon2 time parameter")
			}
			dec.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n == 0 {
				return nil, errors.New("malformed argon2 parallelism parameter")
			}
			dec.parallelism = uint8(n)
		default:
			return nil, fmt.Errorf("unknown argon2 parameter %q", k)
		}
	}
	if dec.memory == 0 || dec.time == 0 || dec.parallelism == 0 {
		return nil, errors.New("incomplete argon2 parameters")
	}

	if dec.salt, err = base64.StdEncoding.DecodeString(parts[4]); err != nil || len(dec.salt) < int(minSaltLength) {
		return nil, errors.New("malformed argon2 salt")
	}
	if dec.key, err = base64.StdEncoding.DecodeString(parts[5]); err != nil || len(dec.key) == 0 {
		return nil, errors.New("malformed argon2 key")
	}
	return &dec, nil
}
