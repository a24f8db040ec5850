// Package token signs and verifies the two token classes: short-lived
// access tokens presented on every request, and longer-lived refresh tokens
// used only to mint new access tokens. Each class is signed HMAC-SHA-256
// under its own secret, so a token of one class can never verify as the
// other.
package token

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Class tags a token's role in its claims as a second line of defense
// behind the per-class secrets.
type Class string

const (
	ClassAccess  Class = "access"
	ClassRefresh Class = "refresh"
)

var (
	// ErrMalformed is returned for tokens that do not parse as JWTs or
	// carry the wrong class claim.
	ErrMalformed = errors.New("malformed token")

	// ErrSignature is returned when a token parses but its signature does
	// not verify under the expected class secret.
	ErrSignature = errors.New("token signature invalid")

	// ErrExpired is returned for correctly signed tokens past their expiry.
	ErrExpired = errors.New("token expired")
)

const (
	minSecretLen = 32
	maxLeeway    = 2 * time.Minute
)

// Config holds the two signing contexts plus the claim values checked on
// every verification. Now is injectable for deterministic expiry tests and
// defaults to time.Now.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
	Now           func() time.Time
}

// Claims is the payload carried by both token classes: the account id as
// subject plus the standard issuer/audience/iat/exp set.
type Claims struct {
	Class Class `json:"cls"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies both token classes. Immutable after New;
// safe for concurrent use.
type Issuer struct {
	cfg Config
}

// New validates the configuration and returns a ready Issuer. The two
// secrets must be distinct: equal secrets would let a refresh token verify
// as an access token.
func New(cfg Config) (*Issuer, error) {
	if len(cfg.AccessSecret) < minSecretLen || len(cfg.RefreshSecret) < minSecretLen {
		return nil, fmt.Errorf("token secrets must be at least %d bytes", minSecretLen)
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("token leeway out of range")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("token issuer and audience are required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{cfg: cfg}, nil
}

// IssueAccess signs a fresh access token for the subject account.
func (i *Issuer) IssueAccess(subject string) (string, error) {
	return i.issue(subject, ClassAccess, i.cfg.AccessSecret, i.cfg.AccessTTL)
}

// IssueRefresh signs a fresh refresh token for the subject account.
func (i *Issuer) IssueRefresh(subject string) (string, error) {
	return i.issue(subject, ClassRefresh, i.cfg.RefreshSecret, i.cfg.RefreshTTL)
}

// VerifyAccess checks an access token and returns its claims; the failure
// mode distinguishes malformed, bad-signature, and expired tokens.
func (i *Issuer) VerifyAccess(tokenStr string) (*Claims, error) {
	return i.verify(tokenStr, ClassAccess, i.cfg.AccessSecret)
}

// VerifyRefresh checks a refresh token and returns its claims.
func (i *Issuer) VerifyRefresh(tokenStr string) (*Claims, error) {
	return i.verify(tokenStr, ClassRefresh, i.cfg.RefreshSecret)
}

func (i *Issuer) issue(subject string, class Class, secret []byte, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("empty token subject")
	}

	now := i.cfg.Now()
	claims := Claims{
		Class: class,
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique per token: two tokens for the same subject in the
			// same second must still be distinguishable.
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (i *Issuer) verify(tokenStr string, class Class, secret []byte) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.cfg.Now),
	}
	if i.cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.cfg.Leeway))
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, options...)
	if err != nil {
		return nil, classifyError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.Class != class {
		return nil, fmt.Errorf("%w: wrong token class", ErrMalformed)
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing claims", ErrMalformed)
	}
	return claims, nil
}

// classifyError collapses golang-jwt's error chain into the three outcomes
// callers branch on. Expiry wins over other claim errors so callers can
// offer a silent refresh.
func classifyError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
