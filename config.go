package authcore

import (
	"errors"
	"time"
)

// Config assembles every tunable of the service. Zero values get safe
// defaults from normalize; only the two token secrets are mandatory.
type Config struct {
	Token    TokenConfig
	Password PasswordConfig
	Lockout  LockoutConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig drives token signing. The access and refresh secrets must
// be distinct high-entropy byte strings of at least 32 bytes.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries argon2id parameters. Memory is in KiB. With
// RehashOnLogin set, a successful login against a hash produced with
// weaker parameters transparently rehashes under the current ones.
type PasswordConfig struct {
	Memory        uint32
	Time          uint32
	Parallelism   uint8
	SaltLength    uint32
	KeyLength     uint32
	RehashOnLogin bool
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls the failed-login lockout window.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

const (
	defaultAccessTTL   = 15 * time.Minute
	defaultRefreshTTL  = 30 * 24 * time.Hour
	defaultIssuer      = "authcore"
	defaultAudience    = "authcore"
	defaultAuditBuffer = 256
)

func (c *Config) normalize() {
	if c.Token.AccessTTL == 0 {
		c.Token.AccessTTL = defaultAccessTTL
	}
	if c.Token.RefreshTTL == 0 {
		c.Token.RefreshTTL = defaultRefreshTTL
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = defaultIssuer
	}
	if c.Token.Audience == "" {
		c.Token.Audience = defaultAudience
	}
	if c.Password.Memory == 0 && c.Password.Time == 0 && c.Password.Parallelism == 0 {
		c.Password.Memory = 64 * 1024
		c.Password.Time = 3
		c.Password.Parallelism = 2
	}
	if c.Password.SaltLength == 0 {
		c.Password.SaltLength = 16
	}
	if c.Password.KeyLength == 0 {
		c.Password.KeyLength = 32
	}
	if c.Lockout.Threshold == 0 {
		c.Lockout.Threshold = 5
	}
	if c.Lockout.Duration == 0 {
		c.Lockout.Duration = 2 * time.Hour
	}
	if c.Audit.Enabled && c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = defaultAuditBuffer
	}
}

func (c *Config) validate() error {
	if len(c.Token.AccessSecret) == 0 || len(c.Token.RefreshSecret) == 0 {
		return errors.New("config: token secrets are required")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("config: access TTL must be shorter than refresh TTL")
	}
	if c.Lockout.Threshold < 1 {
		return errors.New("config: lockout threshold must be at least 1")
	}
	if c.Lockout.Duration < 0 {
		return errors.New("config: lockout duration must not be negative")
	}
	return nil
}
