package authcore

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// fileConfig mirrors Config with yaml/env tags for cleanenv. Secrets are
// read as strings and never echoed back.
type fileConfig struct {
	Token struct {
		AccessSecret  string        `yaml:"access_secret" env:"AUTHCORE_ACCESS_SECRET"`
		RefreshSecret string        `yaml:"refresh_secret" env:"AUTHCORE_REFRESH_SECRET"`
		AccessTTL     time.Duration `yaml:"access_ttl" env:"AUTHCORE_ACCESS_TTL"`
		RefreshTTL    time.Duration `yaml:"refresh_ttl" env:"AUTHCORE_REFRESH_TTL"`
		Issuer        string        `yaml:"issuer" env:"AUTHCORE_TOKEN_ISSUER"`
		Audience      string        `yaml:"audience" env:"AUTHCORE_TOKEN_AUDIENCE"`
		Leeway        time.Duration `yaml:"leeway" env:"AUTHCORE_TOKEN_LEEWAY"`
	} `yaml:"token"`
	Password struct {
		Memory        uint32 `yaml:"memory_kib" env:"AUTHCORE_ARGON_MEMORY_KIB"`
		Time          uint32 `yaml:"time" env:"AUTHCORE_ARGON_TIME"`
		Parallelism   uint8  `yaml:"parallelism" env:"AUTHCORE_ARGON_PARALLELISM"`
		RehashOnLogin bool   `yaml:"rehash_on_login" env:"AUTHCORE_REHASH_ON_LOGIN"`
	} `yaml:"password"`
	Lockout struct {
		Threshold int           `yaml:"threshold" env:"AUTHCORE_LOCKOUT_THRESHOLD"`
		Duration  time.Duration `yaml:"duration" env:"AUTHCORE_LOCKOUT_DURATION"`
	} `yaml:"lockout"`
	Audit struct {
		Enabled    bool `yaml:"enabled" env:"AUTHCORE_AUDIT_ENABLED"`
		BufferSize int  `yaml:"buffer_size" env:"AUTHCORE_AUDIT_BUFFER"`
		DropIfFull bool `yaml:"drop_if_full" env:"AUTHCORE_AUDIT_DROP_IF_FULL"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled bool `yaml:"enabled" env:"AUTHCORE_METRICS_ENABLED"`
	} `yaml:"metrics"`
}

// LoadConfig reads configuration from a YAML file, then overlays
// environment variables. An empty path skips the file and reads the
// environment only.
func LoadConfig(path string) (Config, error) {
	var fc fileConfig
	if path != "" {
		if err := cleanenv.ReadConfig(path, &fc); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&fc); err != nil {
		return Config{}, fmt.Errorf("read config from environment: %w", err)
	}

	cfg := Config{
		Token: TokenConfig{
			AccessSecret:  []byte(fc.Token.AccessSecret),
			RefreshSecret: []byte(fc.Token.RefreshSecret),
			AccessTTL:     fc.Token.AccessTTL,
			RefreshTTL:    fc.Token.RefreshTTL,
			Issuer:        fc.Token.Issuer,
			Audience:      fc.Token.Audience,
			Leeway:        fc.Token.Leeway,
		},
		Password: PasswordConfig{
			Memory:        fc.Password.Memory,
			Time:          fc.Password.Time,
			Parallelism:   fc.Password.Parallelism,
			RehashOnLogin: fc.Password.RehashOnLogin,
		},
		Lockout: LockoutConfig(fc.Lockout),
		Audit:   AuditConfig(fc.Audit),
		Metrics: MetricsConfig(fc.Metrics),
	}
	return cfg, nil
}
