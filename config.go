package lockana

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/MrEthical07/lockana/cipher"
	"github.com/MrEthical07/lockana/internal/guard"
	"github.com/MrEthical07/lockana/token"
)

// Config is the complete engine configuration. Non-secret values are read from a
// TOML file; key material comes from the environment or key files and is never
// serialized.
type Config struct {
	Token      TokenConfig      `toml:"token"`
	TOTP       TOTPConfig       `toml:"totp"`
	Guard      GuardConfig      `toml:"guard"`
	Permission PermissionConfig `toml:"permission"`
	Encryption EncryptionConfig `toml:"encryption"`
	Audit      AuditConfig      `toml:"audit"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Redis      RedisConfig      `toml:"redis"`
	Database   DatabaseConfig   `toml:"database"`
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
}

// TokenConfig controls session token signing.
type TokenConfig struct {
	SigningMethod string        `toml:"signing_method"`
	SigningSecret []byte        `toml:"-"`
	PrivateKey    []byte        `toml:"-"`
	PublicKey     []byte        `toml:"-"`
	AccessTTL     time.Duration `toml:"access_ttl"`
	Issuer        string        `toml:"issuer"`
	Leeway        time.Duration `toml:"leeway"`
}

// TOTPConfig controls one-time codes.
type TOTPConfig struct {
	Digits                  int    `toml:"digits"`
	SecretBytes             int    `toml:"secret_bytes"`
	MinSecretLength         int    `toml:"min_secret_length"`
	Period                  int    `toml:"period"`
	Skew                    int    `toml:"skew"`
	Algorithm               string `toml:"algorithm"`
	Issuer                  string `toml:"issuer"`
	EnforceReplayProtection bool   `toml:"enforce_replay_protection"`
}

// GuardConfig controls brute-force protection and revocation upkeep.
type GuardConfig struct {
	MaxLoginAttempts        int           `toml:"max_login_attempts"`
	BlockDuration           time.Duration `toml:"block_duration"`
	AttemptWindow           time.Duration `toml:"attempt_window"`
	WhitelistIPs            []string      `toml:"whitelist_ips"`
	KeyPrefix               string        `toml:"key_prefix"`
	RevocationSweepInterval time.Duration `toml:"revocation_sweep_interval"`
}

// PermissionConfig names the reserved roles and the static permission catalog.
// Permissions and Roles are used when no external permission universe is wired.
type PermissionConfig struct {
	AdminRole   string              `toml:"admin_role"`
	DefaultRole string              `toml:"default_role"`
	Permissions []string            `toml:"permissions"`
	Roles       map[string][]string `toml:"roles"`
}

// EncryptionConfig selects the cipher for secrets at rest.
type EncryptionConfig struct {
	Algorithm string `toml:"algorithm"`
	KeyFile   string `toml:"key_file"`
	Key       []byte `toml:"-"`
}

// AuditConfig controls async audit delivery.
type AuditConfig struct {
	Enabled     bool          `toml:"enabled"`
	BufferSize  int           `toml:"buffer_size"`
	DropIfFull  bool          `toml:"drop_if_full"`
	SinkTimeout time.Duration `toml:"sink_timeout"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `toml:"enabled"`
	EnableLatencyHistograms bool `toml:"enable_latency_histograms"`
}

// RedisConfig describes the counter store connection.
type RedisConfig struct {
	Addr        string        `toml:"addr"`
	Password    string        `toml:"-"`
	DB          int           `toml:"db"`
	DialTimeout time.Duration `toml:"dial_timeout"`
}

// DatabaseConfig describes the user database used by the bundled server.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig controls the bundled HTTP server.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	TrustProxy      bool          `toml:"trust_proxy"`
}

// DefaultConfig returns a configuration with production defaults. Key material is
// left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod: string(token.MethodHS256),
			AccessTTL:     30 * time.Minute,
			Issuer:        "lockana",
		},
		TOTP: TOTPConfig{
			Digits:                  6,
			SecretBytes:             20,
			MinSecretLength:         16,
			Period:                  30,
			Skew:                    1,
			Algorithm:               "SHA1",
			Issuer:                  "Lockana",
			EnforceReplayProtection: true,
		},
		Guard: GuardConfig{
			MaxLoginAttempts:        5,
			BlockDuration:           5 * time.Minute,
			KeyPrefix:               "lockana:",
			RevocationSweepInterval: 10 * time.Minute,
		},
		Permission: PermissionConfig{
			AdminRole:   "admin",
			DefaultRole: "user",
			Permissions: []string{"read", "write", "delete", "manage"},
		},
		Encryption: EncryptionConfig{
			Algorithm: cipher.AlgorithmAES,
		},
		Audit: AuditConfig{
			Enabled:     true,
			BufferSize:  1024,
			DropIfFull:  true,
			SinkTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			DialTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "lockana.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningSecret = cloneBytes(cfg.Token.SigningSecret)
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	out.Encryption.Key = cloneBytes(cfg.Encryption.Key)
	out.Guard.WhitelistIPs = append([]string(nil), cfg.Guard.WhitelistIPs...)
	out.Permission.Permissions = append([]string(nil), cfg.Permission.Permissions...)
	if cfg.Permission.Roles != nil {
		out.Permission.Roles = make(map[string][]string, len(cfg.Permission.Roles))
		for k, v := range cfg.Permission.Roles {
			out.Permission.Roles[k] = append([]string(nil), v...)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Environment variables read by LoadConfig. The legacy names are accepted when
// the LOCKANA_ ones are unset.
const (
	EnvJWTSecret       = "LOCKANA_JWT_SECRET"
	EnvJWTAlgorithm    = "LOCKANA_JWT_ALGORITHM"
	EnvEncryptionKey   = "LOCKANA_ENCRYPTION_KEY"
	EnvRedisAddr       = "LOCKANA_REDIS_ADDR"
	EnvRedisPassword   = "LOCKANA_REDIS_PASSWORD"
	EnvDatabaseDSN     = "LOCKANA_DATABASE_DSN"
	envLegacyJWTSecret = "JWT_SECRET_KEY"
	envLegacyJWTAlg    = "JWT_ALGORITHM"
	envLegacySecretKey = "SECRET_KEY"
)

// LoadConfig reads path (if not empty) over the defaults, applies environment
// overrides and key files, and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.LoadKeyFile(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays secrets and connection settings from getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	pick := func(names ...string) string {
		for _, n := range names {
			if v := strings.TrimSpace(getenv(n)); v != "" {
				return v
			}
		}
		return ""
	}

	if v := pick(EnvJWTSecret, envLegacyJWTSecret); v != "" {
		cfg.Token.SigningSecret = []byte(v)
	}
	if v := pick(EnvJWTAlgorithm, envLegacyJWTAlg); v != "" {
		cfg.Token.SigningMethod = v
	}
	if v := pick(EnvEncryptionKey, envLegacySecretKey); v != "" {
		key, err := decodeKey(cfg.Encryption.Algorithm, []byte(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEncryptionKey, err)
		}
		cfg.Encryption.Key = key
	}
	if v := pick(EnvRedisAddr); v != "" {
		cfg.Redis.Addr = v
	}
	if v := pick(EnvRedisPassword); v != "" {
		cfg.Redis.Password = v
	}
	if v := pick(EnvDatabaseDSN); v != "" {
		cfg.Database.DSN = v
	}
	return nil
}

// LoadKeyFile reads Encryption.KeyFile when no key was supplied directly.
func (c *Config) LoadKeyFile() error {
	if len(c.Encryption.Key) > 0 || c.Encryption.KeyFile == "" {
		return nil
	}
	raw, err := os.ReadFile(c.Encryption.KeyFile)
	if err != nil {
		return fmt.Errorf("read encryption key file: %w", err)
	}
	key, err := decodeKey(c.Encryption.Algorithm, raw)
	if err != nil {
		return fmt.Errorf("encryption key file: %w", err)
	}
	c.Encryption.Key = key
	return nil
}

// decodeKey returns PEM material unchanged for RSA and base64-decodes symmetric keys.
func decodeKey(algorithm string, raw []byte) ([]byte, error) {
	if cipher.Canonical(algorithm) == cipher.AlgorithmRSA {
		return raw, nil
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, errors.New("symmetric keys must be base64 encoded")
	}
	return key, nil
}

// Validate reports the first configuration rule that is violated.
func (c *Config) Validate() error {
	method, err := token.ParseSigningMethod(c.Token.SigningMethod)
	if err != nil {
		return err
	}
	switch method {
	case token.MethodEdDSA:
		if len(c.Token.PublicKey) == 0 {
			return errors.New("EdDSA signing requires a public key")
		}
	default:
		if len(c.Token.SigningSecret) == 0 {
			return errors.New("signing secret is required")
		}
		if len(c.Token.SigningSecret) < 32 {
			return errors.New("signing secret must be at least 32 bytes")
		}
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token.AccessTTL must be > 0")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token.Leeway must be between 0 and 2m")
	}

	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP.Digits must be 6 or 8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("TOTP.Period must be > 0")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 3 {
		return errors.New("TOTP.Skew must be between 0 and 3")
	}
	if c.TOTP.SecretBytes < 10 {
		return errors.New("TOTP.SecretBytes must be >= 10")
	}
	if c.TOTP.MinSecretLength <= 0 {
		return errors.New("TOTP.MinSecretLength must be > 0")
	}

	if c.Guard.MaxLoginAttempts <= 0 {
		return errors.New("Guard.MaxLoginAttempts must be > 0")
	}
	if c.Guard.BlockDuration <= 0 {
		return errors.New("Guard.BlockDuration must be > 0")
	}
	if c.Guard.AttemptWindow < 0 {
		return errors.New("Guard.AttemptWindow must be >= 0")
	}
	if c.Guard.RevocationSweepInterval < 0 {
		return errors.New("Guard.RevocationSweepInterval must be >= 0")
	}
	if _, err := guard.ParseWhitelist(c.Guard.WhitelistIPs); err != nil {
		return err
	}

	if strings.TrimSpace(c.Permission.AdminRole) == "" {
		return errors.New("Permission.AdminRole must not be empty")
	}
	if strings.TrimSpace(c.Permission.DefaultRole) == "" {
		return errors.New("Permission.DefaultRole must not be empty")
	}

	suite, err := cipher.New(c.Encryption.Algorithm)
	if err != nil {
		return err
	}
	if len(c.Encryption.Key) == 0 {
		return errors.New("encryption key is required")
	}
	if err := suite.CheckKey(c.Encryption.Key); err != nil {
		return err
	}

	if c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must be >= 0")
	}
	return nil
}
