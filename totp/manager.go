package totp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/MrEthical07/lockana/errs"
)

// Config holds one-time-code parameters.
type Config struct {
	Digits          int
	SecretBytes     int
	MinSecretLength int
	Period          int
	Skew            int
	Algorithm       string
	Issuer          string
}

// DefaultConfig returns the RFC 6238 defaults with a 160-bit secret.
func DefaultConfig() Config {
	return Config{
		Digits:          6,
		SecretBytes:     20,
		MinSecretLength: 16,
		Period:          30,
		Skew:            1,
		Algorithm:       "SHA1",
		Issuer:          "Lockana",
	}
}

var (
	// ErrSecretTooShort is returned when a secret is below the configured minimum length.
	ErrSecretTooShort = errs.New(errs.KindOTPSecret, "one-time-code secret is too short")
	// ErrSecretEncoding is returned when a secret is not valid base32.
	ErrSecretEncoding = errs.New(errs.KindOTPSecret, "one-time-code secret is not valid base32")
	// ErrCodeLength is returned when a code does not have the configured digit count.
	ErrCodeLength = errs.New(errs.KindOTPCode, "one-time code has the wrong length")
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Manager creates secrets and verifies codes. It holds no mutable state.
type Manager struct {
	config    Config
	algorithm otp.Algorithm
	now       func() time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Digits != 6 && cfg.Digits != 8 {
		return nil, errors.New("totp digits must be 6 or 8")
	}
	if cfg.Period <= 0 {
		return nil, errors.New("totp period must be > 0")
	}
	if cfg.Skew < 0 || cfg.Skew > 3 {
		return nil, errors.New("totp skew must be between 0 and 3")
	}
	if cfg.SecretBytes < 10 {
		return nil, errors.New("totp secret must be at least 10 bytes")
	}
	if cfg.MinSecretLength <= 0 {
		return nil, errors.New("totp minimum secret length must be > 0")
	}
	if b32.EncodedLen(cfg.SecretBytes) < cfg.MinSecretLength {
		return nil, errors.New("totp generated secrets would be shorter than the minimum secret length")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("totp issuer must not be empty")
	}

	alg, err := parseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	cfg.Algorithm = strings.ToUpper(cfg.Algorithm)
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}

	return &Manager{config: cfg, algorithm: alg, now: time.Now}, nil
}

// Config returns a copy of the manager configuration.
func (m *Manager) Config() Config { return m.config }

// CreateSecret returns SecretBytes random bytes as unpadded base32.
func (m *Manager) CreateSecret() (string, error) {
	raw := make([]byte, m.config.SecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", errs.Wrap(errs.KindInternal, err, "generate one-time-code secret")
	}
	return b32.EncodeToString(raw), nil
}

// Verify checks code against secret at the current time.
func (m *Manager) Verify(code, secret string) (bool, error) {
	return m.VerifyAt(code, secret, m.now())
}

// VerifyAt checks code against secret at t.
func (m *Manager) VerifyAt(code, secret string, t time.Time) (bool, error) {
	_, ok, err := m.Match(code, secret, t)
	return ok, err
}

// Match verifies code at t and returns the time step that matched.
//
// The secret must be at least MinSecretLength characters of base32 and the code
// exactly Digits long; violations return OTP-kind errors before any HMAC is computed.
// A non-numeric code of the right length is simply not a match.
func (m *Manager) Match(code, secret string, t time.Time) (int64, bool, error) {
	secret = normalizeSecret(secret)
	if err := m.checkSecret(secret); err != nil {
		return 0, false, err
	}

	code = strings.TrimSpace(code)
	if len(code) != m.config.Digits {
		return 0, false, ErrCodeLength
	}
	if !isNumeric(code) {
		return 0, false, nil
	}

	period := int64(m.config.Period)
	base := t.Unix() / period
	opts := m.validateOpts()

	for step := -m.config.Skew; step <= m.config.Skew; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		expected, err := totp.GenerateCodeCustom(secret, time.Unix(counter*period, 0), opts)
		if err != nil {
			return 0, false, &errs.Error{Kind: errs.KindOTPSecret, Message: ErrSecretEncoding.Message, Err: err}
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return counter, true, nil
		}
	}
	return 0, false, nil
}

// GenerateCode returns the code for secret at t. It applies the same secret checks
// as Match.
func (m *Manager) GenerateCode(secret string, t time.Time) (string, error) {
	secret = normalizeSecret(secret)
	if err := m.checkSecret(secret); err != nil {
		return "", err
	}
	code, err := totp.GenerateCodeCustom(secret, t, m.validateOpts())
	if err != nil {
		return "", &errs.Error{Kind: errs.KindOTPSecret, Message: ErrSecretEncoding.Message, Err: err}
	}
	return code, nil
}

// ProvisionURI renders an otpauth:// URI for authenticator apps.
func (m *Manager) ProvisionURI(secret, account string) (string, error) {
	secret = normalizeSecret(secret)
	if err := m.checkSecret(secret); err != nil {
		return "", err
	}
	if strings.TrimSpace(account) == "" {
		return "", errs.New(errs.KindValidation, "account name must not be empty")
	}

	issuer := m.config.Issuer
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(m.config.Period))
	v.Set("digits", strconv.Itoa(m.config.Digits))
	v.Set("algorithm", m.config.Algorithm)

	uri := "otpauth://totp/" + url.PathEscape(issuer+":"+account) + "?" + v.Encode()
	if _, err := otp.NewKeyFromURL(uri); err != nil {
		return "", errs.Wrap(errs.KindInternal, err, "build provisioning uri")
	}
	return uri, nil
}

// Step returns the time step index for t.
func (m *Manager) Step(t time.Time) int64 {
	return t.Unix() / int64(m.config.Period)
}

// StepDuration returns how long a matched step must be remembered for replay checks.
func (m *Manager) StepDuration() time.Duration {
	return time.Duration(m.config.Period*(2*m.config.Skew+1)) * time.Second
}

func (m *Manager) checkSecret(secret string) error {
	if len(secret) < m.config.MinSecretLength {
		return ErrSecretTooShort
	}
	if _, err := b32.DecodeString(secret); err != nil {
		return &errs.Error{Kind: errs.KindOTPSecret, Message: ErrSecretEncoding.Message, Err: err}
	}
	return nil
}

func (m *Manager) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(m.config.Period),
		Skew:      0,
		Digits:    otp.Digits(m.config.Digits),
		Algorithm: m.algorithm,
	}
}

func normalizeSecret(secret string) string {
	return strings.TrimRight(strings.ToUpper(strings.TrimSpace(secret)), "=")
}

func parseAlgorithm(name string) (otp.Algorithm, error) {
	switch strings.ToUpper(name) {
	case "", "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	default:
		return otp.AlgorithmSHA1, fmt.Errorf("unsupported totp algorithm %q", name)
	}
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
