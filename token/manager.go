package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod names a supported JWT algorithm.
type SigningMethod string

const (
	MethodHS256 SigningMethod = "HS256"
	MethodHS384 SigningMethod = "HS384"
	MethodHS512 SigningMethod = "HS512"
	MethodEdDSA SigningMethod = "EdDSA"
)

// ParseSigningMethod accepts algorithm names case-insensitively.
func ParseSigningMethod(name string) (SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "HS256":
		return MethodHS256, nil
	case "HS384":
		return MethodHS384, nil
	case "HS512":
		return MethodHS512, nil
	case "EDDSA", "ED25519":
		return MethodEdDSA, nil
	default:
		return "", fmt.Errorf("unsupported signing method %q", name)
	}
}

// Config holds signing parameters. For HMAC methods Secret is the shared key;
// for EdDSA PrivateKey and PublicKey hold raw or PEM keys.
type Config struct {
	Method     SigningMethod
	Secret     []byte
	PrivateKey []byte
	PublicKey  []byte
	TTL        time.Duration
	Issuer     string
	Leeway     time.Duration
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Claims is the token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and parses tokens. It is immutable after NewManager.
type Manager struct {
	config  Config
	method  jwt.SigningMethod
	signKey any
	verKey  any
	now     func() time.Time
}

// NewManager validates cfg. A missing signing key is an error.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	m := &Manager{config: cfg, now: cfg.Now}
	if m.now == nil {
		m.now = time.Now
	}
	switch cfg.Method {
	case MethodHS256, MethodHS384, MethodHS512:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("signing secret is required")
		}
		if len(cfg.Secret) < 32 {
			return nil, errors.New("signing secret must be at least 32 bytes")
		}
		m.method = jwt.GetSigningMethod(string(cfg.Method))
		m.signKey = cfg.Secret
		m.verKey = cfg.Secret
	case MethodEdDSA:
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		m.method = jwt.SigningMethodEdDSA
		m.verKey = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	return m, nil
}

// TTL returns the default token lifetime.
func (m *Manager) TTL() time.Duration { return m.config.TTL }

// Leeway returns the clock skew tolerated past a token's expiry.
func (m *Manager) Leeway() time.Duration { return m.config.Leeway }

// Issue signs a token for subject with role. A non-positive ttl uses the default.
func (m *Manager) Issue(subject, role string, ttl time.Duration) (string, time.Time, error) {
	if m.signKey == nil {
		return "", time.Time{}, errors.New("manager has no signing key")
	}
	if subject == "" {
		return "", time.Time{}, errors.New("subject is required")
	}
	if ttl <= 0 {
		ttl = m.config.TTL
	}

	now := m.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, structure, issuer and expiry.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, m.parserOptions(true))
}

// ParseUnverifiedExpiry verifies the signature but skips time checks. It is used
// to learn the expiry of a token being revoked.
func (m *Manager) ParseUnverifiedExpiry(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, m.parserOptions(false))
}

func (m *Manager) parserOptions(validateClaims bool) []jwt.ParserOption {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if !validateClaims {
		return append(options, jwt.WithoutClaimsValidation())
	}
	options = append(options, jwt.WithExpirationRequired())
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	return options
}

func (m *Manager) parse(tokenStr string, options []jwt.ParserOption) (*Claims, error) {
	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
