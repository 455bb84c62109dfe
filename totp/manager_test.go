package totp

import (
	"encoding/base32"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/lockana/errs"
)

func newTestManager(t *testing.T, mutate func(*Config)) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func rfcSecret(raw string) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(raw))
}

func TestRFCVectors(t *testing.T) {
	cases := []struct {
		algorithm string
		secret    string
		ts        int64
		code      string
	}{
		{"SHA1", "12345678901234567890", 59, "94287082"},
		{"SHA1", "12345678901234567890", 1111111109, "07081804"},
		{"SHA1", "12345678901234567890", 1234567890, "89005924"},
		{"SHA1", "12345678901234567890", 20000000000, "65353130"},
		{"SHA256", "12345678901234567890123456789012", 59, "46119246"},
		{"SHA256", "12345678901234567890123456789012", 1234567890, "91819424"},
		{"SHA512", "1234567890123456789012345678901234567890123456789012345678901234", 59, "90693936"},
		{"SHA512", "1234567890123456789012345678901234567890123456789012345678901234", 1234567890, "93441116"},
	}

	for _, tc := range cases {
		m := newTestManager(t, func(c *Config) {
			c.Digits = 8
			c.Skew = 0
			c.Algorithm = tc.algorithm
		})
		ok, err := m.VerifyAt(tc.code, rfcSecret(tc.secret), time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("%s vector failed at t=%d, ok=%v err=%v", tc.algorithm, tc.ts, ok, err)
		}
	}
}

func TestVerifyCurrentAndAdjacentSteps(t *testing.T) {
	m := newTestManager(t, nil)
	secret, err := m.CreateSecret()
	if err != nil {
		t.Fatalf("CreateSecret: %v", err)
	}

	now := time.Unix(1_700_000_015, 0)
	for _, offset := range []time.Duration{0, -30 * time.Second, 30 * time.Second} {
		code, err := m.GenerateCode(secret, now.Add(offset))
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		ok, err := m.VerifyAt(code, secret, now)
		if err != nil || !ok {
			t.Fatalf("code at offset %s should verify, ok=%v err=%v", offset, ok, err)
		}
	}

	stale, err := m.GenerateCode(secret, now.Add(-60*time.Second))
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	current, _ := m.GenerateCode(secret, now)
	if stale != current {
		ok, err := m.VerifyAt(stale, secret, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatalf("code two steps old must not verify")
		}
	}
}

func TestMatchReturnsStep(t *testing.T) {
	m := newTestManager(t, nil)
	secret, _ := m.CreateSecret()
	now := time.Unix(1_700_000_015, 0)

	code, _ := m.GenerateCode(secret, now.Add(-30*time.Second))
	step, ok, err := m.Match(code, secret, now)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	if step != m.Step(now)-1 {
		t.Fatalf("expected previous step %d, got %d", m.Step(now)-1, step)
	}
}

func TestSecretShapeCheckedBeforeCode(t *testing.T) {
	m := newTestManager(t, nil)

	_, err := m.Verify("12", "SHORT")
	if !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected secret error first, got %v", err)
	}
	if errs.KindOf(err) != errs.KindOTPSecret {
		t.Fatalf("expected OTP secret kind, got %s", errs.KindOf(err))
	}

	secret, _ := m.CreateSecret()
	_, err = m.Verify("12345", secret)
	if !errors.Is(err, ErrCodeLength) {
		t.Fatalf("expected code length error, got %v", err)
	}
	if errs.KindOf(err) != errs.KindOTPCode {
		t.Fatalf("expected OTP code kind")
	}

	_, err = m.Verify("123456", strings.Repeat("1", 20))
	if errs.KindOf(err) != errs.KindOTPSecret {
		t.Fatalf("non-base32 secret should be a secret error, got %v", err)
	}
}

func TestNonNumericCodeIsMismatch(t *testing.T) {
	m := newTestManager(t, nil)
	secret, _ := m.CreateSecret()
	ok, err := m.Verify("12a456", secret)
	if err != nil || ok {
		t.Fatalf("expected plain mismatch, ok=%v err=%v", ok, err)
	}
}

func TestCreateSecretShape(t *testing.T) {
	m := newTestManager(t, nil)
	a, _ := m.CreateSecret()
	b, _ := m.CreateSecret()
	if a == b {
		t.Fatalf("secrets must be random")
	}
	if strings.Contains(a, "=") {
		t.Fatalf("secret must be unpadded: %q", a)
	}
	if len(a) != 32 {
		t.Fatalf("20 bytes should encode to 32 characters, got %d", len(a))
	}
}

func TestProvisionURI(t *testing.T) {
	m := newTestManager(t, nil)
	uri, err := m.ProvisionURI("JBSWY3DPEHPK3PXP", "alice")
	if err != nil {
		t.Fatalf("ProvisionURI: %v", err)
	}
	if !strings.HasPrefix(uri, "otpauth://totp/Lockana:alice?") {
		t.Fatalf("unexpected uri %q", uri)
	}
	if !strings.Contains(uri, "secret=JBSWY3DPEHPK3PXP") {
		t.Fatalf("uri missing secret: %q", uri)
	}
	if _, err := m.ProvisionURI("JBSWY3DPEHPK3PXP", " "); err == nil {
		t.Fatalf("expected error for empty account")
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Digits = 7 },
		func(c *Config) { c.Period = 0 },
		func(c *Config) { c.Skew = 5 },
		func(c *Config) { c.Algorithm = "MD5" },
		func(c *Config) { c.SecretBytes = 10; c.MinSecretLength = 40 },
		func(c *Config) { c.Issuer = "" },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}
