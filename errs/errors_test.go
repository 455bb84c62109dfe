package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindCodesAreStableAndDistinct(t *testing.T) {
	seen := make(map[string]Kind)
	for k := Kind(0); k < kindCount; k++ {
		code := k.Code()
		if code == "" {
			t.Fatalf("kind %d has empty code", k)
		}
		if prev, ok := seen[code]; ok {
			t.Fatalf("kinds %d and %d share code %q", prev, k, code)
		}
		seen[code] = k
		if k.DefaultMessage() == "" {
			t.Fatalf("kind %s has empty default message", code)
		}
	}

	if KindRateLimited.HTTPStatus() != http.StatusTooManyRequests {
		t.Fatalf("rate limited should map to 429, got %d", KindRateLimited.HTTPStatus())
	}
	if KindPermissionDenied.HTTPStatus() != http.StatusForbidden {
		t.Fatalf("permission denied should map to 403")
	}
	if Kind(200).Code() != "INTERNAL_ERROR" {
		t.Fatalf("unknown kind should collapse to internal")
	}
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("login: %w", New(KindRateLimited, "blocked"))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected kind sentinel match")
	}
	if errors.Is(err, ErrAuthentication) {
		t.Fatalf("unexpected cross-kind match")
	}

	revoked := New(KindInvalidToken, "token has been revoked")
	other := New(KindInvalidToken, "something else")
	if errors.Is(other, revoked) {
		t.Fatalf("message-bearing sentinels must not match different messages")
	}
	if !errors.Is(New(KindInvalidToken, "token has been revoked"), revoked) {
		t.Fatalf("same kind and message should match")
	}
}

func TestWrapKeepsInnermostClassification(t *testing.T) {
	inner := New(KindOTPSecret, "secret too short")
	wrapped := Wrap(KindStorage, fmt.Errorf("lookup: %w", inner), "")
	if KindOf(wrapped) != KindOTPSecret {
		t.Fatalf("expected OTP secret kind, got %s", KindOf(wrapped))
	}

	cause := errors.New("dial tcp: connection refused")
	storage := Wrap(KindStorage, cause, "")
	if KindOf(storage) != KindStorage {
		t.Fatalf("expected storage kind")
	}
	if !errors.Is(storage, cause) {
		t.Fatalf("cause must stay reachable")
	}
	if Wrap(KindStorage, nil, "x") != nil {
		t.Fatalf("wrapping nil must yield nil")
	}
}

func TestPublicHidesCause(t *testing.T) {
	err := Wrap(KindStorage, errors.New("pq: password authentication failed for user admin"), "")
	code, msg := Public(err)
	if code != "DB_ERROR" || msg != "storage failure" {
		t.Fatalf("unexpected public view %q %q", code, msg)
	}

	code, msg = Public(errors.New("boom"))
	if code != "INTERNAL_ERROR" || msg != "internal error" {
		t.Fatalf("untyped errors must collapse to internal, got %q %q", code, msg)
	}
}

func TestOTPFamily(t *testing.T) {
	if !KindOTPCode.IsOTP() || !KindOTPSecret.IsOTP() {
		t.Fatalf("expected OTP family membership")
	}
	if KindCrypto.IsOTP() {
		t.Fatalf("crypto is not an OTP kind")
	}
}
