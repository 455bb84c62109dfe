package errs

import (
	"errors"
	"net/http"
)

// Kind is the closed set of failure categories.
type Kind uint8

const (
	// KindInternal covers unexpected failures and untyped errors.
	KindInternal Kind = iota
	// KindAuthentication is returned for bad credentials and unusable tokens.
	KindAuthentication
	// KindPermissionDenied is returned when an authenticated user lacks a permission.
	KindPermissionDenied
	// KindValidation is returned for malformed input and bad configuration.
	KindValidation
	// KindStorage is returned when a backing store cannot be reached or fails.
	KindStorage
	// KindOTPSecret is returned when a one-time-code secret is malformed or too short.
	KindOTPSecret
	// KindOTPCode is returned when a one-time code has the wrong shape.
	KindOTPCode
	// KindCrypto is returned for encryption and decryption failures.
	KindCrypto
	// KindNotFound is returned when a referenced resource does not exist.
	KindNotFound
	// KindRateLimited is returned while a login block is in force.
	KindRateLimited
	// KindInvalidToken is returned for revoked tokens.
	KindInvalidToken

	kindCount
)

var kindInfo = [kindCount]struct {
	code    string
	message string
	status  int
}{
	KindInternal:         {"INTERNAL_ERROR", "internal error", http.StatusInternalServerError},
	KindAuthentication:   {"AUTH_ERROR", "could not validate credentials", http.StatusUnauthorized},
	KindPermissionDenied: {"PERMISSION_DENIED", "permission denied", http.StatusForbidden},
	KindValidation:       {"VALIDATION_ERROR", "invalid request", http.StatusBadRequest},
	KindStorage:          {"DB_ERROR", "storage failure", http.StatusInternalServerError},
	KindOTPSecret:        {"TOTP_SECRET_ERROR", "invalid one-time-code secret", http.StatusInternalServerError},
	KindOTPCode:          {"TOTP_CODE_ERROR", "invalid one-time code format", http.StatusBadRequest},
	KindCrypto:           {"CRYPTO_ERROR", "cryptographic failure", http.StatusInternalServerError},
	KindNotFound:         {"NOT_FOUND", "resource not found", http.StatusNotFound},
	KindRateLimited:      {"RATE_LIMIT_EXCEEDED", "too many failed attempts, try again later", http.StatusTooManyRequests},
	KindInvalidToken:     {"INVALID_TOKEN", "invalid or revoked token", http.StatusUnauthorized},
}

func (k Kind) valid() bool { return k < kindCount }

// Code returns the stable machine-readable code for k.
func (k Kind) Code() string {
	if !k.valid() {
		return kindInfo[KindInternal].code
	}
	return kindInfo[k].code
}

// DefaultMessage returns the caller-safe message used when an error carries none.
func (k Kind) DefaultMessage() string {
	if !k.valid() {
		return kindInfo[KindInternal].message
	}
	return kindInfo[k].message
}

// HTTPStatus maps k to the status a transport layer should answer with.
func (k Kind) HTTPStatus() int {
	if !k.valid() {
		return http.StatusInternalServerError
	}
	return kindInfo[k].status
}

// IsOTP reports whether k belongs to the one-time-code family.
func (k Kind) IsOTP() bool {
	return k == KindOTPSecret || k == KindOTPCode
}

func (k Kind) String() string { return k.Code() }

// Error is a classified failure. Message is safe to return to callers; Err is the
// underlying cause and only shows up in Error().
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.DefaultMessage()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches targets of the same kind. A target with a message only matches an
// error carrying the same message, so package sentinels stay distinguishable.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Kind sentinels for errors.Is checks that only care about the category.
var (
	ErrInternal         = &Error{Kind: KindInternal}
	ErrAuthentication   = &Error{Kind: KindAuthentication}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrStorage          = &Error{Kind: KindStorage}
	ErrOTPSecret        = &Error{Kind: KindOTPSecret}
	ErrOTPCode          = &Error{Kind: KindOTPCode}
	ErrCrypto           = &Error{Kind: KindCrypto}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrRateLimited      = &Error{Kind: KindRateLimited}
	ErrInvalidToken     = &Error{Kind: KindInvalidToken}
)

// New returns an error of the given kind. An empty message falls back to the
// kind's default.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = kind.DefaultMessage()
	}
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err. If err is already an *Error it is returned unchanged so the
// innermost classification wins.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	if message == "" {
		message = kind.DefaultMessage()
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindInternal
}

// Public returns the code and message that may be shown to a caller. Untyped
// errors collapse to the internal kind so details never escape.
func Public(err error) (code, message string) {
	var classified *Error
	if !errors.As(err, &classified) {
		return KindInternal.Code(), KindInternal.DefaultMessage()
	}
	message = classified.Message
	if message == "" {
		message = classified.Kind.DefaultMessage()
	}
	return classified.Kind.Code(), message
}
