package token

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/lockana/errs"
)

var (
	// ErrRevoked is returned for tokens in the revocation set.
	ErrRevoked = errs.New(errs.KindInvalidToken, "token has been revoked")
	// ErrInvalid is the generic rejection for every other validation failure.
	ErrInvalid = errs.New(errs.KindAuthentication, "could not validate credentials")
)

// Revocations is the revocation set collaborator.
type Revocations interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Service combines a Manager with revocation and role checks.
type Service struct {
	manager     *Manager
	revocations Revocations
	adminRole   string
}

// NewService returns a Service. adminRole satisfies every role requirement.
func NewService(manager *Manager, revocations Revocations, adminRole string) (*Service, error) {
	if manager == nil {
		return nil, errors.New("token manager is required")
	}
	if revocations == nil {
		return nil, errors.New("revocation set is required")
	}
	return &Service{manager: manager, revocations: revocations, adminRole: adminRole}, nil
}

// Issue signs a token for subject and role.
func (s *Service) Issue(subject, role string, ttl time.Duration) (string, time.Time, error) {
	tok, exp, err := s.manager.Issue(subject, role, ttl)
	if err != nil {
		return "", time.Time{}, errs.Wrap(errs.KindInternal, err, "issue token")
	}
	return tok, exp, nil
}

// Validate returns the claims of tok if it is not revoked, verifies, has not
// expired, and its role satisfies requiredRole.
//
// The revocation check runs first and fails closed: if the set cannot be read the
// token is treated as revoked. All other failures collapse into ErrInvalid.
func (s *Service) Validate(ctx context.Context, tok, requiredRole string) (*Claims, error) {
	if tok == "" {
		return nil, ErrInvalid
	}

	revoked, err := s.revocations.IsRevoked(ctx, tok)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindInvalidToken, Message: ErrRevoked.Message, Err: err}
	}
	if revoked {
		return nil, ErrRevoked
	}

	claims, err := s.manager.Parse(tok)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindAuthentication, Message: ErrInvalid.Message, Err: err}
	}
	if !Satisfies(claims.Role, requiredRole, s.adminRole) {
		return nil, ErrInvalid
	}
	return claims, nil
}

// Revoke adds tok to the revocation set until Parse would stop accepting it,
// which is its expiry plus the configured leeway. Tokens that do not carry a
// valid signature are rejected so the set only holds real tokens.
func (s *Service) Revoke(ctx context.Context, tok string) (*Claims, error) {
	claims, err := s.manager.ParseUnverifiedExpiry(tok)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindAuthentication, Message: ErrInvalid.Message, Err: err}
	}
	if claims.ExpiresAt == nil {
		return nil, ErrInvalid
	}
	if err := s.revocations.Revoke(ctx, tok, claims.ExpiresAt.Time.Add(s.manager.Leeway())); err != nil {
		return nil, err
	}
	return claims, nil
}

// Satisfies reports whether role meets required. An empty requirement accepts any
// non-empty role; the admin role meets every requirement.
func Satisfies(role, required, adminRole string) bool {
	if role == "" {
		return false
	}
	if required == "" || role == required {
		return true
	}
	return adminRole != "" && role == adminRole
}
