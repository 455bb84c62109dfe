// Package token issues and validates signed, expiring session tokens.
//
// Tokens are JWTs carrying a subject, a single role claim, an expiry, an issued-at
// time, and a random ID. [Manager] owns signing and parsing; [Service] adds the
// revocation check and role requirement used on every authenticated request.
//
// # What this package must NOT do
//
//   - Tell callers why a token was rejected, beyond revoked versus everything else.
//   - Hold signing keys anywhere but the Manager's config.
package token
