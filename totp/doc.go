// Package totp creates and verifies RFC 6238 time-based one-time codes.
//
// Secrets are random bytes rendered as unpadded base32. Verification checks secret
// shape first, then code shape, and only then runs the HMAC comparison across the
// configured skew window, so format failures are distinguishable from wrong codes.
package totp
