// Package lockana is an identity-and-secret-protection core: it authenticates users
// with a time-based one-time code, issues and revokes signed session tokens, blocks
// brute-force login attempts, resolves role-based permissions, and encrypts user
// secrets at rest under a configurable cipher.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// lockana is the public surface. It exposes [Engine], [Builder], [Config] and value
// types. Flow orchestration, failure counting, revocation and audit dispatch live
// under internal/. The leaf packages cipher, totp, token, permission, store and errs
// are usable on their own.
//
// # What this package must NOT do
//
//   - Log or return one-time-code secrets, signing secrets or cipher keys.
//   - Keep package-level mutable state. Everything hangs off an Engine.
//   - Tell an unknown username apart from a wrong code in login responses.
//   - Import any sub-package that re-imports lockana (no import cycles).
package lockana
