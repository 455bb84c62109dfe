// Package vault stores named secrets per owner, encrypted at rest.
//
// A [Service] seals values through a [Sealer] (normally *lockana.Engine) before
// handing them to a [Repository], and opens them on the way back. Repositories only
// ever see ciphertext.
//
// # What this package must NOT do
//
//   - Log secret values or ciphertext.
//   - Decide who may access a secret. Callers authorize first, for example with
//     lockana.RequirePermission.
package vault
