// Package errs defines the closed error taxonomy shared by every lockana component.
//
// Each failure carries a [Kind] with a stable machine code, a default message that is
// safe to show to callers, and an HTTP status hint for transport layers.
//
// # Architecture boundaries
//
// errs is a leaf package. Every other package may import it; it imports nothing from
// lockana.
//
// # What this package must NOT do
//
//   - Leak wrapped causes through [Public]; wrapped details are for logs only.
//   - Grow new kinds for one-off call sites. Use a message on an existing kind instead.
package errs
