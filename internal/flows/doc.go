// Package flows contains the orchestrators behind Engine operations.
//
// Each Run function accepts a typed dependency struct of plain functions and returns
// results without side effects beyond those dependencies. The Engine builds the
// dependency structs once and keeps ownership of every resource.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import lockana (to avoid import cycles).
//   - Perform I/O directly. All I/O goes through dependency functions.
package flows
