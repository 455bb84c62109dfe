// Package permission expands roles into effective permission sets and answers
// membership questions.
//
// # Components
//
//   - [Registry]: frozen universe of known permission names, usable as a [Universe].
//   - [RoleManager]: optional catalog of role definitions for providers that only
//     return role names.
//   - [Resolver]: effective-permission computation with the administrative role
//     short-circuit.
//
// # What this package must NOT do
//
//   - Look up users or validate tokens.
//   - Import lockana or any sibling package other than errs.
package permission
