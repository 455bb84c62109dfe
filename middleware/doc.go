// Package middleware adapts lockana.Engine to net/http.
//
// # Handlers
//
//   - [ClientIP] attaches the origin address used for per-address blocking.
//   - [RequireRole] validates the bearer token against a required role.
//   - [RequirePermission] validates the bearer token and checks one permission.
//   - [RateLimiter] throttles requests per address before they reach the Engine.
//
// Failures are written by [WriteError] as {"code","message"} JSON with the status
// of the error's kind.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Authentication and
// authorization decisions are delegated to Engine.Validate and Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly.
//   - Access Redis.
//   - Put error causes into responses.
package middleware
