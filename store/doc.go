// Package store is the shared counter and blacklist backend used by the abuse guard
// and the token revocation list.
//
// Every cross-request fact lives behind [Store] and is changed by a single atomic
// operation, so any number of service instances can share one backend.
//
// # What this package must NOT do
//
//   - Interpret keys. Key layout belongs to the caller.
//   - Cache values in process memory.
package store
