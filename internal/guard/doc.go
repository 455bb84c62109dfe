// Package guard throttles brute-force login attempts and tracks revoked tokens.
//
// # Key layout
//
// Fixed-window counters and marker keys in the shared [store.Store]:
//   - fail_user:<username>  failed attempts per username
//   - fail_ip:<addr>        failed attempts per origin address
//   - block_user:<username> and block_ip:<addr>  active blocks, expire on their own
//   - blacklisted_tokens    revoked token digests scored by token expiry
//
// A block is authoritative while its key exists, whatever the counters say.
//
// # What this package must NOT do
//
//   - Look at user records or credentials. Callers decide what counts as a failure.
//   - Keep per-request state in process memory.
package guard
