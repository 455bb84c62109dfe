// Package audit implements async delivery of security events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: one audit record with timestamp, action, username, origin address.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which events to
// emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import lockana or any sibling internal package.
package audit
