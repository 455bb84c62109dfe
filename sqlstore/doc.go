// Package sqlstore persists users, roles, permissions, audit logs and vault records
// in SQL. It runs on sqlite (modernc.org/sqlite, driver "sqlite") or postgres
// (pgx stdlib, driver "pgx"); schema changes ship as embedded goose migrations.
//
// A *Store satisfies lockana.UserProvider, lockana.AuditSink, permission.Universe
// and vault.Repository, so one database can back a whole deployment.
//
// # What this package must NOT do
//
//   - Encrypt or decrypt vault records. It stores the ciphertext it is given.
//   - Make authorization decisions.
package sqlstore
