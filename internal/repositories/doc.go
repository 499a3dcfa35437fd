// Package repositories implements SQLite persistence for dashboard accounts.
//
// Key Implementations:
//   - [UserRepository] : users keyed by identity provider subject, created on first sign in
//   - [SessionRepository] : server-side sessions referenced by the encrypted session cookie
//
// Both repositories soft delete via deleted_at and exclude deleted rows from every query.
// Lookups that match nothing return errors wrapping [shared.ErrNotFound].
//
// Sequence numbers give users a stable, human-readable ordering (user #42) independent of UUIDs.
// [NextSequence] atomically increments the per-table counter in its dedicated sequence table.
package repositories
