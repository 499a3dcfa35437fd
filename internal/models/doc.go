// Package models defines domain entities and persistence interfaces for the peai dashboard.
//
// The package contains two categories of types:
//
// 1. Catalog records: immutable values decoded from the lesson fixture
//   - [Video] : A lesson with its Bilibili identifier and ordered parts
//   - [VideoPart] : One page of a multi-part lesson
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [User] : Accounts created on first sign-in through the identity provider
//   - [Session] : Sliding dashboard sessions owned by a user
//
// [Message] is a chat message held in memory for the length of a session.
//
// All persistent entities implement the Model interface providing ID, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
