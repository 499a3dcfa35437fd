package models

import (
	"time"
)

// Model is implemented by the database-backed entities, [User] and [Session].
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository is the CRUD surface shared by the user and session stores.
//
// Get and Delete skip soft-deleted rows. List takes filters keyed by the Criteria* constants;
// unknown keys are ignored.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}

// List criteria
const (
	CriteriaEmail  = "email"   // users by email
	CriteriaUserID = "user_id" // sessions by owner
)

var (
	_ Model = (*User)(nil)
	_ Model = (*Session)(nil)
)
