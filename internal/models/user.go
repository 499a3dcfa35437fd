package models

import (
	"fmt"
	"time"
)

// User is an account created the first time a principal signs in through the identity provider.
type User struct {
	id        string
	sequence  int
	subject   string
	email     string
	name      string
	image     string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewUser creates a [User] for the identity provider subject with creation timestamps set to now.
func NewUser(sequence int, subject, email, name string) *User {
	now := time.Now()
	return &User{
		sequence:  sequence,
		subject:   subject,
		email:     email,
		name:      name,
		createdAt: now,
		updatedAt: now,
	}
}

func (u *User) ID() string            { return u.id }
func (u *User) Sequence() int         { return u.sequence }
func (u *User) Subject() string       { return u.subject }
func (u *User) Email() string         { return u.email }
func (u *User) Name() string          { return u.name }
func (u *User) Image() string         { return u.image }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) UpdatedAt() time.Time  { return u.updatedAt }
func (u *User) DeletedAt() *time.Time { return u.deletedAt }

func (u *User) SetID(id string)           { u.id = id }
func (u *User) SetSequence(seq int)       { u.sequence = seq }
func (u *User) SetEmail(email string)     { u.email = email }
func (u *User) SetName(name string)       { u.name = name }
func (u *User) SetImage(image string)     { u.image = image }
func (u *User) SetCreatedAt(t time.Time)  { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time)  { u.updatedAt = t }
func (u *User) SetDeletedAt(t *time.Time) { u.deletedAt = t }

// DisplayName prefers the profile name, then the email, then the subject.
func (u *User) DisplayName() string {
	switch {
	case u.name != "":
		return u.name
	case u.email != "":
		return u.email
	default:
		return u.subject
	}
}

// Validate checks that the user is tied to an identity provider subject.
func (u *User) Validate() error {
	if u.subject == "" {
		return fmt.Errorf("user subject is required")
	}
	return nil
}
