package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/apperror"
)

// DefaultPhoto is assigned to accounts created without a photo.
const DefaultPhoto = "default.jpg"

// User is an account. PasswordHash is never serialized; Password and
// PasswordConfirm only travel inbound and are hashed away before persisting.
// swagger:model User
type User struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name" validate:"required"`
	Email                string     `json:"email" db:"email" validate:"required,email"`
	Photo                string     `json:"photo" db:"photo"`
	Role                 Role       `json:"role" db:"role" validate:"omitempty,oneof=user artist admin"`
	PasswordHash         string     `json:"-" db:"password"`
	Password             string     `json:"password,omitempty" db:"-" validate:"omitempty,min=8"`
	PasswordConfirm      string     `json:"passwordConfirm,omitempty" db:"-"`
	PasswordChangedAt    *time.Time `json:"passwordChangedAt,omitempty" db:"password_changed_at"`
	PasswordResetToken   *string    `json:"-" db:"password_reset_token"`
	PasswordResetExpires *time.Time `json:"-" db:"password_reset_expires"`
	Active               bool       `json:"-" db:"active"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
	Version              int        `json:"version" db:"version"`
}

func (u User) EntityID() uuid.UUID { return u.ID }

// Owner is always unset: accounts are administered, not owned.
func (u User) Owner() Ref[User] { return Ref[User]{} }

func (u User) Public() *bool { return nil }

// ApplyDefaults sets the role, photo and active flag of a new account.
func (u *User) ApplyDefaults(time.Time) {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}
	u.Active = true
}

// Validate requires a password for new accounts and a matching confirmation
// whenever a password is supplied.
func (u *User) Validate() error {
	if u.PasswordHash == "" && u.Password == "" {
		return apperror.BadRequest("Invalid input data. Please provide a password")
	}
	if u.Password != "" && u.Password != u.PasswordConfirm {
		return apperror.BadRequest("Invalid input data. Passwords are not the same!")
	}
	return nil
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at iat.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Truncate(time.Second).After(iat)
}

// ClearPasswordReset drops any outstanding reset token.
func (u *User) ClearPasswordReset() {
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
}

// IsAdmin reports whether the account has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
