// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account that can authenticate against the service.
// The record is owned by the user store; services only hold it for the duration of one operation.
type User struct {
	ID           uuid.UUID  // Opaque identity.
	Email        string     // Unique, normalized login identifier.
	PasswordHash string     // bcrypt hash, never the plaintext.
	Role         Role       // Authorization role embedded in access tokens.
	Verified     bool       // Set once the email address was proven through an OTP challenge.
	FirstName    string     // Profile data carried for the account owner.
	LastName     string
	PhoneNumber  string
	BirthDate    *time.Time // Optional date of birth.
	CreatedAt    time.Time  // Timestamp of when this user account was created.
	UpdatedAt    time.Time  // Timestamp of the last modification to this user's data.
}

// CanLogin reports whether the account is allowed to obtain tokens.
func (u *User) CanLogin() bool {
	return u != nil && u.Verified
}

// FullName joins the first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail returns the canonical form used as the unique key for accounts and OTP challenges.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserFilter narrows a user listing. Empty fields are ignored.
type UserFilter struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Role        Role
	SortBy      UserSortField
	SortOrder   SortOrder
	Page        int
	Limit       int
}

// UserSortField is a column a user listing can be ordered by.
type UserSortField string

const (
	SortByCreatedAt UserSortField = "createdAt"
	SortByName      UserSortField = "name"
)

// SortOrder is the direction of a listing.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize fills defaults and clamps paging values.
func (f UserFilter) Normalize() UserFilter {
	if f.SortBy != SortByName {
		f.SortBy = SortByCreatedAt
	}
	if f.SortOrder != SortAsc {
		f.SortOrder = SortDesc
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	f.Email = NormalizeEmail(f.Email)

	return f
}

// Offset is the number of records skipped before the requested page.
func (f UserFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// UserPage is one page of a user listing.
type UserPage struct {
	Users []*User
	Total int64
	Page  int
	Limit int
}
