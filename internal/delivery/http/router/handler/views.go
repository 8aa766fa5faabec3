package handler

import (
	"time"

	"warden/internal/domain/entity"

	"github.com/google/uuid"
)

// UserView is the public representation of an account. The password hash never leaves the service.
type UserView struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	Role        entity.Role `json:"role"`
	Verified    bool        `json:"verified"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	PhoneNumber string      `json:"phoneNumber,omitempty"`
	BirthDate   *time.Time  `json:"birthDate,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func newUserView(u *entity.User) *UserView {
	return &UserView{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		Verified:    u.Verified,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		BirthDate:   u.BirthDate,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// TokenView is returned by login and refresh.
type TokenView struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

func newTokenView(pair *entity.TokenPair) *TokenView {
	return &TokenView{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

// UserPageView is one page of a user listing.
type UserPageView struct {
	Users []*UserView `json:"users"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func newUserPageView(page *entity.UserPage) *UserPageView {
	users := make([]*UserView, 0, len(page.Users))
	for _, u := range page.Users {
		users = append(users, newUserView(u))
	}

	return &UserPageView{Users: users, Total: page.Total, Page: page.Page, Limit: page.Limit}
}
