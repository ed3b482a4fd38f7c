package domain

import "time"

// User is a registered account. PasswordHash stays inside the repository and
// auth layers; everything crossing the HTTP boundary uses PublicUser.
type User struct {
	Audit
	Email        string
	PasswordHash []byte
	FirstName    string
	LastName     string
	LastLoginAt  *time.Time
}

// PublicUser is the external projection of a User. It structurally cannot
// carry a password, so leaking one is a compile error rather than a missing
// struct tag.
type PublicUser struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Public returns the user's external projection.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
