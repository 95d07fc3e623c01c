// Package user holds accounts, sessions and per-user collections such as
// bookmarks and purchased courses.
package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/collegecompass/api/internal/upload"
)

var ErrNotFound = upload.ErrNotFound

type User struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         string      `json:"role"`
	Active       bool        `json:"active"`
	College      string      `json:"college,omitempty"`
	Branch       string      `json:"branch,omitempty"`
	Year         string      `json:"year,omitempty"`
	Bookmarks    []uuid.UUID `json:"bookmarks"`
	Purchases    []uuid.UUID `json:"purchases"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Profile is the public shape returned to the account owner.
type Profile struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      string      `json:"role"`
	College   string      `json:"college,omitempty"`
	Branch    string      `json:"branch,omitempty"`
	Year      string      `json:"year,omitempty"`
	Bookmarks []uuid.UUID `json:"bookmarks"`
	Purchases []uuid.UUID `json:"purchases"`
}

func (u User) Profile() Profile {
	bookmarks := u.Bookmarks
	if bookmarks == nil {
		bookmarks = []uuid.UUID{}
	}
	purchases := u.Purchases
	if purchases == nil {
		purchases = []uuid.UUID{}
	}
	return Profile{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		College:   u.College,
		Branch:    u.Branch,
		Year:      u.Year,
		Bookmarks: bookmarks,
		Purchases: purchases,
	}
}

// RefreshToken is a persisted session record. Only the hash of the token is
// stored; the raw value lives with the client.
type RefreshToken struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
