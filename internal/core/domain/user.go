package domain

import (
	"strings"
	"time"
)

// User models an account holder. PasswordHash and RefreshToken are credential
// fields and never leave the service in a response.
type User struct {
	ID            string    `json:"_id"`
	UserName      string    `json:"userName"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	WatchHistory  []string  `json:"watchHistory"`
	PasswordHash  string    `json:"-"`
	RefreshToken  string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Sanitized returns a copy of u with the credential fields cleared.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	clone.RefreshToken = ""
	if u.WatchHistory != nil {
		clone.WatchHistory = append([]string(nil), u.WatchHistory...)
	} else {
		clone.WatchHistory = []string{}
	}
	return &clone
}

// NormalizeKey trims and lowercases a userName or email so that lookups and
// unique indexes agree on one spelling.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
