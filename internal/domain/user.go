package domain

import "time"

type UserProfile struct {
	UserID      string         `json:"user_id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	PhotoURL    string         `json:"photo_url"`
	CreatedAt   time.Time      `json:"created_at"`
	LastLoginAt time.Time      `json:"last_login_at"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// Identity is what a verified ID token tells us about the caller.
type Identity struct {
	Subject  string
	Email    string
	Name     string
	PhotoURL string
}
