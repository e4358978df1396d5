package models

import "encoding/json"

// Identity is the signed-in user as cached in user_info.
type Identity struct {
	ID          int64           `json:"id"`
	Email       string          `json:"email"`
	Username    string          `json:"username"`
	Name        string          `json:"name,omitempty"`
	Role        string          `json:"role,omitempty"`
	ContactInfo json.RawMessage `json:"contact_info,omitempty"`
	IsSuperuser bool            `json:"is_superuser"`
}

// TokenPair holds the bearer credential and its renewal credential.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse is the body returned by the login endpoint.
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	IsSuperuser  bool     `json:"is_superuser"`
	User         Identity `json:"user"`
}

// Registration is the body sent to the register endpoint.
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}
