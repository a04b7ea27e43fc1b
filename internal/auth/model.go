package auth

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// LoginResult is the success payload of a login.
type LoginResult struct {
	Token     string `json:"token"`
	TokenType string `json:"type"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}
