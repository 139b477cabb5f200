package model

import "time"

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is an authenticated sign-in of a user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionToken is returned on sign-in. Token is the bearer credential.
type SessionToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionEvent is published whenever a user's session state changes.
// Session is nil when the user no longer has a session.
type SessionEvent struct {
	UserID  string
	Session *Session
}
