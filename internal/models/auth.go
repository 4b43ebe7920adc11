package models

import "time"

// User is the identity returned by the backend for a valid token.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthState is the process-wide authentication state. User is only set when
// Token has been validated against the backend.
type AuthState struct {
	Token string
	User  *User
}

// LoggedIn reports whether the state holds a validated identity.
func (a AuthState) LoggedIn() bool {
	return a.Token != "" && a.User != nil
}

// ConfidenceEntry is one append-only sample for the confidence trend.
type ConfidenceEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Model      string    `json:"model,omitempty"`
	Confidence float64   `json:"confidence"`
}
