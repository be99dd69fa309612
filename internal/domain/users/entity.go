package users

import (
	"errors"
	"time"
)

// ErrInvalidUser is returned when required profile fields are missing.
var ErrInvalidUser = errors.New("invalid user")

// User is a saved profile, unique by email.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}
