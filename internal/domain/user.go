package domain

import "errors"

const (
	MaxUserIDLen      = 36
	MaxDisplayNameLen = 36
)

var (
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

type UserID string

// User is the identity carried by the matchmaking credential.
// DisplayName and Avatar are immutable for the session.
type User struct {
	ID          UserID `json:"id" msgpack:"id"`
	DisplayName string `json:"displayName" msgpack:"displayName"`
	Avatar      string `json:"avatar" msgpack:"avatar"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID, displayName, avatar string) (*User, error) {
	if len(displayName) == 0 {
		return nil, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	return &User{ID: id, DisplayName: displayName, Avatar: avatar}, nil
}
