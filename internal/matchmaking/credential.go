// Package matchmaking consumes the signed credential minted by the
// matchmaking service. This server never issues credentials, it only
// verifies them and checks they were bound to this instance.
package matchmaking

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/someonesays/roomserver/internal/domain"
)

var (
	ErrWrongServer = errors.New("credential bound to another server")
	ErrBadIdentity = errors.New("credential carries no user identity")
)

// Claims is the wire shape of the matchmaking token.
type Claims struct {
	User struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Avatar      string `json:"avatar"`
	} `json:"user"`
	Room struct {
		ID     string `json:"id"`
		Server struct {
			ID string `json:"id"`
		} `json:"server"`
	} `json:"room"`
	Metadata struct {
		Type     string `json:"type"`
		Creating bool   `json:"creating,omitempty"`
	} `json:"metadata"`
	jwt.RegisteredClaims
}

// Credential is the verified, consumed form handed to the handshake.
type Credential struct {
	User     domain.User
	RoomID   domain.RoomID
	Creating bool
}

// Verifier checks credential signatures and their server binding.
type Verifier struct {
	secret   []byte
	serverID domain.ServerID
}

func NewVerifier(secret string, serverID domain.ServerID) *Verifier {
	return &Verifier{secret: []byte(secret), serverID: serverID}
}

// Verify parses and validates a credential string. A token whose
// embedded server id differs from ours is rejected, which also throws
// out stale and forged tokens.
func (v *Verifier) Verify(token string) (*Credential, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("credential validation failed: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid credential")
	}
	if domain.ServerID(claims.Room.Server.ID) != v.serverID {
		return nil, ErrWrongServer
	}
	if claims.User.ID == "" {
		return nil, ErrBadIdentity
	}
	user, err := domain.NewUser(domain.UserID(claims.User.ID), claims.User.DisplayName, claims.User.Avatar)
	if err != nil {
		return nil, fmt.Errorf("credential user: %w", err)
	}
	return &Credential{
		User:     *user,
		RoomID:   domain.RoomID(claims.Room.ID),
		Creating: claims.Metadata.Creating,
	}, nil
}
