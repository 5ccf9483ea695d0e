// Package core owns the authoritative per-room state machine, the
// process-wide room registry, and prize settlement. It never touches
// transport resources beyond the Session interface.
package core

import (
	"github.com/someonesays/roomserver/internal/domain"
	"github.com/someonesays/roomserver/internal/protocol"
)

// Session is a member's exclusively-owned transport handle. Owned by
// the adapter; the adapter must close it. Send must never block the
// room (drop over backpressure) and CloseWithReason must be idempotent.
type Session interface {
	// ID identifies the underlying connection, not the user. Disconnect
	// cleanup uses it to stay idempotent.
	ID() string
	Send(msg protocol.ServerMessage) error
	CloseWithReason(code domain.ErrorCode)
}

// Member is one connected player within a room. A member exists only
// while its single connection is live.
type Member struct {
	User domain.User

	// Ready is true only while a game is loading or running and the
	// member has completed the minigame handshake.
	Ready bool
	// State is the per-minigame value the host sets on this member's
	// behalf. Reset on every game end.
	State any
	// Points accumulate across minigames for the room's lifetime.
	Points int

	sess Session
}

func newMember(user domain.User, sess Session) *Member {
	return &Member{User: user, sess: sess}
}

func (m *Member) info() protocol.MemberInfo {
	return protocol.MemberInfo{
		ID:          m.User.ID,
		DisplayName: m.User.DisplayName,
		Avatar:      m.User.Avatar,
		Ready:       m.Ready,
		Points:      m.Points,
		State:       m.State,
	}
}
