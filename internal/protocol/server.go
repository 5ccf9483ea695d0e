package protocol

import (
	"fmt"
	"time"

	"github.com/someonesays/roomserver/internal/domain"
)

// ServerMessage is the closed set of room-to-client messages.
type ServerMessage interface {
	Opcode() ServerOpcode
	serverMessage()
}

// Error reports a recoverable per-message failure to the sender only.
type Error struct {
	Code    domain.ErrorCode `json:"code" msgpack:"code"`
	Message string           `json:"message,omitempty" msgpack:"message,omitempty"`
}

// RoomInfo is the room part of the GetInformation snapshot. SharedState
// and ReadyDeadline are present only while a game is loading or
// running; a member attaching mid-game reconstructs the minigame from
// them without waiting for the host to re-publish.
type RoomInfo struct {
	ID            domain.RoomID       `json:"id" msgpack:"id"`
	Host          domain.UserID       `json:"host" msgpack:"host"`
	Status        domain.RoomStatus   `json:"status" msgpack:"status"`
	Settings      domain.RoomSettings `json:"settings" msgpack:"settings"`
	SharedState   any                 `json:"sharedState,omitempty" msgpack:"sharedState,omitempty"`
	ReadyDeadline *time.Time          `json:"readyDeadline,omitempty" msgpack:"readyDeadline,omitempty"`
}

// MemberInfo is the public view of one member.
type MemberInfo struct {
	ID          domain.UserID `json:"id" msgpack:"id"`
	DisplayName string        `json:"displayName" msgpack:"displayName"`
	Avatar      string        `json:"avatar" msgpack:"avatar"`
	Ready       bool          `json:"ready" msgpack:"ready"`
	Points      int           `json:"points" msgpack:"points"`
	State       any           `json:"state,omitempty" msgpack:"state,omitempty"`
}

// GetInformation is the full authoritative snapshot unicast to a member
// right after it attaches.
type GetInformation struct {
	User     domain.UserID    `json:"user" msgpack:"user"`
	Room     RoomInfo         `json:"room" msgpack:"room"`
	Members  []MemberInfo     `json:"members" msgpack:"members"`
	Minigame *domain.Minigame `json:"minigame,omitempty" msgpack:"minigame,omitempty"`
	Pack     *domain.Pack     `json:"pack,omitempty" msgpack:"pack,omitempty"`
}

// PlayerJoin announces a new member to everyone already in the room.
type PlayerJoin struct {
	Player MemberInfo `json:"player" msgpack:"player"`
}

// PlayerLeft announces a departed member.
type PlayerLeft struct {
	User domain.UserID `json:"user" msgpack:"user"`
}

// HostTransferred announces the new host (wire opcode TransferHost).
type HostTransferred struct {
	User domain.UserID `json:"user" msgpack:"user"`
}

// RoomSettingsUpdated carries the committed settings plus the resolved
// content metadata (wire opcode UpdatedRoomSettings).
type RoomSettingsUpdated struct {
	Settings domain.RoomSettings `json:"settings" msgpack:"settings"`
	Minigame *domain.Minigame    `json:"minigame,omitempty" msgpack:"minigame,omitempty"`
	Pack     *domain.Pack        `json:"pack,omitempty" msgpack:"pack,omitempty"`
}

// LoadMinigame tells every member to load the selected minigame. The
// roster snapshot is taken after ready flags were cleared.
type LoadMinigame struct {
	Minigame domain.Minigame `json:"minigame" msgpack:"minigame"`
	Pack     *domain.Pack    `json:"pack,omitempty" msgpack:"pack,omitempty"`
	Players  []MemberInfo    `json:"players" msgpack:"players"`
}

// EndMinigame returns the room to the lobby. Prizes is the settled,
// canonicalized list and is only present for reason MinigameEnded.
type EndMinigame struct {
	Reason domain.EndReason `json:"reason" msgpack:"reason"`
	Prizes []domain.Prize   `json:"prizes,omitempty" msgpack:"prizes,omitempty"`
}

// MinigamePlayerReady announces a member's completed minigame handshake.
type MinigamePlayerReady struct {
	User domain.UserID `json:"user" msgpack:"user"`
}

// MinigameStartGame starts the loaded minigame. No payload.
type MinigameStartGame struct{}

// GameStateUpdated rebroadcasts the shared game state (wire opcode
// MinigameSetGameState).
type GameStateUpdated struct {
	State any `json:"state" msgpack:"state"`
}

// PlayerStateUpdated rebroadcasts one member's per-minigame state (wire
// opcode MinigameSetPlayerState).
type PlayerStateUpdated struct {
	User  domain.UserID `json:"user" msgpack:"user"`
	State any           `json:"state" msgpack:"state"`
}

// GameMessage is a host blob fanned out to ready members (wire opcode
// MinigameSendGameMessage).
type GameMessage struct {
	Message Blob `json:"message" msgpack:"message"`
}

// PlayerMessage is a member blob relayed to ready members (wire opcode
// MinigameSendPlayerMessage).
type PlayerMessage struct {
	User    domain.UserID `json:"user" msgpack:"user"`
	Message Blob          `json:"message" msgpack:"message"`
}

// PrivateMessage is a blob delivered to a single member (wire opcode
// MinigameSendPrivateMessage). User is the sender.
type PrivateMessage struct {
	User    domain.UserID `json:"user" msgpack:"user"`
	Message Blob          `json:"message" msgpack:"message"`
}

// Pong answers a Ping.
type Pong struct{}

func (*Error) Opcode() ServerOpcode               { return EvError }
func (*GetInformation) Opcode() ServerOpcode      { return EvGetInformation }
func (*PlayerJoin) Opcode() ServerOpcode          { return EvPlayerJoin }
func (*PlayerLeft) Opcode() ServerOpcode          { return EvPlayerLeft }
func (*HostTransferred) Opcode() ServerOpcode     { return EvTransferHost }
func (*RoomSettingsUpdated) Opcode() ServerOpcode { return EvUpdatedRoomSettings }
func (*LoadMinigame) Opcode() ServerOpcode        { return EvLoadMinigame }
func (*EndMinigame) Opcode() ServerOpcode         { return EvEndMinigame }
func (*MinigamePlayerReady) Opcode() ServerOpcode { return EvMinigamePlayerReady }
func (*MinigameStartGame) Opcode() ServerOpcode   { return EvMinigameStartGame }
func (*GameStateUpdated) Opcode() ServerOpcode    { return EvMinigameSetGameState }
func (*PlayerStateUpdated) Opcode() ServerOpcode  { return EvMinigameSetPlayerState }
func (*GameMessage) Opcode() ServerOpcode         { return EvMinigameSendGameMessage }
func (*PlayerMessage) Opcode() ServerOpcode       { return EvMinigameSendPlayerMessage }
func (*PrivateMessage) Opcode() ServerOpcode      { return EvMinigameSendPrivateMessage }
func (*Pong) Opcode() ServerOpcode                { return EvPong }

func (*Error) serverMessage()               {}
func (*GetInformation) serverMessage()      {}
func (*PlayerJoin) serverMessage()          {}
func (*PlayerLeft) serverMessage()          {}
func (*HostTransferred) serverMessage()     {}
func (*RoomSettingsUpdated) serverMessage() {}
func (*LoadMinigame) serverMessage()        {}
func (*EndMinigame) serverMessage()         {}
func (*MinigamePlayerReady) serverMessage() {}
func (*MinigameStartGame) serverMessage()   {}
func (*GameStateUpdated) serverMessage()    {}
func (*PlayerStateUpdated) serverMessage()  {}
func (*GameMessage) serverMessage()         {}
func (*PlayerMessage) serverMessage()       {}
func (*PrivateMessage) serverMessage()      {}
func (*Pong) serverMessage()                {}

// decodeServer is the client-SDK half of the wire contract. The server
// never consumes these frames, but the codec tests and the handshake
// tests do.
func decodeServer(op ServerOpcode, unmarshal func(any) error) (ServerMessage, error) {
	var msg ServerMessage
	switch op {
	case EvMinigameStartGame:
		return &MinigameStartGame{}, nil
	case EvPong:
		return &Pong{}, nil
	case EvError:
		msg = &Error{}
	case EvGetInformation:
		msg = &GetInformation{}
	case EvPlayerJoin:
		msg = &PlayerJoin{}
	case EvPlayerLeft:
		msg = &PlayerLeft{}
	case EvTransferHost:
		msg = &HostTransferred{}
	case EvUpdatedRoomSettings:
		msg = &RoomSettingsUpdated{}
	case EvLoadMinigame:
		msg = &LoadMinigame{}
	case EvEndMinigame:
		msg = &EndMinigame{}
	case EvMinigamePlayerReady:
		msg = &MinigamePlayerReady{}
	case EvMinigameSetGameState:
		msg = &GameStateUpdated{}
	case EvMinigameSetPlayerState:
		msg = &PlayerStateUpdated{}
	case EvMinigameSendGameMessage:
		msg = &GameMessage{}
	case EvMinigameSendPlayerMessage:
		msg = &PlayerMessage{}
	case EvMinigameSendPrivateMessage:
		msg = &PrivateMessage{}
	default:
		return nil, fmt.Errorf("unknown server opcode %d", op)
	}
	if err := unmarshal(msg); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", op, err)
	}
	return msg, nil
}

// hasPayload reports whether a server message carries a body at all.
func hasPayload(msg ServerMessage) bool {
	switch msg.(type) {
	case *MinigameStartGame, *Pong:
		return false
	default:
		return true
	}
}
