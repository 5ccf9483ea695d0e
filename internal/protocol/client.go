package protocol

import (
	"fmt"

	"github.com/someonesays/roomserver/internal/domain"
)

// ClientMessage is the closed set of client-to-room messages. Handlers
// type-switch over the concrete types; the compiler keeps the switch in
// sync with the opcode table via decodeClient.
type ClientMessage interface {
	Opcode() ClientOpcode
	clientMessage()
}

// Ping requests a Pong. Keepalive on top of the transport.
type Ping struct{}

// KickPlayer forcibly removes a member. Host-only, lobby-only.
type KickPlayer struct {
	User domain.UserID `json:"user" msgpack:"user"`
}

// TransferHost hands host authority to another member. Host-only, lobby-only.
type TransferHost struct {
	User domain.UserID `json:"user" msgpack:"user"`
}

// SetRoomSettings is a partial update of the room settings. A nil field
// is "leave unchanged"; a pointer to the empty string clears the value.
type SetRoomSettings struct {
	MinigameID *string `json:"minigameId,omitempty" msgpack:"minigameId,omitempty"`
	PackID     *string `json:"packId,omitempty" msgpack:"packId,omitempty"`
}

// BeginGame moves the lobby into the loading phase. Host-only.
type BeginGame struct{}

// MinigameHandshake signals the sender finished loading the minigame.
type MinigameHandshake struct{}

// MinigameEndGame ends the current game. An empty prize list means a
// forceful end without settlement.
type MinigameEndGame struct {
	Prizes []domain.Prize `json:"prizes,omitempty" msgpack:"prizes,omitempty"`
}

// MinigameSetGameState replaces the room's shared game state. Host-only.
type MinigameSetGameState struct {
	State any `json:"state" msgpack:"state"`
}

// MinigameSetPlayerState sets one member's per-minigame state. Host-only.
type MinigameSetPlayerState struct {
	User  domain.UserID `json:"user" msgpack:"user"`
	State any           `json:"state" msgpack:"state"`
}

// MinigameSendGameMessage fans an opaque blob out to every ready member.
// Host-only.
type MinigameSendGameMessage struct {
	Message Blob `json:"message" msgpack:"message"`
}

// MinigameSendPlayerMessage relays an opaque blob from the sender to
// every ready member.
type MinigameSendPlayerMessage struct {
	Message Blob `json:"message" msgpack:"message"`
}

// MinigameSendPrivateMessage carries a blob between the host and one
// member: the host addresses User, anyone else reaches the host.
type MinigameSendPrivateMessage struct {
	User    domain.UserID `json:"user,omitempty" msgpack:"user,omitempty"`
	Message Blob          `json:"message" msgpack:"message"`
}

func (*Ping) Opcode() ClientOpcode                       { return OpPing }
func (*KickPlayer) Opcode() ClientOpcode                 { return OpKickPlayer }
func (*TransferHost) Opcode() ClientOpcode               { return OpTransferHost }
func (*SetRoomSettings) Opcode() ClientOpcode            { return OpSetRoomSettings }
func (*BeginGame) Opcode() ClientOpcode                  { return OpBeginGame }
func (*MinigameHandshake) Opcode() ClientOpcode          { return OpMinigameHandshake }
func (*MinigameEndGame) Opcode() ClientOpcode            { return OpMinigameEndGame }
func (*MinigameSetGameState) Opcode() ClientOpcode       { return OpMinigameSetGameState }
func (*MinigameSetPlayerState) Opcode() ClientOpcode     { return OpMinigameSetPlayerState }
func (*MinigameSendGameMessage) Opcode() ClientOpcode    { return OpMinigameSendGameMessage }
func (*MinigameSendPlayerMessage) Opcode() ClientOpcode  { return OpMinigameSendPlayerMessage }
func (*MinigameSendPrivateMessage) Opcode() ClientOpcode { return OpMinigameSendPrivateMessage }

func (*Ping) clientMessage()                       {}
func (*KickPlayer) clientMessage()                 {}
func (*TransferHost) clientMessage()               {}
func (*SetRoomSettings) clientMessage()            {}
func (*BeginGame) clientMessage()                  {}
func (*MinigameHandshake) clientMessage()          {}
func (*MinigameEndGame) clientMessage()            {}
func (*MinigameSetGameState) clientMessage()       {}
func (*MinigameSetPlayerState) clientMessage()     {}
func (*MinigameSendGameMessage) clientMessage()    {}
func (*MinigameSendPlayerMessage) clientMessage()  {}
func (*MinigameSendPrivateMessage) clientMessage() {}

// decodeClient instantiates the concrete message for op and fills it
// through the codec-supplied unmarshal. Payloadless opcodes skip the
// unmarshal entirely so an empty body is valid for them.
func decodeClient(op ClientOpcode, unmarshal func(any) error) (ClientMessage, error) {
	var msg ClientMessage
	switch op {
	case OpPing:
		return &Ping{}, nil
	case OpBeginGame:
		return &BeginGame{}, nil
	case OpMinigameHandshake:
		return &MinigameHandshake{}, nil
	case OpKickPlayer:
		msg = &KickPlayer{}
	case OpTransferHost:
		msg = &TransferHost{}
	case OpSetRoomSettings:
		msg = &SetRoomSettings{}
	case OpMinigameEndGame:
		msg = &MinigameEndGame{}
	case OpMinigameSetGameState:
		msg = &MinigameSetGameState{}
	case OpMinigameSetPlayerState:
		msg = &MinigameSetPlayerState{}
	case OpMinigameSendGameMessage:
		msg = &MinigameSendGameMessage{}
	case OpMinigameSendPlayerMessage:
		msg = &MinigameSendPlayerMessage{}
	case OpMinigameSendPrivateMessage:
		msg = &MinigameSendPrivateMessage{}
	default:
		return nil, fmt.Errorf("unknown client opcode %d", op)
	}
	if err := unmarshal(msg); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", op, err)
	}
	return msg, nil
}
