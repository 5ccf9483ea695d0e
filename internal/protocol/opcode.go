// Package protocol defines the opcoded wire messages exchanged between
// clients and a room, and the two codecs (Json, Oppack) that frame them.
// Each direction is a closed set of message types so that adding an
// opcode is a compile-time-checked change.
package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ClientOpcode tags a client-to-room message.
type ClientOpcode uint8

const (
	OpPing ClientOpcode = iota
	OpKickPlayer
	OpTransferHost
	OpSetRoomSettings
	OpBeginGame
	OpMinigameHandshake
	OpMinigameEndGame
	OpMinigameSetGameState
	OpMinigameSetPlayerState
	OpMinigameSendGameMessage
	OpMinigameSendPlayerMessage
	OpMinigameSendPrivateMessage
)

var clientOpcodeNames = map[ClientOpcode]string{
	OpPing:                       "Ping",
	OpKickPlayer:                 "KickPlayer",
	OpTransferHost:               "TransferHost",
	OpSetRoomSettings:            "SetRoomSettings",
	OpBeginGame:                  "BeginGame",
	OpMinigameHandshake:          "MinigameHandshake",
	OpMinigameEndGame:            "MinigameEndGame",
	OpMinigameSetGameState:       "MinigameSetGameState",
	OpMinigameSetPlayerState:     "MinigameSetPlayerState",
	OpMinigameSendGameMessage:    "MinigameSendGameMessage",
	OpMinigameSendPlayerMessage:  "MinigameSendPlayerMessage",
	OpMinigameSendPrivateMessage: "MinigameSendPrivateMessage",
}

func (op ClientOpcode) String() string {
	if name, ok := clientOpcodeNames[op]; ok {
		return name
	}
	return "ClientOpcode(" + strconv.Itoa(int(op)) + ")"
}

// UnmarshalJSON accepts both the numeric and the named form, since the
// JSON framing allows `"opcode": 4` and `"opcode": "BeginGame"`.
func (op *ClientOpcode) UnmarshalJSON(data []byte) error {
	var n uint8
	if err := json.Unmarshal(data, &n); err == nil {
		*op = ClientOpcode(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("opcode is neither number nor string: %w", err)
	}
	for candidate, name := range clientOpcodeNames {
		if name == s {
			*op = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown opcode %q", s)
}

func (op ClientOpcode) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint8(op))
}

// ServerOpcode tags a room-to-client message.
type ServerOpcode uint8

const (
	EvError ServerOpcode = iota
	EvGetInformation
	EvPlayerJoin
	EvPlayerLeft
	EvTransferHost
	EvUpdatedRoomSettings
	EvLoadMinigame
	EvEndMinigame
	EvMinigamePlayerReady
	EvMinigameStartGame
	EvMinigameSetGameState
	EvMinigameSetPlayerState
	EvMinigameSendGameMessage
	EvMinigameSendPlayerMessage
	EvMinigameSendPrivateMessage
	EvPong
)

var serverOpcodeNames = map[ServerOpcode]string{
	EvError:                      "Error",
	EvGetInformation:             "GetInformation",
	EvPlayerJoin:                 "PlayerJoin",
	EvPlayerLeft:                 "PlayerLeft",
	EvTransferHost:               "TransferHost",
	EvUpdatedRoomSettings:        "UpdatedRoomSettings",
	EvLoadMinigame:               "LoadMinigame",
	EvEndMinigame:                "EndMinigame",
	EvMinigamePlayerReady:        "MinigamePlayerReady",
	EvMinigameStartGame:          "MinigameStartGame",
	EvMinigameSetGameState:       "MinigameSetGameState",
	EvMinigameSetPlayerState:     "MinigameSetPlayerState",
	EvMinigameSendGameMessage:    "MinigameSendGameMessage",
	EvMinigameSendPlayerMessage:  "MinigameSendPlayerMessage",
	EvMinigameSendPrivateMessage: "MinigameSendPrivateMessage",
	EvPong:                       "Pong",
}

func (op ServerOpcode) String() string {
	if name, ok := serverOpcodeNames[op]; ok {
		return name
	}
	return "ServerOpcode(" + strconv.Itoa(int(op)) + ")"
}
