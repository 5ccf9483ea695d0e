// Package domain contains entities without logic, just meta-data
// shared by the core and the adapters.
package domain

type (
	RoomID   string
	ServerID string
)

// MaxMembers is the hard per-room member cap.
const MaxMembers = 25

// RoomStatus is the lifecycle phase of a room. The cycle
// Lobby -> WaitingForPlayersToLoad -> Started -> Lobby repeats while
// the room is non-empty.
type RoomStatus int

const (
	StatusLobby RoomStatus = iota
	StatusWaitingForPlayersToLoad
	StatusStarted
)

func (s RoomStatus) String() string {
	switch s {
	case StatusLobby:
		return "Lobby"
	case StatusWaitingForPlayersToLoad:
		return "WaitingForPlayersToLoad"
	case StatusStarted:
		return "Started"
	default:
		return "Unknown"
	}
}

// RoomSettings holds the host-selected content references.
// Empty string means unset. A pack may only be set together with a
// minigame that belongs to it.
type RoomSettings struct {
	MinigameID string `json:"minigameId" msgpack:"minigameId"`
	PackID     string `json:"packId" msgpack:"packId"`
}

// EndReason explains why a minigame returned to the lobby.
type EndReason string

const (
	EndMinigameEnded                 EndReason = "MinigameEnded"
	EndForcefulEnd                   EndReason = "ForcefulEnd"
	EndHostLeft                      EndReason = "HostLeft"
	EndFailedToSatisfyMinimumPlayers EndReason = "FailedToSatisfyMinimumPlayers"
)
