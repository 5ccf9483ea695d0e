package domain

// ErrorCode is the wire-level error vocabulary. The same codes appear
// in unicast Error payloads and in 1003 close-reason bodies, so the
// handshake path and the per-message path speak one language.
type ErrorCode string

const (
	CodeServersBusy               ErrorCode = "ServersBusy"
	CodeAlreadyInGame             ErrorCode = "AlreadyInGame"
	CodeReachedMaximumPlayerLimit ErrorCode = "ReachedMaximumPlayerLimit"
	CodeKickedFromRoom            ErrorCode = "KickedFromRoom"
	CodeCredentialRejected        ErrorCode = "CredentialRejected"
	CodeNotHost                   ErrorCode = "NotHost"
	CodeNotInLobby                ErrorCode = "NotInLobby"
	CodeGameInProgress            ErrorCode = "GameInProgress"
	CodeNoGameInProgress          ErrorCode = "NoGameInProgress"
	CodeMinigameNotSelected       ErrorCode = "MinigameNotSelected"
	CodeNotEnoughPlayers          ErrorCode = "NotEnoughPlayers"
	CodeInvalidPayload            ErrorCode = "InvalidPayload"
	CodeInvalidPrizes             ErrorCode = "InvalidPrizes"
	CodeUnknownPlayer             ErrorCode = "UnknownPlayer"
	CodeInvalidSettings           ErrorCode = "InvalidSettings"
)

// RoomError couples an ErrorCode with a human-readable message. It is
// what every rejected operation returns and what the Error opcode
// carries back to the sender.
type RoomError struct {
	Code    ErrorCode `json:"code" msgpack:"code"`
	Message string    `json:"message,omitempty" msgpack:"message,omitempty"`
}

func (e *RoomError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func NewRoomError(code ErrorCode, message string) *RoomError {
	return &RoomError{Code: code, Message: message}
}
