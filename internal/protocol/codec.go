package protocol

import "fmt"

// Codec names as they appear in the negotiated sub-protocol string.
const (
	CodecJson   = "Json"
	CodecOppack = "Oppack"
)

// Frame kinds, matching gorilla/websocket message types.
const (
	TextFrame   = 1
	BinaryFrame = 2
)

// Codec frames opcoded messages for one connection. The codec is picked
// once at handshake time; per-message code never branches on format.
type Codec interface {
	Name() string
	// MessageType is the websocket frame type this codec emits.
	MessageType() int
	Encode(ServerMessage) ([]byte, error)
	Decode([]byte) (ClientMessage, error)
	// DecodeServer is the client-side half, used by tests and SDKs.
	DecodeServer([]byte) (ServerMessage, error)
}

// Negotiate resolves a codec token from the sub-protocol. The empty
// token defaults to Oppack.
func Negotiate(name string) (Codec, error) {
	switch name {
	case CodecJson:
		return jsonCodec{}, nil
	case CodecOppack, "":
		return oppackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
