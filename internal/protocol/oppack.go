package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var errEmptyFrame = errors.New("empty frame")

// oppackCodec frames messages as binary frames: first byte is the
// opcode, the rest is a msgpack-encoded payload. The default format.
type oppackCodec struct{}

func (oppackCodec) Name() string     { return CodecOppack }
func (oppackCodec) MessageType() int { return BinaryFrame }

func (oppackCodec) Encode(msg ServerMessage) ([]byte, error) {
	out := []byte{byte(msg.Opcode())}
	if !hasPayload(msg) {
		return out, nil
	}
	body, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Opcode(), err)
	}
	return append(out, body...), nil
}

func (oppackCodec) Decode(data []byte) (ClientMessage, error) {
	if len(data) == 0 {
		return nil, errEmptyFrame
	}
	op, body := ClientOpcode(data[0]), data[1:]
	return decodeClient(op, func(v any) error {
		if len(body) == 0 {
			return nil
		}
		return msgpack.Unmarshal(body, v)
	})
}

func (oppackCodec) DecodeServer(data []byte) (ServerMessage, error) {
	if len(data) == 0 {
		return nil, errEmptyFrame
	}
	op, body := ServerOpcode(data[0]), data[1:]
	return decodeServer(op, func(v any) error {
		if len(body) == 0 {
			return nil
		}
		return msgpack.Unmarshal(body, v)
	})
}
