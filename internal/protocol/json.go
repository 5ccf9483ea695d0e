package protocol

import (
	"encoding/json"
	"fmt"
)

// jsonCodec frames messages as {"opcode": <n>, "data": <value>} text
// frames. The fallback format for clients without msgpack support.
type jsonCodec struct{}

func (jsonCodec) Name() string     { return CodecJson }
func (jsonCodec) MessageType() int { return TextFrame }

func (jsonCodec) Encode(msg ServerMessage) ([]byte, error) {
	env := struct {
		Opcode uint8 `json:"opcode"`
		Data   any   `json:"data,omitempty"`
	}{Opcode: uint8(msg.Opcode())}
	if hasPayload(msg) {
		env.Data = msg
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Opcode(), err)
	}
	return b, nil
}

func (jsonCodec) Decode(data []byte) (ClientMessage, error) {
	var env struct {
		Opcode ClientOpcode    `json:"opcode"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bad json envelope: %w", err)
	}
	return decodeClient(env.Opcode, func(v any) error {
		if len(env.Data) == 0 {
			return nil
		}
		return json.Unmarshal(env.Data, v)
	})
}

func (jsonCodec) DecodeServer(data []byte) (ServerMessage, error) {
	var env struct {
		Opcode ServerOpcode    `json:"opcode"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bad json envelope: %w", err)
	}
	return decodeServer(env.Opcode, func(v any) error {
		if len(env.Data) == 0 {
			return nil
		}
		return json.Unmarshal(env.Data, v)
	})
}
