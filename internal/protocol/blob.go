package protocol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Blob is an opaque minigame message body. Oppack carries it as raw
// bytes; the JSON framing hex-encodes it.
type Blob []byte

func (b Blob) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

func (b *Blob) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("blob must be a hex string: %w", err)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("blob is not valid hex: %w", err)
	}
	*b = raw
	return nil
}
