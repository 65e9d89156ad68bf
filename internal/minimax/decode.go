package minimax

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// decodeAudio turns an encoded audio string of unknown encoding into raw
// bytes. Hex is attempted first because it is the dominant modern encoding for
// this service; base64 is the legacy fallback. A zero-length result counts as
// a failure, never as silently empty audio.
func decodeAudio(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrEmptyAudio
	}

	raw, hexErr := hex.DecodeString(encoded)
	if hexErr == nil {
		if len(raw) == 0 {
			return nil, ErrEmptyAudio
		}

		return raw, nil
	}

	raw, base64Err := base64.StdEncoding.DecodeString(encoded)
	if base64Err == nil {
		if len(raw) == 0 {
			return nil, ErrEmptyAudio
		}

		return raw, nil
	}

	return nil, fmt.Errorf(
		"%w: hex: %v; base64: %v",
		ErrDecodeFailed,
		hexErr,
		base64Err,
	)
}
