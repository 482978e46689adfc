package http

import (
	"encoding/base64"
	"time"

	"github.com/example/confidential-scheduler/internal/fhe"
)

// Ciphertext handles cross the API as base64 strings. The contents stay
// opaque end to end; encoding succeeds for any handle and decoding only
// checks the transport encoding.

func encodeHandle(handle fhe.Handle) string {
	return base64.StdEncoding.EncodeToString(fhe.Marshal(handle))
}

func decodeHandle(encoded string) (fhe.Handle, error) {
	if encoded == "" {
		return fhe.Handle{}, errMissingHandleField
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fhe.Handle{}, errInvalidHandle
	}
	return fhe.Unmarshal(raw), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
