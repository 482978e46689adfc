// Package fhe defines the ciphertext-handle capability consumed by the
// application core, together with a software co-processor that implements it
// for local deployments and tests.
//
// A Handle is an opaque reference to an encrypted 32-bit unsigned integer.
// The core performs all arithmetic through the Coprocessor interface and never
// observes plaintext; the only path from ciphertext to plaintext is the
// asynchronous decryption protocol modelled by Decryptor and ProofVerifier.
package fhe

import (
	"context"
	"errors"
)

var (
	// ErrEmptyHandle is returned when an operation receives a handle that has
	// never been initialised.
	ErrEmptyHandle = errors.New("fhe: empty ciphertext handle")
	// ErrMalformedHandle is returned when a handle's sealed payload cannot be
	// opened.
	ErrMalformedHandle = errors.New("fhe: malformed ciphertext handle")
	// ErrDegenerateDivisor is returned when a division is attempted against a
	// handle that encrypts zero.
	ErrDegenerateDivisor = errors.New("fhe: division by encrypted zero")
	// ErrUnknownRequest is returned when a decryption delivery references a
	// request the co-processor has no record of.
	ErrUnknownRequest = errors.New("fhe: unknown decryption request")
)

// Handle is an opaque reference to an encrypted uint32. The zero value is the
// empty handle and is rejected by every arithmetic operation. Handles are
// immutable: arithmetic always produces a new handle.
type Handle struct {
	blob []byte
}

// IsEmpty reports whether the handle has been initialised.
func (h Handle) IsEmpty() bool {
	return len(h.blob) == 0
}

// Marshal returns the serialized form of a handle for storage or transport.
// The bytes are sealed; they cannot be used for arithmetic or decryption
// outside the co-processor holding the sealing key.
func Marshal(h Handle) []byte {
	if len(h.blob) == 0 {
		return nil
	}
	out := make([]byte, len(h.blob))
	copy(out, h.blob)
	return out
}

// Unmarshal reconstructs a handle from its serialized form.
func Unmarshal(data []byte) Handle {
	if len(data) == 0 {
		return Handle{}
	}
	blob := make([]byte, len(data))
	copy(blob, data)
	return Handle{blob: blob}
}

// Coprocessor is the homomorphic arithmetic capability. All operations are
// referentially transparent: the same operand handles always yield the same
// result handle. Arithmetic follows uint32 semantics, wrapping on overflow
// and underflow; division truncates toward zero.
type Coprocessor interface {
	// Encrypt seals a plaintext constant into a fresh handle.
	Encrypt(value uint32) (Handle, error)
	// Add returns a handle encrypting a + b.
	Add(a, b Handle) (Handle, error)
	// Sub returns a handle encrypting a - b.
	Sub(a, b Handle) (Handle, error)
	// Mul returns a handle encrypting a * b.
	Mul(a, b Handle) (Handle, error)
	// Div returns a handle encrypting a / b with integer truncation. Division
	// by an encrypted zero fails with ErrDegenerateDivisor.
	Div(a, b Handle) (Handle, error)
	// AbsDiff returns a handle encrypting |a - b|.
	AbsDiff(a, b Handle) (Handle, error)
	// And returns a handle encrypting the bitwise AND of a and b.
	And(a, b Handle) (Handle, error)
	// Gt returns a handle encrypting 1 when a > b and 0 otherwise.
	Gt(a, b Handle) (Handle, error)
	// Select returns a when cond encrypts a non-zero value and b otherwise.
	Select(cond, a, b Handle) (Handle, error)
}

// Decryptor issues asynchronous decryption requests. The returned request
// identifier correlates the eventual out-of-band delivery of
// (identifier, plaintext, proof) back into the core.
type Decryptor interface {
	RequestDecryption(ctx context.Context, ciphertexts [][]byte) (string, error)
}

// DecryptionResult is the payload delivered by the co-processor once a
// decryption request completes. Plaintext carries one big-endian uint32 per
// requested ciphertext; Proof attests to (RequestID, Plaintext).
type DecryptionResult struct {
	RequestID string
	Plaintext []byte
	Proof     []byte
}

// ProofVerifier checks the authenticity of a decryption delivery before any
// plaintext is trusted. The request identifier is part of the attested
// message, which pins a proof to a single request.
type ProofVerifier interface {
	Verify(requestID string, plaintext, proof []byte) error
}
