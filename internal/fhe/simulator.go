package fhe

import (
	"context"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

// SoftwareCoprocessor is an in-process implementation of the Coprocessor and
// Decryptor capabilities. Handles are uint32 values sealed with
// ChaCha20-Poly1305 under a process-local key; decryption results are signed
// with an Ed25519 attestation key so deliveries can be verified exactly the
// way an external co-processor's would be.
//
// Sealing uses a nonce derived from the plaintext, which keeps the
// capability referentially transparent: encrypting the same value twice
// yields byte-identical handles.
type SoftwareCoprocessor struct {
	aead      cipher.AEAD
	sealKey   []byte
	attestKey ed25519.PrivateKey

	mu      sync.Mutex
	pending map[string][][]byte
}

// NewSoftwareCoprocessor constructs a simulator from a 32-byte sealing key
// and an Ed25519 attestation key.
func NewSoftwareCoprocessor(sealKey []byte, attestKey ed25519.PrivateKey) (*SoftwareCoprocessor, error) {
	aead, err := chacha20poly1305.New(sealKey)
	if err != nil {
		return nil, fmt.Errorf("fhe: invalid sealing key: %w", err)
	}
	if len(attestKey) != ed25519.PrivateKeySize {
		return nil, errors.New("fhe: invalid attestation key")
	}
	key := make([]byte, len(sealKey))
	copy(key, sealKey)
	return &SoftwareCoprocessor{
		aead:      aead,
		sealKey:   key,
		attestKey: attestKey,
		pending:   make(map[string][][]byte),
	}, nil
}

// AttestationPublicKey returns the public half of the attestation key.
func (c *SoftwareCoprocessor) AttestationPublicKey() ed25519.PublicKey {
	return c.attestKey.Public().(ed25519.PublicKey)
}

func (c *SoftwareCoprocessor) seal(value uint32) Handle {
	plaintext := make([]byte, 4)
	binary.BigEndian.PutUint32(plaintext, value)

	// Nonce derived from key and plaintext so sealing is deterministic.
	sum := sha256.Sum256(append(append([]byte{}, c.sealKey...), plaintext...))
	nonce := sum[:chacha20poly1305.NonceSize]

	blob := make([]byte, 0, chacha20poly1305.NonceSize+4+chacha20poly1305.Overhead)
	blob = append(blob, nonce...)
	blob = c.aead.Seal(blob, nonce, plaintext, nil)
	return Handle{blob: blob}
}

func (c *SoftwareCoprocessor) open(h Handle) (uint32, error) {
	if h.IsEmpty() {
		return 0, ErrEmptyHandle
	}
	if len(h.blob) < chacha20poly1305.NonceSize+4 {
		return 0, ErrMalformedHandle
	}
	nonce := h.blob[:chacha20poly1305.NonceSize]
	plaintext, err := c.aead.Open(nil, nonce, h.blob[chacha20poly1305.NonceSize:], nil)
	if err != nil || len(plaintext) != 4 {
		return 0, ErrMalformedHandle
	}
	return binary.BigEndian.Uint32(plaintext), nil
}

// Encrypt seals a plaintext constant into a fresh handle.
func (c *SoftwareCoprocessor) Encrypt(value uint32) (Handle, error) {
	return c.seal(value), nil
}

func (c *SoftwareCoprocessor) binaryOp(a, b Handle, op func(x, y uint32) (uint32, error)) (Handle, error) {
	x, err := c.open(a)
	if err != nil {
		return Handle{}, err
	}
	y, err := c.open(b)
	if err != nil {
		return Handle{}, err
	}
	result, err := op(x, y)
	if err != nil {
		return Handle{}, err
	}
	return c.seal(result), nil
}

// Add returns a handle encrypting a + b mod 2^32.
func (c *SoftwareCoprocessor) Add(a, b Handle) (Handle, error) {
	return c.binaryOp(a, b, func(x, y uint32) (uint32, error) { return x + y, nil })
}

// Sub returns a handle encrypting a - b mod 2^32.
func (c *SoftwareCoprocessor) Sub(a, b Handle) (Handle, error) {
	return c.binaryOp(a, b, func(x, y uint32) (uint32, error) { return x - y, nil })
}

// Mul returns a handle encrypting a * b mod 2^32.
func (c *SoftwareCoprocessor) Mul(a, b Handle) (Handle, error) {
	return c.binaryOp(a, b, func(x, y uint32) (uint32, error) { return x * y, nil })
}

// Div returns a handle encrypting a / b with integer truncation.
func (c *SoftwareCoprocessor) Div(a, b Handle) (Handle, error) {
	return c.binaryOp(a, b, func(x, y uint32) (uint32, error) {
		if y == 0 {
			return 0, ErrDegenerateDivisor
		}
		return x / y, nil
	})
}

// AbsDiff returns a handle encrypting |a - b|.
func (c *SoftwareCoprocessor) AbsDiff(a, b Handle) (Handle, error) {
	return c.binaryOp(a, b, func(x, y uint32) (uint32, error) {
		if x > y {
			return x - y, nil
		}
		return y - x, nil
	})
}

// And returns a handle encrypting the bitwise AND of a and b.
func (c *SoftwareCoprocessor) And(a, b Handle) (Handle, error) {
	return c.binaryOp(a, b, func(x, y uint32) (uint32, error) { return x & y, nil })
}

// Gt returns a handle encrypting 1 when a > b and 0 otherwise.
func (c *SoftwareCoprocessor) Gt(a, b Handle) (Handle, error) {
	return c.binaryOp(a, b, func(x, y uint32) (uint32, error) {
		if x > y {
			return 1, nil
		}
		return 0, nil
	})
}

// Select returns a when cond encrypts a non-zero value and b otherwise.
func (c *SoftwareCoprocessor) Select(cond, a, b Handle) (Handle, error) {
	flag, err := c.open(cond)
	if err != nil {
		return Handle{}, err
	}
	x, err := c.open(a)
	if err != nil {
		return Handle{}, err
	}
	y, err := c.open(b)
	if err != nil {
		return Handle{}, err
	}
	if flag != 0 {
		return c.seal(x), nil
	}
	return c.seal(y), nil
}

// RequestDecryption registers a pending decryption for the supplied sealed
// ciphertexts and returns the request identifier. The result is produced
// later by Deliver, mirroring the out-of-band callback of a real
// co-processor.
func (c *SoftwareCoprocessor) RequestDecryption(_ context.Context, ciphertexts [][]byte) (string, error) {
	if len(ciphertexts) == 0 {
		return "", errors.New("fhe: no ciphertexts to decrypt")
	}
	blobs := make([][]byte, len(ciphertexts))
	for i, ct := range ciphertexts {
		if len(ct) == 0 {
			return "", ErrEmptyHandle
		}
		blobs[i] = append([]byte(nil), ct...)
	}

	id := uuid.NewString()
	c.mu.Lock()
	c.pending[id] = blobs
	c.mu.Unlock()
	return id, nil
}

// Deliver decrypts the ciphertexts of a pending request and returns the
// signed result. The pending entry is consumed; a second delivery for the
// same identifier fails with ErrUnknownRequest.
func (c *SoftwareCoprocessor) Deliver(requestID string) (DecryptionResult, error) {
	c.mu.Lock()
	blobs, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()
	if !ok {
		return DecryptionResult{}, ErrUnknownRequest
	}

	plaintext := make([]byte, 0, 4*len(blobs))
	for _, blob := range blobs {
		value, err := c.open(Unmarshal(blob))
		if err != nil {
			return DecryptionResult{}, err
		}
		plaintext = binary.BigEndian.AppendUint32(plaintext, value)
	}

	proof := ed25519.Sign(c.attestKey, attestationMessage(requestID, plaintext))
	return DecryptionResult{RequestID: requestID, Plaintext: plaintext, Proof: proof}, nil
}

func attestationMessage(requestID string, plaintext []byte) []byte {
	message := make([]byte, 0, len(requestID)+1+len(plaintext))
	message = append(message, requestID...)
	message = append(message, 0)
	message = append(message, plaintext...)
	return message
}

// Ed25519Verifier verifies decryption proofs against the co-processor's
// attestation public key.
type Ed25519Verifier struct {
	key ed25519.PublicKey
}

// NewEd25519Verifier constructs a verifier for the supplied public key.
func NewEd25519Verifier(key ed25519.PublicKey) (*Ed25519Verifier, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, errors.New("fhe: invalid attestation public key")
	}
	return &Ed25519Verifier{key: append(ed25519.PublicKey(nil), key...)}, nil
}

// ErrInvalidProof is returned when a delivery's proof does not verify.
var ErrInvalidProof = errors.New("fhe: invalid decryption proof")

// Verify checks the proof over (requestID, plaintext).
func (v *Ed25519Verifier) Verify(requestID string, plaintext, proof []byte) error {
	if v == nil || len(v.key) != ed25519.PublicKeySize {
		return ErrInvalidProof
	}
	if !ed25519.Verify(v.key, attestationMessage(requestID, plaintext), proof) {
		return ErrInvalidProof
	}
	return nil
}
