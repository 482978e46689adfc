package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/confidential-scheduler/internal/application"
	"github.com/example/confidential-scheduler/internal/fhe"
)

const (
	deliveryTimeout       = 10 * time.Second
	deliveryRetryInterval = 50 * time.Millisecond
	deliveryRetryLimit    = 20
)

// decryptionBridge stands in for the out-of-band delivery channel of a real
// co-processor deployment. Every issued request is answered asynchronously
// by handing the signed result to the resolver. The correlation entry is
// written after the request is issued, so an early delivery retries briefly
// on an unknown request identifier.
type decryptionBridge struct {
	coproc *fhe.SoftwareCoprocessor
	logger *slog.Logger

	resolve func(ctx context.Context, requestID string, plaintext, proof []byte) error
}

func newDecryptionBridge(coproc *fhe.SoftwareCoprocessor, logger *slog.Logger) *decryptionBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &decryptionBridge{coproc: coproc, logger: logger}
}

// SetResolver wires the delivery target. It must be called before the first
// decryption request is issued.
func (b *decryptionBridge) SetResolver(resolve func(ctx context.Context, requestID string, plaintext, proof []byte) error) {
	b.resolve = resolve
}

func (b *decryptionBridge) RequestDecryption(ctx context.Context, ciphertexts [][]byte) (string, error) {
	requestID, err := b.coproc.RequestDecryption(ctx, ciphertexts)
	if err != nil {
		return "", err
	}
	go b.deliver(requestID)
	return requestID, nil
}

func (b *decryptionBridge) deliver(requestID string) {
	result, err := b.coproc.Deliver(requestID)
	if err != nil {
		b.logger.Error("decryption delivery failed", "request_id", requestID, "error", err)
		return
	}
	if b.resolve == nil {
		b.logger.Error("no resolver wired for decryption deliveries", "request_id", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		err = b.resolve(ctx, result.RequestID, result.Plaintext, result.Proof)
		if err == nil {
			return
		}
		if !errors.Is(err, application.ErrUnknownRequest) || attempt >= deliveryRetryLimit {
			break
		}
		time.Sleep(deliveryRetryInterval)
	}
	b.logger.Error("reveal resolution failed", "request_id", requestID, "error", err)
}
