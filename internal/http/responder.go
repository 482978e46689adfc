package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/confidential-scheduler/internal/application"
	"github.com/example/confidential-scheduler/internal/logging"
)

var (
	errBadRequestBody     = errors.New("the request body is not valid JSON")
	errInvalidEmployeeID  = errors.New("an employee identifier is required")
	errInvalidTeamID      = errors.New("a team identifier is required")
	errUnknownMetric      = errors.New("unknown metric name")
	errMissingIdentity    = errors.New("an employee identity or administrator token is required")
	errInvalidAdminToken  = errors.New("the administrator token is not valid")
	errInvalidHandle      = errors.New("ciphertext handles must be base64 encoded")
	errMissingHandleField = errors.New("every ciphertext handle field is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates application sentinels to HTTP statuses.
// Precondition failures map to 409 because the resource exists but is not in
// a state the operation accepts; protocol failures from the reveal path map
// to 422.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "you are not permitted to perform this operation",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrUnknownRequest):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "UNKNOWN_REQUEST",
			Message:   "no pending decryption request matches this identifier",
		})
	case errors.Is(err, application.ErrEmptyTeam):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "the team has no members to optimize"})
	case errors.Is(err, application.ErrNoPreference):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "the employee has not submitted a preference"})
	case errors.Is(err, application.ErrTeamNotOptimized):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "the team schedule has not been optimized yet"})
	case errors.Is(err, application.ErrNotAssigned):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "the employee has no assigned personal schedule"})
	case errors.Is(err, application.ErrAlreadyRevealed):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "the schedule has already been revealed"})
	case errors.Is(err, application.ErrRevealPending):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "an earlier reveal request is still pending"})
	case errors.Is(err, application.ErrInvalidProof):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "INVALID_PROOF",
			Message:   "the decryption proof did not verify",
		})
	case errors.Is(err, application.ErrMalformedPayload):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "MALFORMED_PAYLOAD",
			Message:   "the decryption payload does not have the expected shape",
		})
	case errors.Is(err, application.ErrArithmeticDegenerate):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "ARITHMETIC_DEGENERATE",
			Message:   "the computation divided by an encrypted zero",
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is not valid"
	case http.StatusUnauthorized:
		return "authentication is required"
	case http.StatusForbidden:
		return "you are not permitted to perform this operation"
	case http.StatusNotFound:
		return "the requested resource was not found"
	case http.StatusConflict:
		return "the request conflicts with the current resource state"
	case http.StatusUnprocessableEntity:
		return "the request content could not be processed"
	default:
		return "an internal error occurred"
	}
}

type errorResponse struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}
