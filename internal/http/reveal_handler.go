package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/confidential-scheduler/internal/application"
)

type revealService interface {
	RequestReveal(ctx context.Context, principal application.Principal, employee string) (string, error)
	ResolveReveal(ctx context.Context, requestID string, plaintext, proof []byte) error
	RevealStatus(ctx context.Context, principal application.Principal, employee string) (application.RevealState, error)
	RevealedSchedule(ctx context.Context, principal application.Principal, employee string) (application.RevealedSchedule, error)
}

// RevealHandler serves the reveal protocol endpoints, including the
// co-processor's delivery callback.
type RevealHandler struct {
	service   revealService
	responder responder
	logger    *slog.Logger
}

func NewRevealHandler(service revealService, logger *slog.Logger) *RevealHandler {
	base := defaultLogger(logger)
	return &RevealHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RevealHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RevealHandler", operation, attrs...)
}

// Request starts the reveal protocol for the caller's schedule.
func (h *RevealHandler) Request(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	employeeID, ok := EmployeeIDFromContext(r.Context())
	if !ok || strings.TrimSpace(employeeID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEmployeeID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Request", "principal_id", principal.UserID, "employee_id", employeeID)

	requestID, err := h.service.RequestReveal(r.Context(), principal, employeeID)
	if err != nil {
		logger.ErrorContext(r.Context(), "reveal request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("request_id", requestID).InfoContext(r.Context(), "reveal requested")
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, map[string]string{"request_id": requestID})
}

// Status reports the coordinator state without exposing plaintext.
func (h *RevealHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	employeeID, ok := EmployeeIDFromContext(r.Context())
	if !ok || strings.TrimSpace(employeeID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEmployeeID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Status", "principal_id", principal.UserID, "employee_id", employeeID)

	state, err := h.service.RevealStatus(r.Context(), principal, employeeID)
	if err != nil {
		logger.ErrorContext(r.Context(), "reveal status read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"state": string(state)})
}

type revealedScheduleDTO struct {
	EmployeeID string `json:"employee_id"`
	OfficeDays uint32 `json:"office_days"`
	CollabDays uint32 `json:"collab_days"`
	RevealedAt string `json:"revealed_at"`
}

// Schedule returns the revealed plaintext schedule to its owner.
func (h *RevealHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	employeeID, ok := EmployeeIDFromContext(r.Context())
	if !ok || strings.TrimSpace(employeeID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEmployeeID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Schedule", "principal_id", principal.UserID, "employee_id", employeeID)

	schedule, err := h.service.RevealedSchedule(r.Context(), principal, employeeID)
	if err != nil {
		logger.ErrorContext(r.Context(), "revealed schedule read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dto := revealedScheduleDTO{
		EmployeeID: schedule.Employee,
		OfficeDays: schedule.OfficeDays,
		CollabDays: schedule.CollabDays,
	}
	if schedule.RevealedAt != nil {
		dto.RevealedAt = formatTime(*schedule.RevealedAt)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dto)
}

type decryptionResultRequest struct {
	RequestID string `json:"request_id"`
	Plaintext string `json:"plaintext"`
	Proof     string `json:"proof"`
}

// Resolve accepts the co-processor's asynchronous delivery. The endpoint is
// mounted outside the identity middleware; the attestation proof carried in
// the body is the authentication.
func (h *RevealHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req decryptionResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Resolve", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode decryption result", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Resolve", "request_id", req.RequestID)

	plaintext, err := base64.StdEncoding.DecodeString(req.Plaintext)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	proof, err := base64.StdEncoding.DecodeString(req.Proof)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.service.ResolveReveal(r.Context(), req.RequestID, plaintext, proof); err != nil {
		logger.ErrorContext(r.Context(), "reveal resolution failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "schedule revealed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
