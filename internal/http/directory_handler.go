package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/confidential-scheduler/internal/application"
)

type directoryService interface {
	AddMember(ctx context.Context, principal application.Principal, team, employee string) error
	Members(ctx context.Context, principal application.Principal, team string) ([]string, error)
}

// DirectoryHandler serves the team roster endpoints.
type DirectoryHandler struct {
	service   directoryService
	responder responder
	logger    *slog.Logger
}

func NewDirectoryHandler(service directoryService, logger *slog.Logger) *DirectoryHandler {
	base := defaultLogger(logger)
	return &DirectoryHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DirectoryHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "DirectoryHandler", operation, attrs...)
}

type addMemberRequest struct {
	EmployeeID string `json:"employee_id"`
}

// AddMember appends an employee to the team roster.
func (h *DirectoryHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID, ok := TeamIDFromContext(r.Context())
	if !ok || strings.TrimSpace(teamID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTeamID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "AddMember", "principal_id", principal.UserID, "team_id", teamID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode member request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AddMember", "principal_id", principal.UserID, "team_id", teamID)

	if err := h.service.AddMember(r.Context(), principal, teamID, req.EmployeeID); err != nil {
		logger.ErrorContext(r.Context(), "member addition failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("employee_id", req.EmployeeID).InfoContext(r.Context(), "member added")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Members returns the roster in insertion order.
func (h *DirectoryHandler) Members(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID, ok := TeamIDFromContext(r.Context())
	if !ok || strings.TrimSpace(teamID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTeamID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Members", "principal_id", principal.UserID, "team_id", teamID)

	members, err := h.service.Members(r.Context(), principal, teamID)
	if err != nil {
		logger.ErrorContext(r.Context(), "member list read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if members == nil {
		members = []string{}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]string{"members": members})
}
