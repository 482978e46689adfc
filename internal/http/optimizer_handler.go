package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/confidential-scheduler/internal/application"
	"github.com/example/confidential-scheduler/internal/fhe"
)

type optimizerService interface {
	OptimizeTeam(ctx context.Context, principal application.Principal, team string) (application.TeamSchedule, error)
	AssignPersonal(ctx context.Context, principal application.Principal, employee, team string) (application.PersonalSchedule, error)
	AdjustForTeamEvents(ctx context.Context, principal application.Principal, team string, eventDays fhe.Handle) error
	AdjustForPersonalConstraints(ctx context.Context, principal application.Principal, employee string, maxOfficeDays fhe.Handle) error
	OptimizeCrossTeamCollab(ctx context.Context, principal application.Principal, teamA, teamB string) error
}

// OptimizerHandler serves the optimization and adjustment endpoints.
type OptimizerHandler struct {
	service   optimizerService
	responder responder
	logger    *slog.Logger
}

func NewOptimizerHandler(service optimizerService, logger *slog.Logger) *OptimizerHandler {
	base := defaultLogger(logger)
	return &OptimizerHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *OptimizerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "OptimizerHandler", operation, attrs...)
}

type teamScheduleDTO struct {
	TeamID       string `json:"team_id"`
	OfficeDays   string `json:"office_days"`
	CollabDays   string `json:"collab_days"`
	OverlapScore string `json:"overlap_score"`
	Optimized    bool   `json:"optimized"`
	UpdatedAt    string `json:"updated_at"`
}

type personalScheduleDTO struct {
	EmployeeID string `json:"employee_id"`
	OfficeDays string `json:"office_days"`
	CollabDays string `json:"collab_days"`
	Assigned   bool   `json:"assigned"`
	UpdatedAt  string `json:"updated_at"`
}

func toTeamScheduleDTO(schedule application.TeamSchedule) teamScheduleDTO {
	return teamScheduleDTO{
		TeamID:       schedule.Team,
		OfficeDays:   encodeHandle(schedule.OfficeDays),
		CollabDays:   encodeHandle(schedule.CollabDays),
		OverlapScore: encodeHandle(schedule.OverlapScore),
		Optimized:    schedule.Optimized,
		UpdatedAt:    formatTime(schedule.UpdatedAt),
	}
}

func toPersonalScheduleDTO(schedule application.PersonalSchedule) personalScheduleDTO {
	return personalScheduleDTO{
		EmployeeID: schedule.Employee,
		OfficeDays: encodeHandle(schedule.OfficeDays),
		CollabDays: encodeHandle(schedule.CollabDays),
		Assigned:   schedule.Assigned,
		UpdatedAt:  formatTime(schedule.UpdatedAt),
	}
}

// Optimize runs the encrypted optimization pass for a team.
func (h *OptimizerHandler) Optimize(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "Optimize", "principal_id", principal.UserID, "team_id", teamID)

	schedule, err := h.service.OptimizeTeam(r.Context(), principal, teamID)
	if err != nil {
		logger.ErrorContext(r.Context(), "team optimization failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "team optimized")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTeamScheduleDTO(schedule))
}

type assignmentRequest struct {
	TeamID string `json:"team_id"`
}

// Assign blends an employee's preference with their team's optimized
// schedule.
func (h *OptimizerHandler) Assign(w http.ResponseWriter, r *http.Request) {
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

	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Assign", "principal_id", principal.UserID, "employee_id", employeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode assignment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.TeamID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTeamID)
		return
	}

	logger := h.log(r.Context(), "Assign", "principal_id", principal.UserID, "employee_id", employeeID, "team_id", req.TeamID)

	schedule, err := h.service.AssignPersonal(r.Context(), principal, employeeID, req.TeamID)
	if err != nil {
		logger.ErrorContext(r.Context(), "personal assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "personal schedule assigned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPersonalScheduleDTO(schedule))
}

type teamEventsRequest struct {
	EventDays string `json:"event_days"`
}

// TeamEvents raises a team's collaboration days by an encrypted amount.
func (h *OptimizerHandler) TeamEvents(w http.ResponseWriter, r *http.Request) {
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

	var req teamEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	eventDays, err := decodeHandle(req.EventDays)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "TeamEvents", "principal_id", principal.UserID, "team_id", teamID)

	if err := h.service.AdjustForTeamEvents(r.Context(), principal, teamID, eventDays); err != nil {
		logger.ErrorContext(r.Context(), "team event adjustment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "team schedule adjusted for events")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type constraintsRequest struct {
	MaxOfficeDays string `json:"max_office_days"`
}

// Constraints clamps an assignment's office days to an encrypted bound.
func (h *OptimizerHandler) Constraints(w http.ResponseWriter, r *http.Request) {
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

	var req constraintsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	maxOfficeDays, err := decodeHandle(req.MaxOfficeDays)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Constraints", "principal_id", principal.UserID, "employee_id", employeeID)

	if err := h.service.AdjustForPersonalConstraints(r.Context(), principal, employeeID, maxOfficeDays); err != nil {
		logger.ErrorContext(r.Context(), "personal constraint adjustment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "personal schedule adjusted for constraints")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type collaborationRequest struct {
	PartnerTeamID string `json:"partner_team_id"`
}

// Collaboration raises the overlap scores of two optimized teams.
func (h *OptimizerHandler) Collaboration(w http.ResponseWriter, r *http.Request) {
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

	var req collaborationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.PartnerTeamID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTeamID)
		return
	}

	logger := h.log(r.Context(), "Collaboration", "principal_id", principal.UserID, "team_a", teamID, "team_b", req.PartnerTeamID)

	if err := h.service.OptimizeCrossTeamCollab(r.Context(), principal, teamID, req.PartnerTeamID); err != nil {
		logger.ErrorContext(r.Context(), "cross-team optimization failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "cross-team collaboration optimized")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
