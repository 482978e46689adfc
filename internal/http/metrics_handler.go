package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/confidential-scheduler/internal/application"
	"github.com/example/confidential-scheduler/internal/fhe"
)

type metricsService interface {
	Satisfaction(ctx context.Context, principal application.Principal, employee string) (fhe.Handle, error)
	FocusTime(ctx context.Context, principal application.Principal, employee string) (fhe.Handle, error)
	WorkLifeBalance(ctx context.Context, principal application.Principal, employee string) (fhe.Handle, error)
	Recommendation(ctx context.Context, principal application.Principal, employee string) (fhe.Handle, error)
	Adherence(ctx context.Context, principal application.Principal, employee string) (fhe.Handle, error)
	TeamCollaboration(ctx context.Context, principal application.Principal, team string) (fhe.Handle, error)
	FlexibilityUtilization(ctx context.Context, principal application.Principal, team string) (fhe.Handle, error)
	Efficiency(ctx context.Context, principal application.Principal, team string) (fhe.Handle, error)
	Conflict(ctx context.Context, principal application.Principal, team string) (fhe.Handle, error)
	RemoteWorkImpact(ctx context.Context, principal application.Principal, team string) (fhe.Handle, error)
}

// MetricsHandler serves the derived-metric endpoints. Every response carries
// a single encrypted handle; plaintext never appears here.
type MetricsHandler struct {
	service   metricsService
	responder responder
	logger    *slog.Logger
}

func NewMetricsHandler(service metricsService, logger *slog.Logger) *MetricsHandler {
	base := defaultLogger(logger)
	return &MetricsHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MetricsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MetricsHandler", operation, attrs...)
}

type metricResponse struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

// Employee serves a per-employee metric selected by name.
func (h *MetricsHandler) Employee(w http.ResponseWriter, r *http.Request, metric string) {
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

	var compute func(context.Context, application.Principal, string) (fhe.Handle, error)
	switch metric {
	case "satisfaction":
		compute = h.service.Satisfaction
	case "focus-time":
		compute = h.service.FocusTime
	case "work-life-balance":
		compute = h.service.WorkLifeBalance
	case "recommendation":
		compute = h.service.Recommendation
	case "adherence":
		compute = h.service.Adherence
	default:
		h.responder.writeError(r.Context(), w, http.StatusNotFound, errUnknownMetric)
		return
	}

	logger := h.log(r.Context(), "Employee", "principal_id", principal.UserID, "employee_id", employeeID, "metric", metric)

	handle, err := compute(r.Context(), principal, employeeID)
	if err != nil {
		logger.ErrorContext(r.Context(), "metric computation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, metricResponse{Metric: metric, Value: encodeHandle(handle)})
}

// Team serves a per-team metric selected by name.
func (h *MetricsHandler) Team(w http.ResponseWriter, r *http.Request, metric string) {
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

	var compute func(context.Context, application.Principal, string) (fhe.Handle, error)
	switch metric {
	case "collaboration":
		compute = h.service.TeamCollaboration
	case "flexibility":
		compute = h.service.FlexibilityUtilization
	case "efficiency":
		compute = h.service.Efficiency
	case "conflict":
		compute = h.service.Conflict
	case "remote-impact":
		compute = h.service.RemoteWorkImpact
	default:
		h.responder.writeError(r.Context(), w, http.StatusNotFound, errUnknownMetric)
		return
	}

	logger := h.log(r.Context(), "Team", "principal_id", principal.UserID, "team_id", teamID, "metric", metric)

	handle, err := compute(r.Context(), principal, teamID)
	if err != nil {
		logger.ErrorContext(r.Context(), "metric computation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, metricResponse{Metric: metric, Value: encodeHandle(handle)})
}
