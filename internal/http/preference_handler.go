package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/confidential-scheduler/internal/application"
)

type preferenceService interface {
	SubmitPreference(ctx context.Context, params application.SubmitPreferenceParams) (application.PreferenceRecord, error)
	LatestPreference(ctx context.Context, principal application.Principal, employee string) (application.PreferenceRecord, error)
	PreferenceHistory(ctx context.Context, principal application.Principal, employee string) ([]application.PreferenceRecord, error)
}

// PreferenceHandler serves the encrypted preference ledger endpoints.
type PreferenceHandler struct {
	service   preferenceService
	responder responder
	logger    *slog.Logger
}

func NewPreferenceHandler(service preferenceService, logger *slog.Logger) *PreferenceHandler {
	base := defaultLogger(logger)
	return &PreferenceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PreferenceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PreferenceHandler", operation, attrs...)
}

type preferenceRequest struct {
	DaysInOffice string `json:"days_in_office"`
	TeamDays     string `json:"team_days"`
	FocusDays    string `json:"focus_days"`
	Flexibility  string `json:"flexibility"`
}

type preferenceDTO struct {
	ID           uint64 `json:"id"`
	EmployeeID   string `json:"employee_id"`
	DaysInOffice string `json:"days_in_office"`
	TeamDays     string `json:"team_days"`
	FocusDays    string `json:"focus_days"`
	Flexibility  string `json:"flexibility"`
	SubmittedAt  string `json:"submitted_at"`
}

func toPreferenceDTO(record application.PreferenceRecord) preferenceDTO {
	return preferenceDTO{
		ID:           record.ID,
		EmployeeID:   record.Employee,
		DaysInOffice: encodeHandle(record.DaysInOffice),
		TeamDays:     encodeHandle(record.TeamDays),
		FocusDays:    encodeHandle(record.FocusDays),
		Flexibility:  encodeHandle(record.Flexibility),
		SubmittedAt:  formatTime(record.SubmittedAt),
	}
}

// Submit appends the caller's encrypted preference to the ledger.
func (h *PreferenceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Submit", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode preference request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Submit", "principal_id", principal.UserID)

	params := application.SubmitPreferenceParams{Principal: principal}
	var err error
	if params.DaysInOffice, err = decodeHandle(req.DaysInOffice); err == nil {
		if params.TeamDays, err = decodeHandle(req.TeamDays); err == nil {
			if params.FocusDays, err = decodeHandle(req.FocusDays); err == nil {
				params.Flexibility, err = decodeHandle(req.Flexibility)
			}
		}
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "preference request carried malformed handles", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	record, err := h.service.SubmitPreference(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "preference submission failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("record_id", record.ID).InfoContext(r.Context(), "preference submitted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPreferenceDTO(record))
}

// Latest returns the employee's effective ledger entry.
func (h *PreferenceHandler) Latest(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "Latest", "principal_id", principal.UserID, "employee_id", employeeID)

	record, err := h.service.LatestPreference(r.Context(), principal, employeeID)
	if err != nil {
		logger.ErrorContext(r.Context(), "latest preference read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPreferenceDTO(record))
}

// History returns every ledger entry for the employee, oldest first.
func (h *PreferenceHandler) History(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "History", "principal_id", principal.UserID, "employee_id", employeeID)

	records, err := h.service.PreferenceHistory(r.Context(), principal, employeeID)
	if err != nil {
		logger.ErrorContext(r.Context(), "preference history read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]preferenceDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, toPreferenceDTO(record))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]preferenceDTO{"preferences": dtos})
}
