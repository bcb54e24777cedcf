package appointments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/barangay-bonliw/appointments/internal/civil"
	"github.com/barangay-bonliw/appointments/internal/identity"
	"github.com/barangay-bonliw/appointments/pkg/logging"
)

// Handler exposes the appointment operations over HTTP. The auth middleware
// has already placed the caller identity in context by the time these run.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates an appointments HTTP handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Book handles POST /api/appointments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	appt, err := h.svc.Book(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":       "Appointment created successfully",
		"appointmentId": appt.ID,
		"appointment":   appt,
	})
}

// Get handles GET /api/appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	id, err := appointmentID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid appointment id", "")
		return
	}

	appt, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ListMine handles GET /api/appointments/mine.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	appts, err := h.svc.ListMine(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

// ListAll handles GET /api/appointments/all (admin).
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	filter := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	appts, err := h.svc.ListAll(r.Context(), actor, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

type statusRequest struct {
	Status Status `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// SetStatus handles PUT /api/appointments/{id}/status (admin).
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	id, err := appointmentID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid appointment id", "")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	appt, err := h.svc.SetStatus(r.Context(), actor, id, req.Status, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type rescheduleRequest struct {
	Date civil.Date      `json:"date"`
	Time civil.TimeOfDay `json:"time"`
}

// Reschedule handles PUT /api/appointments/{id}/schedule (admin).
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	id, err := appointmentID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid appointment id", "")
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), actor, id, req.Date, req.Time)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Delete handles DELETE /api/appointments/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	id, err := appointmentID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid appointment id", "")
		return
	}

	if err := h.svc.Cancel(r.Context(), actor, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment deleted successfully"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSONError(w, http.StatusBadRequest, vErr.Error(), string(vErr.Reason))
	case errors.Is(err, ErrSlotTaken):
		writeJSONError(w, http.StatusConflict, "Time slot not available", "slot-taken")
	case errors.Is(err, ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Appointment not found", "")
	case errors.Is(err, ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "Access denied", "")
	case errors.Is(err, ErrInvalidTransition):
		writeJSONError(w, http.StatusConflict, "Invalid status transition", "invalid-transition")
	case errors.Is(err, ErrInvalidState):
		writeJSONError(w, http.StatusConflict, "Only pending appointments can be rescheduled", "invalid-state")
	default:
		h.logger.Error("appointment request failed", "error", err, "path", r.URL.Path)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func appointmentID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg, reason string) {
	body := map[string]string{"error": msg}
	if reason != "" {
		body["reason"] = reason
	}
	writeJSON(w, status, body)
}
