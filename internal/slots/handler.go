package slots

import (
	"encoding/json"
	"net/http"

	"github.com/barangay-bonliw/appointments/internal/civil"
	"github.com/barangay-bonliw/appointments/pkg/logging"
)

// Handler serves the available-slots listing.
type Handler struct {
	availability *Availability
	logger       *logging.Logger
}

// NewHandler creates a slots HTTP handler.
func NewHandler(availability *Availability, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{availability: availability, logger: logger}
}

type slotsResponse struct {
	Date  civil.Date        `json:"date"`
	Slots []civil.TimeOfDay `json:"slots"`
}

// List handles GET /api/appointments/time-slots?date=YYYY-MM-DD.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		http.Error(w, "date query parameter is required", http.StatusBadRequest)
		return
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	free, err := h.availability.Available(r.Context(), d)
	if err != nil {
		h.logger.Error("available slots lookup failed", "date", d.String(), "error", err)
		http.Error(w, "failed to fetch time slots", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(slotsResponse{Date: d, Slots: free})
}
