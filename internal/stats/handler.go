package stats

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/barangay-bonliw/appointments/internal/identity"
	"github.com/barangay-bonliw/appointments/pkg/logging"
)

// Handler serves the admin reporting endpoints.
type Handler struct {
	repo   *Repository
	clock  func() time.Time
	logger *logging.Logger
}

// NewHandler creates a stats handler. clock may be nil.
func NewHandler(repo *Repository, clock func() time.Time, logger *logging.Logger) *Handler {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, clock: clock, logger: logger}
}

// Monthly handles GET /api/stats/monthly?year=.
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	year := h.clock().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "year must be a number", http.StatusBadRequest)
			return
		}
		year = v
	}

	report, err := h.repo.Monthly(r.Context(), year)
	if err != nil {
		h.logger.Error("monthly stats failed", "year", year, "error", err)
		http.Error(w, "failed to fetch monthly stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, report)
}

// Daily handles GET /api/stats/daily?year=&month=.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	now := h.clock()
	year, month := now.Year(), now.Month()
	if raw := r.URL.Query().Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "year must be a number", http.StatusBadRequest)
			return
		}
		year = v
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			http.Error(w, "month must be 1-12", http.StatusBadRequest)
			return
		}
		month = time.Month(v)
	}

	report, err := h.repo.Daily(r.Context(), year, month)
	if err != nil {
		h.logger.Error("daily stats failed", "year", year, "month", month, "error", err)
		http.Error(w, "failed to fetch daily stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, report)
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return false
	}
	if !actor.IsAdmin() {
		http.Error(w, "access denied", http.StatusForbidden)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
