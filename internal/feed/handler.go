package feed

import (
	"encoding/json"
	"net/http"

	"github.com/barangay-bonliw/appointments/internal/identity"
	"github.com/barangay-bonliw/appointments/pkg/logging"
)

// Handler serves GET /api/notifications.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	items, err := h.repo.For(r.Context(), actor)
	if err != nil {
		h.logger.Error("notifications feed failed", "user_id", actor.UserID, "error", err)
		http.Error(w, "failed to fetch notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"notifications": items})
}
