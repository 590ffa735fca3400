package handler

import (
	"net/http"

	"github.com/chatwire/internal/service"
)

type PresenceHandler struct {
	presence *service.PresenceService
}

func NewPresenceHandler(presence *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

type OnlineResponse struct {
	UserIDs []string `json:"user_ids"`
}

// Online returns the current global roster. Real-time deltas flow over the
// presence channel; this is the bootstrap snapshot.
func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	ids, err := h.presence.OnlineUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OnlineResponse{UserIDs: ids})
}
