package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatwire/internal/middleware"
	"github.com/chatwire/internal/service"
)

type ReactionHandler struct {
	reactions *service.ReactionService
}

func NewReactionHandler(reactions *service.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactions: reactions}
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

func (h *ReactionHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Emoji == "" {
		writeError(w, http.StatusBadRequest, "emoji is required")
		return
	}
	messageID := chi.URLParam(r, "messageID")
	userID := middleware.GetUserID(r.Context())

	mr, err := h.reactions.Add(r.Context(), messageID, userID, req.Emoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mr)
}

func (h *ReactionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	reactionID := chi.URLParam(r, "reactionID")
	userID := middleware.GetUserID(r.Context())

	if err := h.reactions.Remove(r.Context(), reactionID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Emoji == "" {
		writeError(w, http.StatusBadRequest, "emoji is required")
		return
	}
	reactionID := chi.URLParam(r, "reactionID")
	userID := middleware.GetUserID(r.Context())

	mr, err := h.reactions.Update(r.Context(), reactionID, userID, req.Emoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mr)
}

// Summary returns the per-emoji aggregate for a message, relative to the
// caller.
func (h *ReactionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")
	userID := middleware.GetUserID(r.Context())

	groups, err := h.reactions.Summarize(r.Context(), messageID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}
