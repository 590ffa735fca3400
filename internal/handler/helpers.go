package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/chatwire/internal/logger"
	"github.com/chatwire/internal/repository"
	"github.com/chatwire/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors to HTTP statuses. Anything unmapped is
// a 500 with a generic message.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "not a chat participant")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrPinLimitExceeded):
		writeError(w, http.StatusConflict, "pin limit exceeded")
	case errors.Is(err, repository.ErrDuplicateReaction):
		writeError(w, http.StatusConflict, "reaction already exists")
	case errors.Is(err, service.ErrInvalidMuteDuration),
		errors.Is(err, service.ErrInvalidReplyTarget),
		errors.Is(err, service.ErrInvalidMessageType),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrSelfChat),
		errors.Is(err, service.ErrBadCursor):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCannotForwardDeleted):
		writeError(w, http.StatusGone, "message no longer available")
	default:
		logger.Errorf("handler: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
