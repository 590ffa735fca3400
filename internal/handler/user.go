package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chatwire/internal/middleware"
	"github.com/chatwire/internal/model"
	"github.com/chatwire/internal/repository"
)

type UserHandler struct {
	users  *repository.UserRepository
	secret []byte
}

func NewUserHandler(users *repository.UserRepository, secret []byte) *UserHandler {
	return &UserHandler{users: users, secret: secret}
}

type CreateUserRequest struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	u := &model.User{
		ID:        uuid.New().String(),
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.users.Create(r.Context(), u); err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.signToken(u.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": u, "token": token})
}

type TokenRequest struct {
	UserID string `json:"user_id"`
}

// Token issues an access token for an existing user. Identity verification
// lives in a separate service; this endpoint only asserts the account exists.
func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	u, err := h.users.GetByID(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeServiceError(w, err)
		return
	}

	token, err := h.signToken(u.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *UserHandler) signToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(30 * 24 * time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u.ToPublic())
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
