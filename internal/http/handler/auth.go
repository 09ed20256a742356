package handler

import (
	"log/slog"
	"net/http"
	"time"

	"daybook/internal/auth"
)

type AuthHandler struct {
	Svc *auth.Service
	Log *slog.Logger
}

type userDTO struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenDTO struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

func toUserDTO(u *auth.User) userDTO {
	return userDTO{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	u, token, err := h.Svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenDTO{Token: token, User: toUserDTO(u)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	u, token, err := h.Svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenDTO{Token: token, User: toUserDTO(u)})
}
