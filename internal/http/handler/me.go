package handler

import (
	"log/slog"
	"net/http"

	"daybook/internal/auth"
)

type MeHandler struct {
	Svc *auth.Service
	Log *slog.Logger
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	u, err := h.Svc.Me(r.Context(), uid)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}
