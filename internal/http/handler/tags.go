package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"daybook/internal/apperr"
	"daybook/internal/auth"
	"daybook/internal/journal"
)

type TagHandler struct {
	Svc *journal.Service
	Log *slog.Logger
}

// List returns the caller's tags, with the pre-built ones unless prebuilt=false.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	includePreBuilt := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("prebuilt"))) != "false"

	tags, err := h.Svc.ListTags(r.Context(), uid, includePreBuilt)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	out := make([]tagDTO, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var in journal.TagInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	t, err := h.Svc.CreateTag(r.Context(), uid, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTagDTO(*t))
}

// Delete removes one of the caller's own tags. Pre-built tags report 404.
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	deleted, err := h.Svc.DeleteTag(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if !deleted {
		writeError(w, r, h.Log, apperr.NotFound("tag not found or not deletable"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
