package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"daybook/internal/auth"
	"daybook/internal/export"
	"daybook/internal/journal"
)

type ExportHandler struct {
	Journal *journal.Service
	Auth    *auth.Service
	Log     *slog.Logger
}

// Markdown downloads the entries between from and to (inclusive) as one document.
// from defaults to 30 days ago and to defaults to today.
func (h *ExportHandler) Markdown(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	today := h.Journal.Today()
	from, to := today.AddDate(0, 0, -30), today
	if d, err := queryDate(r, "from"); err != nil {
		writeError(w, r, h.Log, err)
		return
	} else if d != nil {
		from = *d
	}
	if d, err := queryDate(r, "to"); err != nil {
		writeError(w, r, h.Log, err)
		return
	} else if d != nil {
		to = *d
	}

	entries, err := h.Journal.GetEntriesForExport(r.Context(), uid, from, to)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	doc := export.Document{From: from, To: to, Entries: entries}
	if u, err := h.Auth.Me(r.Context(), uid); err == nil {
		doc.Owner = u.Username
	}

	var buf bytes.Buffer
	if err := export.Render(&buf, doc); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
