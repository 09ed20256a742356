package handler

import (
	"log/slog"
	"net/http"

	"daybook/internal/auth"
	"daybook/internal/journal"
)

type StatsHandler struct {
	Svc *journal.Service
	Log *slog.Logger
}

type wordPointDTO struct {
	Date      string `json:"date"`
	WordCount int    `json:"word_count"`
}

func (h *StatsHandler) Moods(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	out, err := h.Svc.MoodDistribution(r.Context(), uid)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *StatsHandler) Tags(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	out, err := h.Svc.TagUsage(r.Context(), uid)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *StatsHandler) Words(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	days, err := queryInt(r, "days", 30)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if days > 366 {
		days = 366
	}

	points, err := h.Svc.WordCountTrend(r.Context(), uid, days)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	out := make([]wordPointDTO, 0, len(points))
	for _, p := range points {
		out = append(out, wordPointDTO{Date: p.Date.Format(journal.DateLayout), WordCount: p.WordCount})
	}
	writeJSON(w, http.StatusOK, out)
}
