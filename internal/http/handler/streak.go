package handler

import (
	"log/slog"
	"net/http"

	"daybook/internal/auth"
	"daybook/internal/journal"
)

type StreakHandler struct {
	Svc *journal.Service
	Log *slog.Logger
}

type streakDTO struct {
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
	LastEntryDate *string `json:"last_entry_date"`
	MissedDays    int     `json:"missed_days"`
}

func toStreakDTO(st *journal.Streak, missed int) streakDTO {
	out := streakDTO{
		CurrentStreak: st.CurrentStreak,
		LongestStreak: st.LongestStreak,
		MissedDays:    missed,
	}
	if st.LastEntryDate != nil {
		d := st.LastEntryDate.Format(journal.DateLayout)
		out.LastEntryDate = &d
	}
	return out
}

// Get returns the cached streak.
func (h *StreakHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	st, err := h.Svc.GetStreak(r.Context(), uid)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	missed, err := h.Svc.GetMissedDays(r.Context(), uid)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toStreakDTO(st, missed))
}

// Recalculate recomputes the streak from the entry dates.
func (h *StreakHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	st, err := h.Svc.RecalculateStreak(r.Context(), uid)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	missed, err := h.Svc.GetMissedDays(r.Context(), uid)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toStreakDTO(st, missed))
}
