package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"daybook/internal/apperr"
	"daybook/internal/auth"
	"daybook/internal/journal"

	"github.com/go-chi/chi/v5"
)

type EntryHandler struct {
	Svc *journal.Service
	Log *slog.Logger
}

type tagDTO struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	IsPreBuilt bool   `json:"is_pre_built"`
}

type entryDTO struct {
	ID             uint64     `json:"id"`
	EntryDate      string     `json:"entry_date"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	MarkdownBody   *string    `json:"markdown_body,omitempty"`
	WordCount      int        `json:"word_count"`
	PrimaryMood    string     `json:"primary_mood"`
	SecondaryMood1 *string    `json:"secondary_mood_1,omitempty"`
	SecondaryMood2 *string    `json:"secondary_mood_2,omitempty"`
	Tags           []tagDTO   `json:"tags"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type pageDTO struct {
	Entries    []entryDTO `json:"entries"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

func toTagDTO(t journal.Tag) tagDTO {
	return tagDTO{ID: t.ID, Name: t.Name, Color: t.Color, IsPreBuilt: t.IsPreBuilt}
}

func toEntryDTO(e *journal.Entry) entryDTO {
	tags := make([]tagDTO, 0, len(e.Tags))
	for _, l := range e.Tags {
		tags = append(tags, toTagDTO(l.Tag))
	}
	return entryDTO{
		ID:             e.ID,
		EntryDate:      e.EntryDate.Format(journal.DateLayout),
		Title:          e.Title,
		Body:           e.Body,
		MarkdownBody:   e.MarkdownBody,
		WordCount:      e.WordCount,
		PrimaryMood:    e.PrimaryMood,
		SecondaryMood1: e.SecondaryMood1,
		SecondaryMood2: e.SecondaryMood2,
		Tags:           tags,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

type saveEntryReq struct {
	Date           string   `json:"date"` // YYYY-MM-DD, defaults to today
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	MarkdownBody   *string  `json:"markdown_body"`
	PrimaryMood    string   `json:"primary_mood"`
	SecondaryMood1 *string  `json:"secondary_mood_1"`
	SecondaryMood2 *string  `json:"secondary_mood_2"`
	TagIDs         []uint64 `json:"tag_ids"`
}

// Save creates today's entry or updates the entry of the given date.
func (h *EntryHandler) Save(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req saveEntryReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	date := h.Svc.Today()
	if s := strings.TrimSpace(req.Date); s != "" {
		d, err := journal.ParseDate(s)
		if err != nil {
			writeError(w, r, h.Log, apperr.Validation("invalid date (YYYY-MM-DD)"))
			return
		}
		date = d
	}

	e, err := h.Svc.CreateOrUpdateEntry(r.Context(), uid, journal.EntryInput{
		Date:           date,
		Title:          req.Title,
		Body:           req.Body,
		MarkdownBody:   req.MarkdownBody,
		PrimaryMood:    req.PrimaryMood,
		SecondaryMood1: req.SecondaryMood1,
		SecondaryMood2: req.SecondaryMood2,
		TagIDs:         req.TagIDs,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

// List searches entries. Every query parameter is optional.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", journal.DefaultPageSize)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	p, err := h.Svc.SearchPage(r.Context(), uid, f, page, pageSize)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	out := pageDTO{
		Entries:    make([]entryDTO, 0, len(p.Entries)),
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
	for i := range p.Entries {
		out.Entries = append(out.Entries, toEntryDTO(&p.Entries[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func parseFilter(r *http.Request) (journal.Filter, error) {
	q := r.URL.Query()
	f := journal.Filter{
		Term: q.Get("q"),
		Mood: q.Get("mood"),
	}

	var err error
	if f.StartDate, err = queryDate(r, "from"); err != nil {
		return journal.Filter{}, err
	}
	if f.EndDate, err = queryDate(r, "to"); err != nil {
		return journal.Filter{}, err
	}

	if v := strings.TrimSpace(q.Get("tag")); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return journal.Filter{}, apperr.Validation("invalid tag")
		}
		f.TagID = &id
	}
	return f, nil
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	e, err := h.Svc.GetEntry(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *EntryHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	d, err := journal.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, h.Log, apperr.Validation("invalid date (YYYY-MM-DD)"))
		return
	}

	e, err := h.Svc.GetEntryByDate(r.Context(), uid, d)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			err = apperr.NotFound("no entry for " + d.Format(journal.DateLayout))
		}
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	deleted, err := h.Svc.DeleteEntry(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if !deleted {
		writeError(w, r, h.Log, apperr.NotFound("entry not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, key string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := journal.ParseDate(v)
	if err != nil {
		return nil, apperr.Validationf("invalid %s (YYYY-MM-DD)", key)
	}
	return &d, nil
}
