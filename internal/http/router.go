package http

import (
	"log/slog"
	"net/http"

	"daybook/internal/auth"
	"daybook/internal/config"
	"daybook/internal/http/handler"
	mw "daybook/internal/http/middleware"
	"daybook/internal/journal"
	"daybook/internal/ratelimit"
	"daybook/internal/settings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Deps are the services the router exposes.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	JWT      *auth.JWT
	Auth     *auth.Service
	Journal  *journal.Service
	Settings *settings.Service
	// AuthLimiter throttles /auth/register and /auth/login per client IP when set.
	AuthLimiter *ratelimit.KeyedRateLimiter
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)

	if len(d.Config.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(d.Config.CORSAllowedOrigins, d.Config.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{Svc: d.Auth, Log: d.Log}
	r.Group(func(r chi.Router) {
		if d.AuthLimiter != nil {
			r.Use(ratelimit.Middleware(d.AuthLimiter))
		}
		r.Post("/auth/register", ah.Register)
		r.Post("/auth/login", ah.Login)
	})

	entries := &handler.EntryHandler{Svc: d.Journal, Log: d.Log}
	streak := &handler.StreakHandler{Svc: d.Journal, Log: d.Log}
	tags := &handler.TagHandler{Svc: d.Journal, Log: d.Log}
	stats := &handler.StatsHandler{Svc: d.Journal, Log: d.Log}
	exp := &handler.ExportHandler{Journal: d.Journal, Auth: d.Auth, Log: d.Log}
	st := &handler.SettingsHandler{Svc: d.Settings, Log: d.Log}
	me := &handler.MeHandler{Svc: d.Auth, Log: d.Log}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Get("/me", me.Me)

		r.Route("/entries", func(r chi.Router) {
			r.Put("/", entries.Save)
			r.Get("/", entries.List)
			r.Get("/date/{date}", entries.GetByDate)
			r.Get("/{id}", entries.Get)
			r.Delete("/{id}", entries.Delete)
		})

		r.Get("/streak", streak.Get)
		r.Post("/streak/recalculate", streak.Recalculate)

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tags.List)
			r.Post("/", tags.Create)
			r.Delete("/{id}", tags.Delete)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/moods", stats.Moods)
			r.Get("/tags", stats.Tags)
			r.Get("/words", stats.Words)
		})

		r.Get("/export", exp.Markdown)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", st.Get)
			r.Put("/theme", st.UpdateTheme)
			r.Put("/pin", st.SetPin)
			r.Post("/pin/verify", st.VerifyPin)
			r.Delete("/pin", st.DisablePin)
		})
	})

	return r
}
