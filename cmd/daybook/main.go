package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daybook/internal/auth"
	"daybook/internal/config"
	"daybook/internal/db"
	httpx "daybook/internal/http"
	"daybook/internal/jobs"
	"daybook/internal/journal"
	"daybook/internal/logger"
	"daybook/internal/ratelimit"
	"daybook/internal/settings"
	"daybook/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg := logger.New(cfg.Log)

	gdb, err := db.Connect(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Error("connect database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		lg.Error("migrate database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New(gdb)
	jobsRepo := &jobs.Repo{DB: gdb}

	journalSvc := journal.NewService(st, lg, cfg.Location)
	journalSvc.Recalc = jobsRepo
	if _, err := journalSvc.SeedPreBuiltTags(ctx); err != nil {
		lg.Warn("seed pre-built tags", "error", err)
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := auth.NewService(&auth.GormUsers{DB: gdb}, jwtSvc, lg)
	settingsSvc := settings.NewService(&settings.GormStore{DB: gdb}, lg)

	limiter := ratelimit.New(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	defer limiter.Stop()

	r := httpx.NewRouter(httpx.Deps{
		Config:      cfg,
		Log:         lg,
		JWT:         jwtSvc,
		Auth:        authSvc,
		Journal:     journalSvc,
		Settings:    settingsSvc,
		AuthLimiter: limiter,
	})

	// worker
	if cfg.Worker.Enabled {
		worker := &jobs.Worker{
			ID:           "worker-1",
			Queue:        jobsRepo,
			Streaks:      journalSvc,
			Log:          lg,
			PollInterval: cfg.Worker.PollInterval,
		}
		go worker.Run(ctx)
	}

	rollover := &jobs.Rollover{Users: st, Queue: jobsRepo, Location: cfg.Location, Log: lg}
	if n, err := rollover.EnqueueAll(ctx); err != nil {
		lg.Warn("startup streak refresh", "queued", n, "error", err)
	}
	go rollover.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lg.Info("listening", "addr", cfg.HTTPAddr, "timezone", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("shutdown", "error", err)
	}
	lg.Info("stopped")
}
