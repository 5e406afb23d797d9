package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"binary-core/internal/api"
	"binary-core/internal/events"
	"binary-core/internal/notify"
	"binary-core/internal/session"
	"binary-core/internal/venue"
	"binary-core/pkg/config"
	"binary-core/pkg/db"
	"binary-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxMB,
		MaxBackups: cfg.LogBackups,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.WithError(err).Fatal("apply migrations")
	}

	presets := map[string]config.StrategyPreset{}
	if cfg.StrategyPresetsPath != "" {
		presets, err = config.LoadPresets(cfg.StrategyPresetsPath)
		if err != nil {
			log.WithError(err).Fatal("load strategy presets")
		}
		log.WithField("presets", len(presets)).Info("strategy presets loaded")
	}

	bus := events.NewBus()
	notifier := notify.Multi{
		&notify.BusNotifier{Bus: bus},
		&notify.LogNotifier{Log: log},
	}

	clients := func(p session.Params) venue.Client {
		if cfg.UseMockVenue {
			return &venue.MockClient{WinEvery: 2, SettleDelay: 500 * time.Millisecond}
		}
		return venue.NewConnection(venue.Options{
			URL:                cfg.VenueURL,
			AppID:              cfg.VenueAppID,
			MaxConnectAttempts: cfg.MaxConnectRetries,
			Log:                log,
		})
	}

	sessions := session.NewManager(database, bus, notifier, clients, presets, log)
	server := api.NewServer(sessions, bus, database, cfg.JWTSecret, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.WithField("addr", srv.Addr).Info("control surface listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	sessions.Shutdown()
	_ = srv.Close()
}
