package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/helpdesk-proxy/backend/internal/config"
	"github.com/helpdesk-proxy/backend/internal/freshdesk"
	httpapi "github.com/helpdesk-proxy/backend/internal/http"
	"github.com/helpdesk-proxy/backend/internal/service"
	"github.com/helpdesk-proxy/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "helpdesk-proxy").Logger()

	st, err := store.New(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open data directory")
	}

	pipeline := &service.Pipeline{Store: st, Logger: logger, PortalURL: cfg.PortalURL}
	client := &freshdesk.Client{
		Domain:  cfg.FreshdeskDomain,
		APIKey:  cfg.FreshdeskAPIKey,
		Breaker: freshdesk.NewBreaker("freshdesk"),
		Logger:  logger,
	}
	updater := &service.Updater{
		Store:     st,
		Source:    client,
		Pipeline:  pipeline,
		Logger:    logger,
		DaysRange: cfg.UpdateDaysRange,
	}

	router := httpapi.Router(cfg, st, pipeline, updater, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
