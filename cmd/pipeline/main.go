package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/helpdesk-proxy/backend/internal/config"
	"github.com/helpdesk-proxy/backend/internal/freshdesk"
	"github.com/helpdesk-proxy/backend/internal/service"
	"github.com/helpdesk-proxy/backend/internal/store"
)

func main() {
	stage := pflag.String("stage", "rebuild", "stage to run: extract, normalize, unify, partition, rebuild, update")
	company := pflag.String("company", "", "company or group name (required for --stage update)")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

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

	ctx := context.Background()

	switch *stage {
	case "update":
		if *company == "" {
			logger.Fatal().Msg("--company is required for --stage update")
		}
		updater := &service.Updater{
			Store:     st,
			Source:    client,
			Pipeline:  pipeline,
			Logger:    logger,
			DaysRange: cfg.UpdateDaysRange,
		}
		summary, err := updater.Update(ctx, *company)
		if err != nil {
			logger.Fatal().Err(err).Msg("update failed")
		}
		logger.Info().Str("target", summary.Target).Int("tickets", summary.Fetched).Msg("update done")
		return

	case "extract", "normalize", "unify", "partition", "rebuild":
	default:
		logger.Fatal().Str("stage", *stage).Msg("unknown stage")
	}

	release, err := st.Lock()
	if err != nil {
		logger.Fatal().Err(err).Msg("could not acquire run lock")
	}
	defer release()

	switch *stage {
	case "extract":
		if cfg.FreshdeskDomain == "" || cfg.FreshdeskAPIKey == "" {
			logger.Fatal().Msg("FRESHDESK_DOMAIN and FRESHDESK_API_KEY must be set")
		}
		from, to, err := extractionRange(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid extraction range")
		}
		extractor := &service.Extractor{
			Store:     st,
			Source:    client,
			Logger:    logger,
			FromDate:  from,
			ToDateEnd: to,
			MaxMonths: cfg.MaxMonths,
		}
		total, err := extractor.Run(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("extraction failed")
		}
		logger.Info().Int("fetched", total).Msg("extraction done")

	case "normalize":
		if _, _, err := pipeline.Normalize(); err != nil {
			logger.Fatal().Err(err).Msg("normalize failed")
		}

	case "unify":
		if _, err := pipeline.Unify(); err != nil {
			logger.Fatal().Err(err).Msg("unify failed")
		}

	case "partition":
		if _, err := pipeline.Partition(); err != nil {
			logger.Fatal().Err(err).Msg("partition failed")
		}

	case "rebuild":
		summary, err := pipeline.Rebuild()
		if err != nil {
			logger.Fatal().Err(err).Msg("rebuild failed")
		}
		logger.Info().
			Int("tickets", summary.Tickets).
			Int("companies", summary.Companies).
			Int("groups", summary.Groups).
			Int("tenants", summary.Tenants).
			Msg("rebuild done")
	}
}

// extractionRange resolves the month-walk window: FROM_DATE (default today)
// down to TO_DATE_END (default three years back).
func extractionRange(cfg config.Config) (time.Time, time.Time, error) {
	from := time.Now().UTC().Truncate(24 * time.Hour)
	if cfg.FromDate != "" {
		var err error
		from, err = time.Parse("2006-01-02", cfg.FromDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("FROM_DATE: %w", err)
		}
	}
	to := from.AddDate(-3, 0, 0)
	if cfg.ToDateEnd != "" {
		var err error
		to, err = time.Parse("2006-01-02", cfg.ToDateEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("TO_DATE_END: %w", err)
		}
	}
	if !to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("TO_DATE_END must be before FROM_DATE")
	}
	return from, to, nil
}
