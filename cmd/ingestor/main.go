package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"startrip/internal/adapters/curated"
	"startrip/internal/adapters/observability"
	"startrip/internal/adapters/placeindex"
	"startrip/internal/adapters/places"
	"startrip/internal/app"
	"startrip/internal/shared"
	mysqlrepo "startrip/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "ingestor")

	log.Info().
		Str("base", cfg.PlacesBase).
		Str("elastic", cfg.ElasticURL).
		Str("index", cfg.ElasticIndex).
		Int("workers", cfg.Workers).
		Msg("ingestor starting")

	client, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize places client")
	}
	store, err := placeindex.New(cfg.ElasticURL, cfg.ElasticIndex)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize place index")
	}
	defer store.Stop()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	ing := app.NewIngestionService(client, store, curated.New(), cfg.Workers)
	journal := app.NewJournalService(mysqlrepo.New(db))

	// index refresh and activity retention are independent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := ing.Run(gctx)
		log.Info().
			Int("jobs", stats.Jobs).
			Int("failed", stats.Failed).
			Int("fetched", stats.Fetched).
			Int("indexed", stats.Indexed).
			Msg("ingestion completed")
		return err
	})
	g.Go(func() error {
		n, err := journal.PruneActivities(gctx, cfg.ActivityRetention)
		if err != nil {
			return err
		}
		log.Info().Int64("deleted", n).Dur("retention", cfg.ActivityRetention).Msg("activities pruned")
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("ingestor failed")
	}
}
