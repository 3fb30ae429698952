package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"impacttrip/internal/adapters/catalogfeed"
	"impacttrip/internal/adapters/observability"
	redisad "impacttrip/internal/adapters/redis"
	"impacttrip/internal/app"
	"impacttrip/internal/shared"
	mysqlrepo "impacttrip/internal/storage/mysql"
)

func main() {
	shared.LoadDotEnv()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("base", cfg.FeedBase).
		Strs("feeds", cfg.Feeds).
		Int("workers", cfg.Workers).
		Str("schedule", cfg.IngestSchedule).
		Msg("ingestor starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	client, err := catalogfeed.New(cfg.FeedBase, cfg.FeedRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize feed client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	ing := app.NewIngestionService(client, mysqlrepo.New(db), cache)

	run := func() {
		start := time.Now()
		if err := ing.IngestAll(ctx, cfg.Feeds, cfg.Workers); err != nil {
			log.Warn().Err(err).Str("kind", observability.LabelErr(err)).Dur("took", time.Since(start)).Msg("ingestion finished with errors")
			return
		}
		log.Info().Dur("took", time.Since(start)).Msg("ingestion completed")
	}

	if cfg.IngestSchedule == "" {
		run()
		return
	}

	observability.Serve(cfg.MetricsAddr, observability.MetricsHandler(observability.InitRegistry()))

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.IngestSchedule, run); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.IngestSchedule).Msg("invalid INGEST_SCHEDULE")
	}
	run()
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("ingestor stopped")
}
