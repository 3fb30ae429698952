package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"impacttrip/internal/adapters/catalogfeed"
	server "impacttrip/internal/adapters/http_server"
	"impacttrip/internal/adapters/natsbridge"
	"impacttrip/internal/adapters/observability"
	redisad "impacttrip/internal/adapters/redis"
	"impacttrip/internal/app"
	"impacttrip/internal/domain"
	"impacttrip/internal/shared"
	mysqlrepo "impacttrip/internal/storage/mysql"
)

func main() {
	shared.LoadDotEnv()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// redis holds the session criteria and the catalog cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rc.Close()
	if err := rc.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}

	var (
		source  domain.CatalogSource
		catalog server.OpportunityReader
	)
	switch cfg.CatalogSource {
	case "feed":
		client, err := catalogfeed.New(cfg.FeedBase, cfg.FeedRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize feed client")
		}
		source = app.NewFeedSource(client)
		log.Info().Str("base", cfg.FeedBase).Msg("catalog served from feed")
	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		q := app.NewQueryService(mysqlrepo.New(db), rc, cfg.CacheTTL)
		source, catalog = q, q
	}

	var hooks []app.SessionHook
	if cfg.NATSURL != "" {
		nc, err := natsbridge.Connect(natsbridge.ConnConfig{
			URL:            cfg.NATSURL,
			MaxReconnects:  10,
			ReconnectWait:  2 * time.Second,
			ConnectTimeout: 5 * time.Second,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect failed")
		}
		defer nc.Drain()
		hooks = append(hooks, natsbridge.New(nc, cfg.NATSPrefix).Attach)
		log.Info().Str("url", cfg.NATSURL).Str("prefix", cfg.NATSPrefix).Msg("relaying session events to NATS")
	}

	sessions := app.NewSessionManager(rc, source, app.EngineConfig{}, time.Now, hooks...)
	defer sessions.CloseAll()

	// http
	srv := server.New(server.Options{RequestTimeout: cfg.RequestTimeout, CorsOrigins: cfg.CorsOrigins})
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Sessions: sessions, Catalog: catalog})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("catalog", cfg.CatalogSource).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
