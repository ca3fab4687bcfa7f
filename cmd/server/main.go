// Command server runs the ALFA Hosting storefront API.
//
//	@title			ALFA Hosting Storefront API
//	@version		1.0
//	@description	Catalog, cart, checkout, testimonials, chat assistant and admin dashboard for the ALFA Hosting shop.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"gorm.io/gorm"

	"github.com/tbourn/go-storefront-backend/internal/config"
	httpapi "github.com/tbourn/go-storefront-backend/internal/http"
	"github.com/tbourn/go-storefront-backend/internal/jobs"
	"github.com/tbourn/go-storefront-backend/internal/notify"
	"github.com/tbourn/go-storefront-backend/internal/observability"
	"github.com/tbourn/go-storefront-backend/internal/repo"
	"github.com/tbourn/go-storefront-backend/internal/store"
	"github.com/tbourn/go-storefront-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	envErr := godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)
	if envErr != nil {
		log.Debug().Msg("no .env file, using process environment")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	st, db, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("open store")
	}
	defer closeStore()

	app := httpapi.App{Store: st, DB: db, Notifier: notify.Nop{}}
	if cfg.Chat.APIKey != "" {
		oc := openai.DefaultConfig(cfg.Chat.APIKey)
		if cfg.Chat.BaseURL != "" {
			oc.BaseURL = cfg.Chat.BaseURL
		}
		app.Completer = openai.NewClientWithConfig(oc)
	}
	if cfg.NotifyEnabled() {
		tg, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			log.Error().Err(err).Msg("telegram disabled")
		} else {
			app.Notifier = tg
		}
	}

	sched := jobs.New(cfg.Location())
	if db != nil {
		if err := sched.Add("purge_idempotency", cfg.PurgeSchedule, jobs.PurgeIdempotency(db, time.Now)); err != nil {
			log.Fatal().Err(err).Msg("schedule purge")
		}
	}
	if cfg.NotifyEnabled() {
		if err := sched.Add("sales_summary", cfg.SummarySchedule, jobs.SalesSummary(st, app.Notifier, time.Now)); err != nil {
			log.Fatal().Err(err).Msg("schedule summary")
		}
	}
	sched.Start()

	r := gin.New()
	if err := httpapi.RegisterRoutes(r, app, cfg); err != nil {
		log.Fatal().Err(err).Msg("register routes")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store.Driver).
			Bool("llm", app.Completer != nil).
			Bool("telegram", cfg.NotifyEnabled()).
			Str("version", version).
			Msg("storefront listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	sched.Stop(shutdownCtx)
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
}

// openStore builds the configured backend. SQL deployments share the
// database with the checkout replay table; the other drivers get no
// replay support.
func openStore(ctx context.Context, cfg config.Config) (store.Store, *gorm.DB, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, nil, err
		}
		return store.NewRedis(rdb, cfg.Store.RedisPrefix), nil, func() { _ = rdb.Close() }, nil

	case config.StoreMemory:
		log.Warn().Msg("memory store: state is lost on restart")
		return store.NewMemory(), nil, func() {}, nil

	default:
		dsn := cfg.Store.DBPath
		if cfg.Store.DBDriver == repo.DriverPostgres {
			dsn = cfg.Store.DBDSN
		}
		db, err := repo.Open(cfg.Store.DBDriver, dsn)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		if cfg.OTEL.Enabled {
			if err := repo.EnableTracing(db); err != nil {
				log.Warn().Err(err).Msg("gorm tracing disabled")
			}
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return store.NewSQL(db), db, closeFn, nil
	}
}
