// Command server runs the manager checklists HTTP API.
//
// @title           Manager Checklists API
// @version         1.0
// @description     Shift checklists for restaurant managers: seed, tick, submit and lock.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
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
	"github.com/rs/zerolog/log"

	"github.com/saltesefalcon/manager-checklists/internal/auth"
	"github.com/saltesefalcon/manager-checklists/internal/bizdate"
	"github.com/saltesefalcon/manager-checklists/internal/config"
	httpapi "github.com/saltesefalcon/manager-checklists/internal/http"
	"github.com/saltesefalcon/manager-checklists/internal/observability"
	"github.com/saltesefalcon/manager-checklists/internal/realtime"
	"github.com/saltesefalcon/manager-checklists/internal/repo"
	"github.com/saltesefalcon/manager-checklists/internal/services"
	"github.com/saltesefalcon/manager-checklists/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	log.Info().
		Str("port", cfg.Port).
		Str("timezone", cfg.Timezone).
		Int("cutoff_hour", cfg.CutoffHour).
		Str("version", version).
		Msg("starting")

	ctx := log.Logger.WithContext(context.Background())

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	calc, err := bizdate.NewCalculator(cfg.Timezone, cfg.CutoffHour)
	if err != nil {
		log.Fatal().Err(err).Msg("business date calculator")
	}

	if boot := (services.Bootstrap{
		Restaurants: cfg.Bootstrap.Restaurants,
		AdminUID:    cfg.Bootstrap.AdminUID,
		AdminEmail:  cfg.Bootstrap.AdminEmail,
	}); !boot.Empty() {
		if err := services.ApplyBootstrap(ctx, db, boot); err != nil {
			log.Fatal().Err(err).Msg("bootstrap")
		}
	}

	// Redis is optional: without it revocations live in this process only.
	var (
		revoker      auth.Revoker = auth.NewMemoryRevoker()
		redisRevoker *auth.RedisRevoker
	)
	if cfg.Redis.Addr != "" {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		redisRevoker, err = auth.NewRedisRevoker(rctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, sign-out is local to this instance")
			redisRevoker = nil
		} else {
			revoker = redisRevoker
		}
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:       db,
		Calc:     calc,
		Broker:   realtime.NewBroker(),
		Verifier: auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
		Revoker:  revoker,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownTracing(sctx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if redisRevoker != nil {
		_ = redisRevoker.Close()
	}
	log.Info().Msg("stopped")
}
