package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/someonesays/roomserver/internal/adapters/http"
	"github.com/someonesays/roomserver/internal/adapters/session"
	"github.com/someonesays/roomserver/internal/capacity"
	"github.com/someonesays/roomserver/internal/config"
	"github.com/someonesays/roomserver/internal/content"
	"github.com/someonesays/roomserver/internal/core"
	"github.com/someonesays/roomserver/internal/domain"
	"github.com/someonesays/roomserver/internal/matchmaking"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	serverID := domain.ServerID(cfg.ServerID)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	reporter := capacity.NewRedisReporter(rdb)
	store := content.NewHTTPStore(cfg.ContentAPIURL)

	registry := core.NewRegistry(serverID, cfg.MaxRooms, cfg.ReadyUpGrace, store, reporter)
	verifier := matchmaking.NewVerifier(cfg.Secret, serverID)
	ctl := session.NewController(cfg, registry, verifier)

	// Publish a zero count on boot; rooms do not survive restarts.
	capacity.ReportAsync(reporter, serverID, 0)

	r := router.SetupRouter(ctx, cfg, registry, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("server_id", cfg.ServerID).Msg("room server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
	log.Info().Msg("Server exited gracefully")
}
