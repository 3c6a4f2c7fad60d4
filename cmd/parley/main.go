package main

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/parley/internal/api/ws"
	"github.com/gosuda/parley/internal/chat"
	"github.com/gosuda/parley/internal/config"
	"github.com/gosuda/parley/internal/domain"
	"github.com/gosuda/parley/internal/engine"
	"github.com/gosuda/parley/internal/rules"
	"github.com/gosuda/parley/internal/server"
	filestore "github.com/gosuda/parley/internal/store/file"
	"github.com/gosuda/parley/internal/store/memory"
	"github.com/gosuda/parley/internal/store/postgres"
	redisstore "github.com/gosuda/parley/internal/store/redis"
	"github.com/gosuda/parley/web"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("PARLEY_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("PARLEY_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Load the rule set. Failure here is fatal; the process must not serve
	// traffic without rules.
	ruleSet, err := rules.Load(cfg.Chat.RulesPath)
	if err != nil {
		return err
	}

	// Open the session store per the configured driver.
	var (
		repo    domain.SessionRepository
		cleanup func()
	)
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		repo = memory.New()
	case config.StoreDriverFile:
		repo = filestore.New(cfg.Store.Path)
	case config.StoreDriverPostgres:
		if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}
		store, storeErr := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if storeErr != nil {
			return storeErr
		}
		repo = store.Sessions()
		cleanup = store.Close
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Connect to Redis when the live transcript feed is configured.
	var pubsub *redisstore.PubSub
	if cfg.Redis.Addr != "" {
		pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()
	}

	// Seed the resolver's random source; a fixed seed gives deterministic
	// replies for demos and debugging.
	seed := cfg.Chat.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	resolver := engine.New(ruleSet, rand.New(rand.NewSource(seed)), cfg.Chat.DisconnectProb, cfg.Chat.MatchStrategy)

	// Create the lifecycle controller.
	var publisher chat.Publisher
	if pubsub != nil {
		publisher = pubsub
	}
	chatSvc := chat.NewService(repo, resolver, publisher)

	// Prepare embedded chat page assets.
	webAssets, err := fs.Sub(web.Assets, "static")
	if err != nil {
		return fmt.Errorf("web assets: %w", err)
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	var feed ws.Subscriber
	if pubsub != nil {
		feed = pubsub
	}
	srv := server.New(ctx, cfg, chatSvc, feed, webAssets)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("store", cfg.Store.Driver).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
