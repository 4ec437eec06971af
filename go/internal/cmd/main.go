package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/gateway"
	"github.com/hardwood-league/commish/go/internal/outbox"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, dbCfg, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	// Chat credentials come from the environment.
	chatToken := os.Getenv("CHAT_BOT_TOKEN")
	if chatToken == "" {
		log.Fatal().Msg("CHAT_BOT_TOKEN environment variable is required")
	}
	chat := gateway.NewRESTChat(cfg.Gateway.ChatBaseURL, chatToken, cfg.Gateway.ChannelID)

	clock := clockwork.NewRealClock()
	services := setupServices(pool, cfg, chat, clock)

	// Event bus; falls back to log-only publishing without NATS.
	publisher, natsConn, err := setupPublisher(os.Getenv("NATS_URL"), cfg.Outbox.SubjectPrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	// Outbox relay: poll worker plus the LISTEN/NOTIFY realtime path.
	worker := outbox.NewWorker(services.OutboxStore, publisher, clock, cfg.Outbox.Worker)
	if err := worker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start outbox worker")
	}
	defer func() {
		if err := worker.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop outbox worker")
		}
	}()

	listenerCfg := cfg.Outbox.Listener
	listenerCfg.DatabaseURL = dbCfg.DSN()
	listener, err := outbox.NewListener(services.OutboxStore, publisher, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox listener")
	}
	go func() {
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox listener exited")
		}
	}()

	// Reconciliation sweep for reactions missed while offline.
	go services.Sweeper.Run(ctx)

	// Chat gateway consumer.
	consumer := gateway.NewConsumer(services.Dispatcher, clock, gateway.DefaultConsumerConfig(cfg.Gateway.WebsocketURL))
	go consumer.Run(ctx)

	// Health and metrics server.
	health := outbox.NewRelayHealthChecker(worker, pool, natsConn, services.OutboxStore, 5*time.Minute)
	server := setupServer(health, outbox.NewPrometheusExporter(health))
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().
		Int("teams", len(cfg.League.Teams)).
		Uint64("message_id_floor", cfg.Vote.MessageIDFloor).
		Msg("league adjudicator running")

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
