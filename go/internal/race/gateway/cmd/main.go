package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/mcdev12/typerace/go/internal/config"
	"github.com/mcdev12/typerace/go/internal/race/gateway"
	"github.com/mcdev12/typerace/go/internal/race/publisher"
	"github.com/mcdev12/typerace/go/internal/race/room"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load(os.Getenv("RACE_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogging(cfg)

	racePublisher, closePublisher := setupPublisher(cfg)
	defer closePublisher()

	gatewayConfig := gateway.Config{
		ConnectionConfig: connectionConfig(cfg),
		RoomConfig: room.Config{
			MinParticipants: cfg.MinParticipants,
			Paragraphs:      room.DefaultParagraphs,
			Clock:           clockwork.NewRealClock(),
			Publisher:       publisher.NewMetricPublisher(racePublisher),
		},
	}
	if cfg.Paragraphs != nil {
		gatewayConfig.RoomConfig.Paragraphs = cfg.Paragraphs
	}

	gatewayService, err := gateway.NewService(gatewayConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Int("min_participants", cfg.MinParticipants).
			Bool("nats_enabled", cfg.NATS.URL != "").
			Msg("race server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	select {
	case <-serviceDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("gateway service did not stop in time")
	}

	log.Info().Msg("race server shutdown complete")
}

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func setupPublisher(cfg *config.Config) (publisher.EventPublisher, func()) {
	if cfg.NATS.URL == "" {
		return publisher.LogPublisher{}, func() {}
	}

	natsConfig := publisher.DefaultNATSConfig()
	natsConfig.URL = cfg.NATS.URL
	natsConfig.Subject = cfg.NATS.Subject

	p, err := publisher.NewNATSPublisher(natsConfig)
	if err != nil {
		log.Fatal().Err(err).Str("nats_url", cfg.NATS.URL).Msg("failed to connect race event publisher")
	}
	return p, p.Close
}

func connectionConfig(cfg *config.Config) gateway.ConnectionConfig {
	cc := gateway.DefaultConnectionConfig()
	cc.WriteTimeout = cfg.WebSocket.WriteTimeout
	cc.ReadTimeout = cfg.WebSocket.ReadTimeout
	cc.PingInterval = cfg.WebSocket.PingInterval
	cc.MaxMessageSize = cfg.WebSocket.MaxMessageSize
	cc.SendBufferSize = cfg.WebSocket.SendBufferSize

	if !slices.Contains(cfg.AllowedOrigins, "*") {
		cc.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(cfg.AllowedOrigins, origin)
		}
	}
	return cc
}
