package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/petrusmatiros/odd-duck/internal/game"
	"github.com/petrusmatiros/odd-duck/internal/gateway"
	"github.com/petrusmatiros/odd-duck/internal/packs"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Get configuration
	port := getEnv("PORT", "3000")

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ValidatedPath = getEnv("WS_VALIDATED_NAMESPACE", gatewayConfig.ValidatedPath)
	gatewayConfig.BootstrapPath = getEnv("WS_BOOTSTRAP_NAMESPACE", gatewayConfig.BootstrapPath)
	gatewayConfig.PublicURL = getEnv("PUBLIC_URL", gatewayConfig.PublicURL)
	gatewayConfig.Conn.SendBuffer = getEnvAsInt("WS_SEND_BUFFER", gatewayConfig.Conn.SendBuffer)

	// Load game pack catalog
	catalog, err := packs.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load game packs")
	}
	log.Info().Int("packs", len(catalog.All())).Msg("game packs loaded")

	// Setup registries and gateway
	players := game.NewPlayerRegistry()
	rooms := game.NewRoomRegistry(clockwork.NewRealClock())
	gatewayService := gateway.NewService(gatewayConfig, players, rooms, catalog)

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)

	// Add health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", port),
		Handler:     c.Handler(mux),
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("server stopped")
}
