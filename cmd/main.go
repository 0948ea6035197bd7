package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"adaptivelighting/internal/api"
	"adaptivelighting/internal/clock"
	"adaptivelighting/internal/config"
	"adaptivelighting/internal/controller"
	"adaptivelighting/internal/ha"
	"adaptivelighting/internal/sun"
	"adaptivelighting/internal/syncgroup"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	haURL := os.Getenv("HA_URL")
	haToken := os.Getenv("HA_TOKEN")
	roomsPath := envOrDefault("ROOMS_CONFIG", "rooms.yaml")
	apiPort := envIntOrDefault("API_PORT", 8081, logger)

	if haURL == "" || haToken == "" {
		logger.Fatal("HA_URL and HA_TOKEN environment variables must be set")
	}

	cfg, err := config.NewLoader(roomsPath, logger).Load()
	if err != nil {
		logger.Fatal("Failed to load rooms config", zap.Error(err))
	}

	logger.Info("Starting adaptive lighting daemon",
		zap.String("url", haURL),
		zap.Int("rooms", len(cfg.Rooms)))

	client := ha.NewClient(haURL, haToken, logger)
	if err := client.Connect(); err != nil {
		logger.Fatal("Failed to connect to Home Assistant", zap.Error(err))
	}
	defer client.Disconnect()

	clk := clock.NewRealClock()
	sunTracker := sun.NewTracker(client, clk, cfg.Latitude, cfg.Longitude, logger)
	registry := syncgroup.NewRegistry(logger)

	rooms := make([]*controller.Controller, 0, len(cfg.Rooms))
	for _, roomCfg := range cfg.Rooms {
		room := controller.New(roomCfg, client, clk, sunTracker, registry, logger)
		if err := room.Start(); err != nil {
			logger.Fatal("Failed to start room controller",
				zap.String("room", roomCfg.Name),
				zap.Error(err))
		}
		rooms = append(rooms, room)
	}

	server := api.NewServer(rooms, logger, apiPort)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start API server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Daemon running. Press Ctrl+C to exit.")
	<-sigChan

	logger.Info("Shutting down gracefully...")

	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop API server", zap.Error(err))
	}
	for _, room := range rooms {
		room.Stop()
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOrDefault(key string, fallback int, logger *zap.Logger) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("Invalid integer environment variable, using default",
			zap.String("key", key),
			zap.String("value", value),
			zap.Int("default", fallback))
		return fallback
	}
	return parsed
}
