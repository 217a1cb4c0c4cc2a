// Command storagectl connects to the configured store, prints its health
// and capability report, and exits. It doubles as a smoke test for a
// deployment's environment configuration.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/forgecms/storage/adapter"
	"github.com/forgecms/storage/config"
	"github.com/forgecms/storage/database"
	"github.com/forgecms/storage/events"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	opts := adapter.Options{
		Conn: database.ConnectionInfo{
			User: cfg.DBUser,
			Pass: cfg.DBPass,
			Host: cfg.DBHost,
			Port: cfg.DBPort,
			Name: cfg.DBName,
		},
		Logger:     log,
		BcryptCost: cfg.BcryptCost,
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL,
		SessionTTL: cfg.SessionTTL,
		TokenTTL:   cfg.TokenTTL,
	}
	if cfg.AMQPURL != "" {
		opts.Events = events.NewPublisher(cfg.AMQPURL, log)
	}

	a := adapter.New(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if r := a.Connect(ctx); !r.Success {
		log.Fatal().Str("code", r.Error.Code).Msg(r.Message)
	}
	defer a.Disconnect()

	health := a.ConnectionHealth(ctx)
	if !health.Success {
		log.Fatal().Str("code", health.Error.Code).Msg(health.Message)
	}

	report := struct {
		Health       adapter.Health       `json:"health"`
		Capabilities adapter.Capabilities `json:"capabilities"`
	}{
		Health:       health.Data,
		Capabilities: a.Capabilities(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatal().Err(err).Msg("encode report")
	}
}
