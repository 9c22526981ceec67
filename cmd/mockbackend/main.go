// cmd/mockbackend/main.go
package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"marketplace/gateway/internal/backendstub"

	"github.com/kelseyhightower/envconfig"
)

// Config for the stub backend, read from MOCK_* variables.
type Config struct {
	Addr   string        `envconfig:"ADDR" default:":8000"`
	Name   string        `envconfig:"NAME" default:"viral-predictor"`
	Delay  time.Duration `envconfig:"DELAY" default:"0s"`
	Status int           `envconfig:"STATUS" default:"200"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("mock", &cfg); err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           backendstub.New(logger, cfg.Name, cfg.Delay, cfg.Status),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("Mock backend listening", "name", cfg.Name, "address", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
