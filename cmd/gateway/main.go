// cmd/gateway/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"marketplace/gateway/internal/dispatch"
	"marketplace/gateway/internal/gateway"
	"marketplace/gateway/internal/registry"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 60 * time.Second
	// Responses may wait on a backend for the whole backend timeout.
	writeTimeoutSlack = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	reg, err := registry.Load(config.ServicesFile)
	if err != nil {
		return fmt.Errorf("service table: %w", err)
	}
	log.Info("Service table loaded", "services", reg.IDs())

	if config.MockOutputPrefix == "" {
		config.MockOutputPrefix = dispatch.DefaultMockPrefix
	}

	seed := uint64(config.RandomSeed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	dispatcher := dispatch.NewDispatcher(
		log, reg,
		dispatch.NewHTTPCaller(config.BackendTimeout),
		dispatch.NewRandomMetrics(seed),
		config.BackendTimeout, config.MockOutputPrefix,
	)
	server := gateway.NewServer(log, dispatcher, reg, config.StaticDir,
		gateway.ParseOrigins(config.CORSAllowedOrigins))

	address := config.Host + ":" + strconv.Itoa(config.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           server.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      config.BackendTimeout + writeTimeoutSlack,
		IdleTimeout:       idleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("Gateway listening", "address", address, "static_dir", config.StaticDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Gateway stopped cleanly")
	return nil
}
