package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"pet-owner-reports/internal/domain/pets"
	"pet-owner-reports/internal/platform/logger"
	"pet-owner-reports/internal/platform/metrics"
	"pet-owner-reports/internal/router"
)

func main() {
	log := logger.NewFromEnv("pet-owner-service")

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	chaos, err := chaosFromEnv()
	if err != nil {
		log.Error("invalid chaos config", map[string]any{"error": err})
		os.Exit(2)
	}

	r := router.NewRouter(router.Options{
		SeedDemo: envBool("SEED_DEMO"),
		Chaos:    chaos,
		Metrics:  metrics.New(),
		Logger:   log,
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second, // > FLAKY_MAX_DELAY
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting server", map[string]any{
		"addr":               addr,
		"flaky_failure_rate": chaos.FailureRate,
		"flaky_max_delay_ms": chaos.MaxDelay.Milliseconds(),
	})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", map[string]any{"error": err})
		os.Exit(1)
	}
	log.Info("server stopped", nil)
}

// chaosFromEnv lee FLAKY_FAILURE_RATE y FLAKY_MAX_DELAY sobre pets.DefaultChaos.
func chaosFromEnv() (pets.Chaos, error) {
	c := pets.DefaultChaos()
	if v := strings.TrimSpace(os.Getenv("FLAKY_FAILURE_RATE")); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 || rate > 1 {
			return c, errors.New("FLAKY_FAILURE_RATE must be a number in [0,1]")
		}
		c.FailureRate = rate
	}
	if v := strings.TrimSpace(os.Getenv("FLAKY_MAX_DELAY")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return c, errors.New("FLAKY_MAX_DELAY must be a non-negative duration")
		}
		c.MaxDelay = d
	}
	return c, nil
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
