package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tonhe/pulse/internal/config"
	"github.com/tonhe/pulse/internal/fakeservice"
	"github.com/tonhe/pulse/internal/logging"
)

func fakeServerCmd(args []string) {
	fs := flag.NewFlagSet("fake-server", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:8000", "Listen address")
	topics := fs.String("topics", "sensor/room1,sensor/room2,sensor/lab", "Comma-separated topics to simulate")
	seed := fs.Int("seed", 60, "Readings per topic to generate at startup")
	ingest := fs.Duration("ingest", 2*time.Second, "Interval between simulated readings (0 disables)")
	latency := fs.Duration("latency", 0, "Delay added to every response")
	legacy := fs.Bool("legacy-resolve", false, "Answer resolve with a message instead of the alert")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pulse fake-server [--addr HOST:PORT] [--seed N] [--ingest 2s] [--latency 0s]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg, err := config.Load(); err == nil {
		level = logging.ParseLevel(cfg.LogLevel)
	}
	logger := logging.New(os.Stderr, level)

	opts := []fakeservice.Option{fakeservice.WithLatency(*latency)}
	if *legacy {
		opts = append(opts, fakeservice.WithLegacyResolve())
	}
	svc := fakeservice.New(opts...)

	names := splitTopics(*topics)
	if len(names) > 0 && *seed > 0 {
		svc.Seed(names, *seed, time.Now(), 5*time.Second, time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *ingest > 0 && len(names) > 0 {
		go simulate(ctx, svc, names, *ingest, logger)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           svc,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("fake telemetry service listening", slog.String("addr", *addr), slog.Int("topics", len(names)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatalf("Error: %v", err)
	}
}

// simulate ingests one reading per tick on a random topic.
func simulate(ctx context.Context, svc *fakeservice.Service, topics []string, every time.Duration, logger *slog.Logger) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			topic := topics[rng.Intn(len(topics))]
			_, alert := svc.Ingest(topic, now, fakeservice.RandomValues(rng, fakeservice.DefaultThresholds))
			if alert != nil {
				logger.Info("threshold breach", slog.Int64("alert_id", alert.ID), slog.String("topic", topic), slog.String("severity", string(alert.Severity)))
			}
		}
	}
}

func splitTopics(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
