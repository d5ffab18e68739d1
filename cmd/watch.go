package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/tonhe/pulse/internal/engine"
	"github.com/tonhe/pulse/internal/logging"
	"github.com/tonhe/pulse/internal/metrics"
)

func watchCmd(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", 0, "Poll interval (default from config)")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pulse watch [--interval 5s] [--metrics-addr :9100]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	if *interval > 0 {
		cfg.PollInterval = *interval
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	logger := cliLogger(cfg)
	client := newClient(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics listener failed", logging.ErrAttr(err))
			}
		}()
	}

	poller := engine.NewPoller(client, engine.PollerConfig{
		Interval:         cfg.PollInterval,
		ActiveAlertLimit: cfg.ActiveAlertLimit,
		MaxHistory:       cfg.MaxHistory,
	}, logger)
	events := poller.Subscribe()
	if err := poller.Start(); err != nil {
		fail(err)
	}
	defer poller.Stop()

	redraw := term.IsTerminal(int(os.Stdout.Fd()))
	lastCount, lastErrors := -1, -1
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			st := ev.State
			if st.PollCount == lastCount && st.ErrorCount == lastErrors {
				continue
			}
			lastCount, lastErrors = st.PollCount, st.ErrorCount
			if redraw {
				fmt.Print("\033[H\033[2J")
			} else {
				fmt.Printf("--- %s\n", time.Now().Format(time.DateTime))
			}
			printSnapshot(st)
			if redraw {
				fmt.Printf("\n%s  polling every %s, Ctrl+C to quit\n", client.BaseURL(), cfg.PollInterval)
			}
		}
	}
}
