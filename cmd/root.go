package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tonhe/pulse/internal/config"
	"github.com/tonhe/pulse/internal/logging"
	"github.com/tonhe/pulse/internal/telemetry"
)

// Version is the release string printed by `pulse version`.
const Version = "pulse v0.1.0"

// knownSubcommands is the set of CLI subcommands that bypass the TUI.
var knownSubcommands = map[string]bool{
	"dashboard":   true,
	"watch":       true,
	"data":        true,
	"latest":      true,
	"topics":      true,
	"alerts":      true,
	"fake-server": true,
	"config":      true,
	"themes":      true,
	"version":     true,
	"help":        true,
}

// IsSubcommand returns true if the argument is a known CLI subcommand.
func IsSubcommand(arg string) bool {
	return knownSubcommands[arg]
}

// Execute dispatches to the appropriate CLI subcommand handler.
func Execute(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "dashboard":
		dashboardCmd(args[1:])
	case "watch":
		watchCmd(args[1:])
	case "data":
		dataCmd(args[1:])
	case "latest":
		latestCmd(args[1:])
	case "topics":
		topicsCmd(args[1:])
	case "alerts":
		alertsCmd(args[1:])
	case "fake-server":
		fakeServerCmd(args[1:])
	case "config":
		configCmd(args[1:])
	case "themes":
		themesCmd()
	case "version":
		fmt.Println(Version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pulse - sensor telemetry and alert monitor

Usage:
  pulse                          Launch TUI monitor
  pulse --theme NAME             Launch with theme override
  pulse --api-url URL            Launch against another service
  pulse dashboard                Print the dashboard snapshot
  pulse watch                    Poll the dashboard and print every update
  pulse data                     Print a page of raw sensor readings
  pulse latest                   Print the most recent readings
  pulse topics                   List topics that have sent data
  pulse alerts <cmd>             List and resolve alerts
  pulse fake-server              Serve an in-memory telemetry service
  pulse config <cmd>             Manage configuration
  pulse themes                   List available themes
  pulse version                  Show version
  pulse help                     Show this help

Data:
  pulse data [--topic T] [--from TIME] [--to TIME] [--page N] [--page-size N]
  pulse latest [--limit N]
  pulse watch [--interval 5s] [--metrics-addr :9100]

Alert Commands:
  pulse alerts list [--topic T] [--severity S] [--status active|resolved] [--page N]
  pulse alerts active [--limit N]
  pulse alerts resolve ID

Config Commands:
  pulse config path              Show config file path
  pulse config api-url URL       Set the service URL
  pulse config theme NAME        Set default theme

Environment:
  PULSE_API_URL, PULSE_TIMEOUT, PULSE_POLL_INTERVAL, PULSE_LOG_LEVEL, PULSE_METRICS_ADDR`)
}

// loadConfig reads the config file and environment, exiting on error.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("Error: invalid config: %v", err)
	}
	return cfg
}

// cliLogger logs to stderr; subcommands own stdout.
func cliLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))
}

func newClient(cfg *config.Config, logger *slog.Logger) *telemetry.Client {
	client, err := telemetry.NewClient(cfg.APIURL,
		telemetry.WithTimeout(cfg.Timeout),
		telemetry.WithLogger(logger))
	if err != nil {
		fatalf("Error: %v", err)
	}
	return client
}

// fail prints err in a form fit for the terminal and exits.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
	os.Exit(1)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func describeError(err error) string {
	var (
		nf *telemetry.NotFoundError
		se *telemetry.ServiceError
		te *telemetry.TransportError
	)
	switch {
	case errors.As(err, &nf):
		return "not found"
	case errors.As(err, &se):
		return fmt.Sprintf("service returned %d: %s", se.Status, truncate(se.Body, 120))
	case errors.As(err, &te):
		return fmt.Sprintf("cannot reach service: %v", te.Err)
	default:
		return err.Error()
	}
}
