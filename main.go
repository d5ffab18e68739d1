package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tonhe/pulse/cmd"
	"github.com/tonhe/pulse/internal/config"
	"github.com/tonhe/pulse/internal/engine"
	"github.com/tonhe/pulse/internal/logging"
	"github.com/tonhe/pulse/internal/telemetry"
	"github.com/tonhe/pulse/tui"
	"github.com/tonhe/pulse/tui/styles"
)

func main() {
	if len(os.Args) > 1 && cmd.IsSubcommand(os.Args[1]) {
		cmd.Execute(os.Args[1:])
		return
	}

	fs := flag.NewFlagSet("pulse", flag.ExitOnError)
	theme := fs.String("theme", "", "color theme for this session")
	apiURL := fs.String("api-url", "", "telemetry service base URL")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *theme != "" {
		if styles.GetThemeByName(*theme) == nil {
			fmt.Fprintf(os.Stderr, "Error: unknown theme %q (see `pulse themes`)\n", *theme)
			os.Exit(1)
		}
		cfg.Theme = *theme
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid config: %v\n", err)
		os.Exit(1)
	}

	// the alt screen owns the terminal, so the TUI logs to a file
	logger := logging.Discard()
	if dir, err := config.GetDataDir(); err == nil {
		if f, err := logging.OpenFile(dir); err == nil {
			defer f.Close()
			logger = logging.New(f, logging.ParseLevel(cfg.LogLevel))
		}
	}
	logger.Info("starting", slog.String("version", cmd.Version), slog.String("api_url", cfg.APIURL))

	client, err := telemetry.NewClient(cfg.APIURL,
		telemetry.WithTimeout(cfg.Timeout),
		telemetry.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	session := engine.NewSession(client, engine.SessionConfig{
		PollInterval:     cfg.PollInterval,
		ActiveAlertLimit: cfg.ActiveAlertLimit,
		MaxHistory:       cfg.MaxHistory,
		SensorPageSize:   cfg.SensorPageSize,
		AlertPageSize:    cfg.AlertPageSize,
	}, logger)

	model := tui.NewAppModel(cfg, session, logger, cmd.Version)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	session.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
