package cmd

import (
	"fmt"
	"os"

	"github.com/tonhe/pulse/internal/config"
	"github.com/tonhe/pulse/internal/telemetry"
	"github.com/tonhe/pulse/tui/styles"
)

func configCmd(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: pulse config <path|api-url|theme>")
		os.Exit(1)
	}

	switch args[0] {
	case "path":
		configPath()
	case "api-url":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: pulse config api-url URL")
			os.Exit(1)
		}
		configSetAPIURL(args[1])
	case "theme":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: pulse config theme NAME")
			os.Exit(1)
		}
		configSetTheme(args[1])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: pulse config <path|api-url|theme>")
		os.Exit(1)
	}
}

func configPath() {
	path, err := config.GetConfigPath()
	if err != nil {
		fail(err)
	}
	fmt.Println(path)
}

func configSetAPIURL(raw string) {
	if _, err := telemetry.NewClient(raw); err != nil {
		fatalf("Error: %v", err)
	}

	cfg := loadOrDefaultConfig()
	cfg.APIURL = raw
	saveConfig(cfg)

	fmt.Printf("Service URL set to %q.\n", raw)
}

func configSetTheme(name string) {
	if styles.GetThemeByName(name) == nil {
		fmt.Fprintf(os.Stderr, "Error: unknown theme %q\n", name)
		fmt.Fprintln(os.Stderr, "Run 'pulse themes' to see available themes.")
		os.Exit(1)
	}

	cfg := loadOrDefaultConfig()
	cfg.Theme = name
	saveConfig(cfg)

	fmt.Printf("Default theme set to %q.\n", name)
}

func themesCmd() {
	for _, name := range styles.ListThemes() {
		fmt.Println(name)
	}
}

// loadOrDefaultConfig loads the config file without environment overrides,
// so that saving it back does not persist them.
func loadOrDefaultConfig() *config.Config {
	path, err := config.GetConfigPath()
	if err != nil {
		return config.DefaultConfig()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// saveConfig writes the config to disk, creating directories as needed.
func saveConfig(cfg *config.Config) {
	if err := config.EnsureDirs(); err != nil {
		fatalf("Error creating config directories: %v", err)
	}

	path, err := config.GetConfigPath()
	if err != nil {
		fail(err)
	}

	if err := config.SaveConfig(cfg, path); err != nil {
		fatalf("Error saving config: %v", err)
	}
}
