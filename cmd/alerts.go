package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/tonhe/pulse/internal/engine"
	"github.com/tonhe/pulse/internal/telemetry"
)

func alertsCmd(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: pulse alerts <list|active|resolve>")
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		alertsList(args[1:])
	case "active":
		alertsActive(args[1:])
	case "resolve":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: pulse alerts resolve ID")
			os.Exit(1)
		}
		alertsResolve(args[1])
	default:
		fmt.Fprintf(os.Stderr, "Unknown alerts command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: pulse alerts <list|active|resolve>")
		os.Exit(1)
	}
}

func alertsList(args []string) {
	fs := flag.NewFlagSet("alerts list", flag.ExitOnError)
	topic := fs.String("topic", "", "Only show alerts from this topic")
	severity := fs.String("severity", "", "warning or critical")
	status := fs.String("status", "", "active or resolved")
	page := fs.Int("page", 1, "Page number")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pulse alerts list [--topic T] [--severity S] [--status active|resolved] [--page N]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	sev, err := telemetry.ParseSeverity(*severity)
	if err != nil {
		fatalf("Error: %v", err)
	}
	st, err := telemetry.ParseStatusFilter(*status)
	if err != nil {
		fatalf("Error: %v", err)
	}
	if *page < 1 {
		fatalf("Error: --page must be >= 1")
	}

	cfg := loadConfig()
	client := newClient(cfg, cliLogger(cfg))
	result, err := client.GetAlerts(context.Background(), telemetry.AlertQuery{
		AlertFilter: telemetry.AlertFilter{Topic: *topic, Severity: sev, Status: st},
		Page:        *page,
		PageSize:    cfg.AlertPageSize,
	})
	if err != nil {
		fail(err)
	}
	if len(result.Items) == 0 {
		fmt.Println("No alerts found.")
		return
	}
	printAlertRows(result.Items)
	fmt.Printf("\n%s\n", pageFooter(result))
}

func alertsActive(args []string) {
	fs := flag.NewFlagSet("alerts active", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Number of alerts (default from config)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	if *limit <= 0 {
		*limit = cfg.ActiveAlertLimit
	}
	client := newClient(cfg, cliLogger(cfg))
	alerts, err := client.GetActiveAlerts(context.Background(), *limit)
	if err != nil {
		fail(err)
	}
	if len(alerts) == 0 {
		fmt.Println("No active alerts.")
		return
	}
	printAlertRows(alerts)
}

func alertsResolve(raw string) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		fatalf("Error: invalid alert id %q", raw)
	}

	cfg := loadConfig()
	logger := cliLogger(cfg)
	resolver := engine.NewResolver(newClient(cfg, logger), logger)

	if _, err := resolver.Resolve(context.Background(), id); err != nil {
		if telemetry.IsNotFound(err) {
			fatalf("Error: alert %d not found", id)
		}
		fail(err)
	}
	fmt.Printf("Alert %d resolved.\n", id)
}

func printAlertRows(alerts []telemetry.Alert) {
	fmt.Printf("%-8s  %-8s  %-8s  %-24s  %-19s  %s\n", "ID", "Severity", "Status", "Topic", "Created", "Breaches")
	fmt.Printf("%-8s  %-8s  %-8s  %-24s  %-19s  %s\n", "--", "--------", "------", "-----", "-------", "--------")
	for _, a := range alerts {
		fmt.Printf("%-8d  %-8s  %-8s  %-24s  %-19s  %s\n",
			a.ID,
			a.Severity,
			formatResolved(a.Resolved),
			truncate(a.Topic, 24),
			formatTime(a.CreatedAt.Time),
			formatBreaches(a))
	}
}
