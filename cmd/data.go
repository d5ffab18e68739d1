package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tonhe/pulse/internal/engine"
	"github.com/tonhe/pulse/internal/telemetry"
)

func dashboardCmd(args []string) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pulse dashboard")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	client := newClient(cfg, cliLogger(cfg))

	ctx := context.Background()
	snap, err := client.GetDashboard(ctx)
	if err != nil {
		fail(err)
	}
	alerts, err := client.GetActiveAlerts(ctx, cfg.ActiveAlertLimit)
	if err != nil {
		fail(err)
	}
	printSnapshot(engine.PollerState{Snapshot: &snap, ActiveAlerts: alerts, LastPoll: time.Now()})
}

// printSnapshot writes a dashboard state as plain text.
func printSnapshot(st engine.PollerState) {
	snap := st.Snapshot
	if snap == nil {
		fmt.Println("No data yet.")
		return
	}

	fmt.Printf("Messages: %s   Alerts: %s   Active: %s   Topics: %d\n",
		formatCount(snap.TotalMessages),
		formatCount(snap.TotalAlerts),
		formatCount(snap.ActiveAlerts),
		len(snap.Topics))
	if last := st.LatestRate; last != nil {
		fmt.Printf("Ingest: %s msg/s   %s alerts/s\n",
			printer.Sprintf("%.2f", last.MessageRate),
			printer.Sprintf("%.2f", last.AlertRate))
	}
	fmt.Println()

	fmt.Printf("%-24s  %10s  %10s  %10s  %10s  %10s  %s\n", "Topic", "Temp", "Humidity", "Voltage", "Current", "Pressure", "Received")
	fmt.Printf("%-24s  %10s  %10s  %10s  %10s  %10s  %s\n", "-----", "----", "--------", "-------", "-------", "--------", "--------")
	for _, topic := range snap.Topics {
		r := snap.LatestReadings[topic]
		received := "-"
		if r.ReceivedAt != nil {
			received = formatTime(r.ReceivedAt.Time)
		}
		fmt.Printf("%-24s  %10s  %10s  %10s  %10s  %10s  %s\n",
			truncate(topic, 24),
			formatValue(r.Temperature),
			formatValue(r.Humidity),
			formatValue(r.Voltage),
			formatValue(r.Current),
			formatValue(r.Pressure),
			received)
	}

	if len(st.ActiveAlerts) > 0 {
		fmt.Printf("\nActive alerts (%d shown):\n", len(st.ActiveAlerts))
		printAlertRows(st.ActiveAlerts)
	}
	if st.Err != nil {
		fmt.Printf("\nLast poll failed: %s\n", describeError(st.Err))
	}
}

func dataCmd(args []string) {
	fs := flag.NewFlagSet("data", flag.ExitOnError)
	topic := fs.String("topic", "", "Only show readings from this topic")
	from := fs.String("from", "", "Earliest received time (YYYY-MM-DD[ HH:MM[:SS]], local time)")
	to := fs.String("to", "", "Latest received time (YYYY-MM-DD[ HH:MM[:SS]], local time)")
	page := fs.Int("page", 1, "Page number")
	pageSize := fs.Int("page-size", 0, "Readings per page (default from config)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pulse data [--topic T] [--from TIME] [--to TIME] [--page N] [--page-size N]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	start, err := telemetry.ParseInputTime(*from, time.Local)
	if err != nil {
		fatalf("Error: --from: %v", err)
	}
	end, err := telemetry.ParseInputTime(*to, time.Local)
	if err != nil {
		fatalf("Error: --to: %v", err)
	}
	if *page < 1 {
		fatalf("Error: --page must be >= 1")
	}

	cfg := loadConfig()
	if *pageSize <= 0 {
		*pageSize = cfg.SensorPageSize
	}
	client := newClient(cfg, cliLogger(cfg))

	result, err := client.GetSensorData(context.Background(), telemetry.SensorDataQuery{
		SensorDataFilter: telemetry.SensorDataFilter{Topic: *topic, Start: start, End: end},
		Page:             *page,
		PageSize:         *pageSize,
	})
	if err != nil {
		fail(err)
	}
	if len(result.Items) == 0 {
		fmt.Println("No readings found.")
		return
	}
	printReadings(result.Items)
	fmt.Printf("\n%s\n", pageFooter(result))
}

func latestCmd(args []string) {
	fs := flag.NewFlagSet("latest", flag.ExitOnError)
	limit := fs.Int("limit", 10, "Number of readings")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pulse latest [--limit N]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	client := newClient(cfg, cliLogger(cfg))
	readings, err := client.GetLatestReadings(context.Background(), *limit)
	if err != nil {
		fail(err)
	}
	if len(readings) == 0 {
		fmt.Println("No readings found.")
		return
	}
	printReadings(readings)
}

func printReadings(readings []telemetry.SensorReading) {
	fmt.Printf("%-8s  %-24s  %10s  %10s  %10s  %10s  %10s  %s\n", "ID", "Topic", "Temp", "Humidity", "Voltage", "Current", "Pressure", "Received")
	fmt.Printf("%-8s  %-24s  %10s  %10s  %10s  %10s  %10s  %s\n", "--", "-----", "----", "--------", "-------", "-------", "--------", "--------")
	for _, r := range readings {
		fmt.Printf("%-8d  %-24s  %10s  %10s  %10s  %10s  %10s  %s\n",
			r.ID,
			truncate(r.Topic, 24),
			formatValue(r.Temperature),
			formatValue(r.Humidity),
			formatValue(r.Voltage),
			formatValue(r.Current),
			formatValue(r.Pressure),
			formatTime(r.ReceivedAt.Time))
	}
}

func topicsCmd(args []string) {
	cfg := loadConfig()
	logger := cliLogger(cfg)
	cache := engine.NewTopicCache(newClient(cfg, logger), logger)

	topics, err := cache.EnsureLoaded(context.Background())
	if err != nil {
		fail(err)
	}
	if len(topics) == 0 {
		fmt.Println("No topics have sent data.")
		return
	}
	for _, t := range topics {
		fmt.Println(t)
	}
}
