package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tonhe/pulse/internal/telemetry"
)

var printer = message.NewPrinter(language.English)

// formatCount renders n with thousands separators.
func formatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// formatValue renders an optional sensor value; absent values print as "-".
func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("%.2f", *v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatResolved(r telemetry.Resolved) string {
	if r {
		return "resolved"
	}
	return "active"
}

// formatBreaches lists each violated key with its actual value and limits.
func formatBreaches(a telemetry.Alert) string {
	keys := append([]string(nil), a.ViolatedKeys...)
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		part := k
		if v, ok := a.ActualValues[k]; ok {
			part += printer.Sprintf("=%.2f", v)
		}
		if lim, ok := a.ThresholdLimits[k]; ok {
			part += printer.Sprintf(" [%g..%g]", lim.Min, lim.Max)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

// truncate shortens a string to the given max length, adding "..." if needed.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func pageFooter[T any](p telemetry.Page[T]) string {
	return fmt.Sprintf("Page %d of %d (%s total)", p.Page, p.TotalPages, formatCount(int64(p.Total)))
}
