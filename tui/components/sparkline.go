package components

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var blocks = []rune{'\u2581', '\u2582', '\u2583', '\u2584', '\u2585', '\u2586', '\u2587', '\u2588'}

// Sparkline renders the last width values as block characters scaled to
// their own min/max.
func Sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return strings.Repeat(" ", width)
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}
	min, max := data[0], data[0]
	for _, v := range data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	var sb strings.Builder
	padding := width - len(data)
	for i := 0; i < padding; i++ {
		sb.WriteRune(' ')
	}
	spread := max - min
	for _, v := range data {
		if spread == 0 {
			sb.WriteRune(blocks[3])
		} else {
			normalized := (v - min) / spread
			idx := int(normalized * float64(len(blocks)-1))
			if idx >= len(blocks) {
				idx = len(blocks) - 1
			}
			sb.WriteRune(blocks[idx])
		}
	}
	return sb.String()
}

// FormatRate formats a per-second rate with a K/M suffix.
func FormatRate(perSec float64) string {
	if perSec == 0 {
		return "0"
	}
	switch {
	case perSec >= 1_000_000:
		return fmt.Sprintf("%.1fM", perSec/1_000_000)
	case perSec >= 1_000:
		return fmt.Sprintf("%.1fK", perSec/1_000)
	case perSec >= 10:
		return fmt.Sprintf("%.0f", perSec)
	default:
		return fmt.Sprintf("%.2f", perSec)
	}
}

var countPrinter = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators.
func FormatCount(n int64) string {
	return countPrinter.Sprintf("%d", n)
}
