package ui

import (
	"fmt"
	"strings"
)

// formatRSS renders a resident-set-size reading in megabytes.
func formatRSS(mb float64) string {
	if mb >= 1024 {
		return fmt.Sprintf("%.1f GB", mb/1024)
	}
	return fmt.Sprintf("%.0f MB", mb)
}

// progressBar renders a fixed-width bar. A nil total yields an
// indeterminate bar that slides with current.
func progressBar(current uint64, total *uint64, width int) string {
	if width < 4 {
		width = 4
	}
	inner := width - 2

	if total == nil || *total == 0 {
		pos := int(current) % inner
		var b strings.Builder
		b.WriteByte('[')
		for i := 0; i < inner; i++ {
			if i == pos {
				b.WriteByte('=')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteByte(']')
		return b.String()
	}

	filled := int(float64(inner) * float64(current) / float64(*total))
	if filled > inner {
		filled = inner
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", inner-filled) + "]"
}

// percent renders "NN%" for a determinate progress pair, "--" otherwise.
func percent(current uint64, total *uint64) string {
	if total == nil || *total == 0 {
		return "--"
	}
	p := current * 100 / *total
	if p > 100 {
		p = 100
	}
	return fmt.Sprintf("%d%%", p)
}

// truncate shortens a string to max runes with an ellipsis.
func truncate(value string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
