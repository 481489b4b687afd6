package ui

import (
	"strings"
	"testing"

	"github.com/bastionmc/bastion/internal/busykey"
)

func TestFormatRSS(t *testing.T) {
	if got := formatRSS(312.4); got != "312 MB" {
		t.Fatalf("formatRSS(312.4) = %q, want %q", got, "312 MB")
	}
	if got := formatRSS(2048); got != "2.0 GB" {
		t.Fatalf("formatRSS(2048) = %q, want %q", got, "2.0 GB")
	}
}

func TestProgressBar_Determinate(t *testing.T) {
	total := uint64(100)

	bar := progressBar(50, &total, 12)
	if len(bar) != 12 {
		t.Fatalf("bar length = %d, want 12", len(bar))
	}
	if got := strings.Count(bar, "="); got != 5 {
		t.Fatalf("bar fill = %d segments, want 5: %q", got, bar)
	}

	full := progressBar(200, &total, 12)
	if got := strings.Count(full, "="); got != 10 {
		t.Fatalf("overfull bar fill = %d segments, want 10: %q", got, full)
	}
}

func TestProgressBar_Indeterminate(t *testing.T) {
	bar := progressBar(7, nil, 12)
	if len(bar) != 12 {
		t.Fatalf("bar length = %d, want 12", len(bar))
	}
	if got := strings.Count(bar, "="); got != 1 {
		t.Fatalf("indeterminate bar fill = %d segments, want 1: %q", got, bar)
	}
}

func TestPercent(t *testing.T) {
	total := uint64(200)
	if got := percent(50, &total); got != "25%" {
		t.Fatalf("percent = %q, want 25%%", got)
	}
	if got := percent(500, &total); got != "100%" {
		t.Fatalf("percent clamped = %q, want 100%%", got)
	}
	if got := percent(50, nil); got != "--" {
		t.Fatalf("percent nil total = %q, want --", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
	if got := truncate("a longer value", 8); got != "a longe…" {
		t.Fatalf("truncate = %q, want %q", got, "a longe…")
	}
}

func TestBusySummary_StableOrder(t *testing.T) {
	busy := map[busykey.Key]busykey.Tag{
		{Kind: "mod", ID: "sodium"}:      "installing",
		{Kind: "datapack", ID: "terra"}:  "uninstalling",
		{Kind: "shader", ID: "complexe"}: "installing",
	}

	got := busySummary(busy)
	want := "installing mod:sodium, installing shader:complexe, uninstalling datapack:terra"
	if got != want {
		t.Fatalf("busySummary = %q, want %q", got, want)
	}
}
