package main

import (
	"strings"
	"testing"

	"loom/internal/api"
)

func TestBuildJobStatsRowsSkipsZeroCounts(t *testing.T) {
	rows := buildJobStatsRows(map[string]int{
		"pending":   2,
		"completed": 0,
		"failed":    1,
	})
	if len(rows) != 2 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
	if rows[0][0] != "pending" || rows[0][1] != "2" {
		t.Fatalf("unexpected first row: %#v", rows[0])
	}
	if rows[1][0] != "failed" || rows[1][1] != "1" {
		t.Fatalf("unexpected second row: %#v", rows[1])
	}
}

func TestBuildStageRowsPrefersErrorDetail(t *testing.T) {
	rows := buildStageRows([]api.StageResult{
		{
			Stage:        "transcribe",
			Dependency:   "whisper",
			Status:       "failed",
			Attempts:     3,
			DurationMS:   412,
			ErrorMessage: "rate limited",
			Output:       `{"partial":true}`,
		},
	})
	if len(rows) != 1 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
	if rows[0][5] != "rate limited" {
		t.Fatalf("expected error detail, got %q", rows[0][5])
	}
	if rows[0][4] != "412ms" {
		t.Fatalf("unexpected duration: %q", rows[0][4])
	}
}

func TestTruncateShortensLongDetail(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := truncate(long, 60)
	if len(got) != 60 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if truncate("short", 60) != "short" {
		t.Fatal("short values must pass through unchanged")
	}
}

func TestBreakerStatusKind(t *testing.T) {
	if breakerStatusKind("closed") != statusOK {
		t.Fatal("closed should render as OK")
	}
	if breakerStatusKind("half_open") != statusWarn {
		t.Fatal("half_open should render as WARN")
	}
	if breakerStatusKind("open") != statusError {
		t.Fatal("open should render as ERROR")
	}
	if breakerStatusKind("") != statusInfo {
		t.Fatal("unknown states should render as INFO")
	}
}

func TestFormatTimestampFallsBackToRawValue(t *testing.T) {
	if got := formatTimestamp("not-a-time"); got != "not-a-time" {
		t.Fatalf("unexpected fallback: %q", got)
	}
	if got := formatTimestamp(""); got != "" {
		t.Fatalf("empty input should stay empty, got %q", got)
	}
}
