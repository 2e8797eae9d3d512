package main

import (
	"strings"
	"testing"
	"time"

	"tomopipe/internal/queue"
)

func TestFormatStatusLabel(t *testing.T) {
	cases := map[string]string{
		"completed":      "Completed",
		"training":       "Training",
		"halfsets":       "Halfsets",
		"half_tomograms": "Half Tomograms",
		"":               "",
	}
	for input, want := range cases {
		if got := formatStatusLabel(input); got != want {
			t.Fatalf("formatStatusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatRunID(t *testing.T) {
	if got := formatRunID("aaaa1111-feed-4eed-8000-000000000001"); got != "aaaa1111" {
		t.Fatalf("expected truncated id, got %q", got)
	}
	if got := formatRunID("short"); got != "short" {
		t.Fatalf("expected short id unchanged, got %q", got)
	}
}

func TestTruncateDetail(t *testing.T) {
	if got := truncateDetail("short message", 60); got != "short message" {
		t.Fatalf("expected unchanged message, got %q", got)
	}
	long := strings.Repeat("x", 80)
	got := truncateDetail(long, 60)
	if len(got) != 60 {
		t.Fatalf("expected 60 characters, got %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}

func TestDescribeRun(t *testing.T) {
	started := time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)
	finished := started.Add(42 * time.Second)

	run := &queue.Run{
		ID:         "aaaa1111-feed-4eed-8000-000000000001",
		Kind:       queue.RunKindHalfsets,
		Mode:       queue.ModeStandalone,
		Status:     queue.RunCompleted,
		StartedAt:  started,
		FinishedAt: &finished,
	}
	got := describeRun(run)
	want := "Run aaaa1111 (halfsets, standalone) completed in 42s; started 2026-03-14 09:26"
	if got != want {
		t.Fatalf("describeRun mismatch\n got: %q\nwant: %q", got, want)
	}

	running := &queue.Run{
		ID:        "bbbb2222-feed-4eed-8000-000000000002",
		Kind:      queue.RunKindDenoise,
		Mode:      queue.ModePipeline,
		Status:    queue.RunRunning,
		StartedAt: started,
	}
	got = describeRun(running)
	if !strings.Contains(got, "running since 2026-03-14 09:26") {
		t.Fatalf("expected running description, got %q", got)
	}
}

func TestBuildItemRows(t *testing.T) {
	items := []*queue.Item{
		{
			ID:              1,
			Name:            "TS_01",
			Status:          queue.StatusCompleted,
			ProgressMessage: "Half tomograms ready",
			UpdatedAt:       time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:           2,
			Name:         "TS_02",
			Status:       queue.StatusFailed,
			ErrorMessage: "Alignment job did not converge",
			UpdatedAt:    time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC),
		},
	}

	rows := buildItemRows(items, "")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "TS_01" || rows[0][2] != "Completed" || rows[0][3] != "Half tomograms ready" {
		t.Fatalf("unexpected first row %v", rows[0])
	}
	// Failed items fall back to the recorded error message.
	if rows[1][3] != "Alignment job did not converge" {
		t.Fatalf("unexpected failed detail %q", rows[1][3])
	}

	rows = buildItemRows(items, queue.StatusFailed)
	if len(rows) != 1 || rows[0][1] != "TS_02" {
		t.Fatalf("expected only the failed dataset, got %v", rows)
	}
}

func TestBuildRunRows(t *testing.T) {
	started := time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	runs := []*queue.Run{
		{
			ID:         "aaaa1111-feed-4eed-8000-000000000001",
			Kind:       queue.RunKindHalfsets,
			Mode:       queue.ModePipeline,
			Status:     queue.RunCompleted,
			StartedAt:  started,
			FinishedAt: &finished,
			Completed:  3,
			Failed:     1,
			Skipped:    2,
		},
	}
	rows := buildRunRows(runs)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	want := []string{"aaaa1111", "Halfsets", "pipeline", "Completed", "2026-03-14 09:26", "1m30s", "3", "1", "2"}
	for i, cell := range want {
		if rows[0][i] != cell {
			t.Fatalf("row[%d] = %q, want %q", i, rows[0][i], cell)
		}
	}
}
