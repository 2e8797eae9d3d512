package main

import (
	"fmt"
	"strings"
	"time"

	"tomopipe/internal/queue"
)

const detailColumnLimit = 60

func buildRunRows(runs []*queue.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			formatRunID(run.ID),
			formatStatusLabel(run.Kind),
			run.Mode,
			formatStatusLabel(string(run.Status)),
			formatDisplayTime(run.StartedAt),
			runDuration(run),
			fmt.Sprintf("%d", run.Completed),
			fmt.Sprintf("%d", run.Failed),
			fmt.Sprintf("%d", run.Skipped),
		})
	}
	return rows
}

func buildItemRows(items []*queue.Item, filter queue.Status) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		if filter != "" && item.Status != filter {
			continue
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			item.Name,
			formatStatusLabel(string(item.Status)),
			truncateDetail(itemDetail(item), detailColumnLimit),
			formatDisplayTime(item.UpdatedAt),
		})
	}
	return rows
}

func describeRun(run *queue.Run) string {
	label := fmt.Sprintf("Run %s (%s, %s)", formatRunID(run.ID), run.Kind, run.Mode)
	if run.FinishedAt == nil {
		return fmt.Sprintf("%s running since %s", label, formatDisplayTime(run.StartedAt))
	}
	return fmt.Sprintf("%s %s in %s; started %s",
		label, run.Status, runDuration(run), formatDisplayTime(run.StartedAt))
}

func itemDetail(item *queue.Item) string {
	if detail := strings.TrimSpace(item.ProgressMessage); detail != "" {
		return detail
	}
	return strings.TrimSpace(item.ErrorMessage)
}

func runDuration(run *queue.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	elapsed := run.FinishedAt.Sub(run.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed.Round(time.Second).String()
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format("2006-01-02 15:04")
}

func formatRunID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateDetail(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
