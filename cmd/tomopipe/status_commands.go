package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tomopipe/internal/deps"
	"tomopipe/internal/preflight"
	"tomopipe/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var runFlag string
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show system health and the datasets of a recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			var filter queue.Status
			if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
				parsed, ok := queue.ParseStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q (expected one of: %s)", statusFlag, statusNames())
				}
				filter = parsed
			}

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg, "") {
				kind := statusError
				if result.Passed {
					kind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(preflight.CheckSystemDeps(cmd.Context(), cfg), colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			title := "Latest Run"
			if strings.TrimSpace(runFlag) != "" {
				title = "Run " + formatRunID(runFlag)
			}
			for _, line := range renderSectionHeader(title, colorize) {
				fmt.Fprintln(stdout, line)
			}

			run, err := loadRun(cmd.Context(), store, runFlag)
			if err != nil {
				return err
			}
			if run == nil {
				fmt.Fprintln(stdout, "No runs recorded yet")
				return nil
			}

			fmt.Fprintln(stdout, describeRun(run))

			items, err := store.ItemsByRun(cmd.Context(), run.ID)
			if err != nil {
				return fmt.Errorf("list datasets: %w", err)
			}
			rows := buildItemRows(items, filter)
			if len(rows) == 0 {
				if filter != "" {
					fmt.Fprintf(stdout, "No datasets with status %s\n", filter)
				} else {
					fmt.Fprintln(stdout, "No datasets recorded for this run")
				}
				return nil
			}

			table := renderTable(
				[]string{"ID", "Dataset", "Status", "Detail", "Updated"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	cmd.Flags().StringVar(&runFlag, "run", "", "Inspect a specific run by id instead of the latest")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show datasets with this status")
	return cmd
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			stdout := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(stdout, "No runs recorded yet")
				return nil
			}

			table := renderTable(
				[]string{"Run", "Kind", "Mode", "Status", "Started", "Duration", "Completed", "Failed", "Skipped"},
				buildRunRows(runs),
				[]columnAlignment{
					alignLeft, alignLeft, alignLeft, alignLeft, alignLeft,
					alignRight, alignRight, alignRight, alignRight,
				},
			)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func loadRun(ctx context.Context, store *queue.Store, runID string) (*queue.Run, error) {
	trimmed := strings.TrimSpace(runID)
	if trimmed == "" {
		run, err := store.LatestRun(ctx)
		if err != nil {
			return nil, fmt.Errorf("load latest run: %w", err)
		}
		return run, nil
	}
	run, err := store.RunByID(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", trimmed, err)
	}
	if run == nil {
		run, err = findRunByPrefix(ctx, store, trimmed)
		if err != nil {
			return nil, err
		}
	}
	if run == nil {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	return run, nil
}

// findRunByPrefix resolves the truncated ids shown by 'tomopipe runs'.
func findRunByPrefix(ctx context.Context, store *queue.Store, prefix string) (*queue.Run, error) {
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var match *queue.Run
	for _, run := range runs {
		if !strings.HasPrefix(run.ID, prefix) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run id %q is ambiguous", prefix)
		}
		match = run
	}
	return match, nil
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		if dep.Optional {
			lines = append(lines, renderStatusLine(dep.Name, statusWarn, detail+" (optional)", colorize))
			continue
		}
		lines = append(lines, renderStatusLine(dep.Name, statusError, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn,
			fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}

func statusNames() string {
	statuses := queue.AllStatuses()
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}
