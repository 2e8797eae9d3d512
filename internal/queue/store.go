package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tomopipe/internal/config"
)

// Store manages run and dataset records backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.LedgerPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// CreateRun inserts a run record in the running state.
func (s *Store) CreateRun(ctx context.Context, id, kind, mode, root string) (*Run, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, kind, mode, root, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		kind,
		mode,
		root,
		RunRunning,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.RunByID(ctx, id)
}

// RunByID fetches a run by identifier. Returns nil when the run does not exist.
func (s *Store) RunByID(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently started run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs ordered newest first, up to limit (0 returns all).
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FinishRun records the dataset counters and marks the run finished.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus) (*Run, error) {
	summary, err := s.SummaryForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, finished_at = ?, completed = ?, failed = ?, skipped = ? WHERE id = ?`,
		status,
		time.Now().UTC().Format(time.RFC3339Nano),
		summary.Completed,
		summary.Failed,
		summary.Skipped,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	return s.RunByID(ctx, id)
}

// NewItem inserts a pending dataset record under a run.
func (s *Store) NewItem(ctx context.Context, runID, name, directory string) (*Item, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO items (
            run_id, name, directory, metadata_state, status,
            progress_stage, progress_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		name,
		directory,
		nil,
		StatusPending,
		nil,
		nil,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a dataset record by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing dataset record.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE items
         SET name = ?, directory = ?, metadata_state = ?, status = ?,
             progress_stage = ?, progress_message = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		item.Name,
		item.Directory,
		nullableString(item.MetadataState),
		item.Status,
		nullableString(item.ProgressStage),
		nullableString(item.ProgressMessage),
		nullableString(item.ErrorMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// ItemsByRun returns a run's dataset records ordered by creation time.
func (s *Store) ItemsByRun(ctx context.Context, runID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE run_id = ? ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query items by run: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Stats returns dataset counts for a run grouped by status.
func (s *Store) Stats(ctx context.Context, runID string) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM items WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// SummaryForRun aggregates a run's dataset counts into lifecycle buckets.
func (s *Store) SummaryForRun(ctx context.Context, runID string) (RunSummary, error) {
	stats, err := s.Stats(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}
	summary := RunSummary{}
	for status, count := range stats {
		summary.Total += count
		switch status {
		case StatusPending:
			summary.Pending += count
		case StatusCompleted:
			summary.Completed += count
		case StatusFailed:
			summary.Failed += count
		case StatusSkipped:
			summary.Skipped += count
		default:
			if IsProcessingStatus(status) {
				summary.Processing += count
			}
		}
	}
	return summary, nil
}

const runColumns = "id, kind, mode, root, status, started_at, finished_at, completed, failed, skipped"

const itemColumns = "id, run_id, name, directory, metadata_state, status, progress_stage, progress_message, error_message, created_at, updated_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          string
		kind        string
		mode        string
		root        string
		statusStr   string
		startedRaw  sql.NullString
		finishedRaw sql.NullString
		completed   int
		failed      int
		skipped     int
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&mode,
		&root,
		&statusStr,
		&startedRaw,
		&finishedRaw,
		&completed,
		&failed,
		&skipped,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:        id,
		Kind:      kind,
		Mode:      mode,
		Root:      root,
		Status:    RunStatus(statusStr),
		Completed: completed,
		Failed:    failed,
		Skipped:   skipped,
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id              int64
		runID           string
		name            string
		directory       string
		metadataState   sql.NullString
		statusStr       string
		progressStage   sql.NullString
		progressMessage sql.NullString
		errorMessage    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&name,
		&directory,
		&metadataState,
		&statusStr,
		&progressStage,
		&progressMessage,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		RunID:           runID,
		Name:            name,
		Directory:       directory,
		MetadataState:   metadataState.String,
		Status:          Status(statusStr),
		ProgressStage:   progressStage.String,
		ProgressMessage: progressMessage.String,
		ErrorMessage:    errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
