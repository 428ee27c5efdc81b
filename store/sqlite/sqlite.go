/*
Package sqlite provides a SQLite-backed compensation.WorkspaceStore.

PURPOSE:
  Persists the dashboard workspace: plan configurations, sample
  representatives, saved scenarios and payout runs. The calculation engine
  never reads from here; the HTTP adapter and CLI load what they need and
  hand plain values to the calculator.

KEY TABLES:
  plans:           Plan JSON (versioned; every save bumps version)
  representatives: Rep contexts as JSON, keyed by rep id
  scenarios:       Scenario modifiers as JSON
  payout_runs:     Append-only record of batch calculations

APPEND-ONLY ENFORCEMENT:
  payout_runs has no UPDATE or DELETE path outside Reset. A run id that
  already exists is rejected with compensation.ErrDuplicateRecord.

DECIMALS:
  Money is stored as decimal text inside the JSON columns, never as REAL,
  so a stored total reads back exactly.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode.

USAGE:
  store, err := sqlite.New("./data/commission.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - compensation/store.go: Interface definition
  - compensation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/compensation"
)

// Store implements compensation.WorkspaceStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ compensation.WorkspaceStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is its own database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Plans (versioned)
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		plan_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Sample representatives
	CREATE TABLE IF NOT EXISTS representatives (
		id TEXT PRIMARY KEY,
		name TEXT,
		territory TEXT,
		tier_name TEXT,
		context_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_representatives_territory
		ON representatives(territory);

	-- Saved scenarios
	CREATE TABLE IF NOT EXISTS scenarios (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		scenario_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Payout runs (append-only)
	CREATE TABLE IF NOT EXISTS payout_runs (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL,
		plan_version INTEGER NOT NULL,
		scenario_id TEXT,
		total TEXT NOT NULL,
		rep_count INTEGER NOT NULL,
		failed_count INTEGER NOT NULL,
		breakdowns_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Run history per plan, newest first
	CREATE INDEX IF NOT EXISTS idx_payout_runs_plan_created
		ON payout_runs(plan_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PLANS
// =============================================================================

// SavePlan inserts a plan at version 1 or bumps the version of an existing one.
func (s *Store) SavePlan(ctx context.Context, p compensation.PlanRecord) (compensation.PlanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO plans (id, name, plan_json, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			plan_json = excluded.plan_json,
			version = plans.version + 1,
			updated_at = excluded.updated_at
	`

	now := formatTime(time.Now().UTC())
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Name, string(p.Plan), now, now); err != nil {
		return compensation.PlanRecord{}, fmt.Errorf("save plan %s: %w", p.ID, err)
	}
	return s.getPlan(ctx, p.ID)
}

// GetPlan retrieves a plan by ID.
func (s *Store) GetPlan(ctx context.Context, id string) (compensation.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPlan(ctx, id)
}

func (s *Store) getPlan(ctx context.Context, id string) (compensation.PlanRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, plan_json, version, created_at, updated_at FROM plans WHERE id = ?",
		id,
	)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return compensation.PlanRecord{}, fmt.Errorf("plan %s: %w", id, compensation.ErrNotFound)
	}
	return p, err
}

// ListPlans returns all plans ordered by name.
func (s *Store) ListPlans(ctx context.Context) ([]compensation.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, plan_json, version, created_at, updated_at FROM plans ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []compensation.PlanRecord{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// DeletePlan removes a plan. Its payout runs are kept.
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByID(ctx, "plans", "plan", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (compensation.PlanRecord, error) {
	var p compensation.PlanRecord
	var planJSON, createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &planJSON, &p.Version, &createdAt, &updatedAt); err != nil {
		return compensation.PlanRecord{}, err
	}
	p.Plan = json.RawMessage(planJSON)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// =============================================================================
// REPRESENTATIVES
// =============================================================================

// SaveRepresentative inserts or replaces a representative.
func (s *Store) SaveRepresentative(ctx context.Context, rep compensation.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode representative %s: %w", rep.RepID, err)
	}

	query := `
		INSERT INTO representatives (id, name, territory, tier_name, context_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			territory = excluded.territory,
			tier_name = excluded.tier_name,
			context_json = excluded.context_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		rep.RepID, rep.RepName, rep.Territory, rep.TierName, string(data),
		formatTime(time.Now().UTC()),
	)
	return err
}

// GetRepresentative retrieves a representative by rep ID.
func (s *Store) GetRepresentative(ctx context.Context, id string) (compensation.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT context_json FROM representatives WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return compensation.Context{}, fmt.Errorf("representative %s: %w", id, compensation.ErrNotFound)
	}
	if err != nil {
		return compensation.Context{}, err
	}
	return decodeContext(data)
}

// ListRepresentatives returns all representatives ordered by rep ID.
func (s *Store) ListRepresentatives(ctx context.Context) ([]compensation.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT context_json FROM representatives ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reps := []compensation.Context{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rep, err := decodeContext(data)
		if err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}

// DeleteRepresentative removes a representative.
func (s *Store) DeleteRepresentative(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByID(ctx, "representatives", "representative", id)
}

func decodeContext(data string) (compensation.Context, error) {
	var rep compensation.Context
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return compensation.Context{}, fmt.Errorf("decode representative: %w", err)
	}
	return rep, nil
}

// =============================================================================
// SCENARIOS
// =============================================================================

// SaveScenario inserts or replaces a scenario. CreatedAt defaults to now and
// is preserved on update.
func (s *Store) SaveScenario(ctx context.Context, sc compensation.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode scenario %s: %w", sc.ID, err)
	}

	query := `
		INSERT INTO scenarios (id, name, scenario_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			scenario_json = excluded.scenario_json
	`
	_, err = s.db.ExecContext(ctx, query, sc.ID, sc.Name, string(data), formatTime(sc.CreatedAt))
	return err
}

// GetScenario retrieves a scenario by ID.
func (s *Store) GetScenario(ctx context.Context, id string) (compensation.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT scenario_json FROM scenarios WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return compensation.Scenario{}, fmt.Errorf("scenario %s: %w", id, compensation.ErrNotFound)
	}
	if err != nil {
		return compensation.Scenario{}, err
	}
	return decodeScenario(data)
}

// ListScenarios returns scenarios oldest first.
func (s *Store) ListScenarios(ctx context.Context) ([]compensation.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT scenario_json FROM scenarios ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scenarios := []compensation.Scenario{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		sc, err := decodeScenario(data)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, rows.Err()
}

// DeleteScenario removes a scenario.
func (s *Store) DeleteScenario(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByID(ctx, "scenarios", "scenario", id)
}

func decodeScenario(data string) (compensation.Scenario, error) {
	var sc compensation.Scenario
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return compensation.Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	return sc, nil
}

// =============================================================================
// PAYOUT RUNS - Append-only
// =============================================================================

// SavePayoutRun appends a run.
func (s *Store) SavePayoutRun(ctx context.Context, run compensation.PayoutRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	breakdowns, err := json.Marshal(run.Breakdowns)
	if err != nil {
		return fmt.Errorf("encode payout run %s: %w", run.ID, err)
	}

	query := `
		INSERT INTO payout_runs (id, plan_id, plan_version, scenario_id, total, rep_count, failed_count, breakdowns_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var scenarioID sql.NullString
	if run.ScenarioID != "" {
		scenarioID = sql.NullString{String: run.ScenarioID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.PlanID, run.PlanVersion, scenarioID, run.Total.String(),
		run.RepCount, run.FailedCount, string(breakdowns), formatTime(run.CreatedAt),
	)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("payout run %s: %w", run.ID, compensation.ErrDuplicateRecord)
	}
	return err
}

// ListPayoutRuns returns runs newest first; planID "" lists all.
func (s *Store) ListPayoutRuns(ctx context.Context, planID string) ([]compensation.PayoutRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, plan_id, plan_version, scenario_id, total, rep_count, failed_count, breakdowns_json, created_at
		FROM payout_runs
		WHERE (? = '' OR plan_id = ?)
		ORDER BY created_at DESC, rowid DESC
	`
	rows, err := s.db.QueryContext(ctx, query, planID, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []compensation.PayoutRun{}
	for rows.Next() {
		var run compensation.PayoutRun
		var scenarioID sql.NullString
		var total, breakdowns, createdAt string
		if err := rows.Scan(&run.ID, &run.PlanID, &run.PlanVersion, &scenarioID, &total,
			&run.RepCount, &run.FailedCount, &breakdowns, &createdAt); err != nil {
			return nil, err
		}
		run.ScenarioID = scenarioID.String
		run.Total, err = decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("payout run %s total: %w", run.ID, err)
		}
		if err := json.Unmarshal([]byte(breakdowns), &run.Breakdowns); err != nil {
			return nil, fmt.Errorf("decode payout run %s: %w", run.ID, err)
		}
		run.CreatedAt = parseTime(createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payout_runs", "scenarios", "representatives", "plans"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// deleteByID removes one row; callers hold the write lock.
func (s *Store) deleteByID(ctx context.Context, table, kind, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, compensation.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
