package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Migration is one versioned, ordered schema change. Up and down scripts
// ship in the binary; the checksum computed at apply time is recorded and
// verified on every later run.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Checksum returns the sha256 hex digest of the migration scripts.
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpSQL + "\n--\n" + m.DownSQL))
	return hex.EncodeToString(sum[:])
}

// AppliedMigration is a migration recorded in the migrations table.
type AppliedMigration struct {
	Version   int
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// Engine applies and rolls back registered migrations against the store.
// Each migration runs inside its own transaction, in ascending version
// order; re-running Apply on an up-to-date store is a no-op.
type Engine struct {
	db         *sql.DB
	log        *logrus.Logger
	migrations []Migration
}

func NewEngine(db *sql.DB, log *logrus.Logger, migrations []Migration) (*Engine, error) {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Version == sorted[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", sorted[i].Version)
		}
	}

	return &Engine{db: db, log: log, migrations: sorted}, nil
}

// Apply runs all pending migrations in ascending version order.
func (e *Engine) Apply(ctx context.Context) error {
	if err := e.initVersionTable(ctx); err != nil {
		return err
	}

	applied, err := e.Applied(ctx)
	if err != nil {
		return err
	}
	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	for _, a := range applied {
		appliedByVersion[a.Version] = a
	}

	pending := 0
	for _, m := range e.migrations {
		if prev, ok := appliedByVersion[m.Version]; ok {
			if prev.Checksum != m.Checksum() {
				return fmt.Errorf("migration %d (%s): checksum mismatch, recorded %s but registry has %s",
					m.Version, m.Name, prev.Checksum, m.Checksum())
			}
			continue
		}

		if err := e.applyOne(ctx, m); err != nil {
			return err
		}
		pending++
		e.log.Infof("Applied migration %d (%s)", m.Version, m.Name)
	}

	if pending == 0 {
		e.log.Debug("Store schema is up to date")
	}
	return nil
}

// Rollback applies down scripts in descending order for every applied
// version strictly greater than target.
func (e *Engine) Rollback(ctx context.Context, target int) error {
	applied, err := e.Applied(ctx)
	if err != nil {
		return err
	}

	registered := make(map[int]Migration, len(e.migrations))
	for _, m := range e.migrations {
		registered[m.Version] = m
	}

	for i := len(applied) - 1; i >= 0; i-- {
		a := applied[i]
		if a.Version <= target {
			break
		}
		m, ok := registered[a.Version]
		if !ok {
			return fmt.Errorf("applied migration %d (%s) is not in the registry, cannot roll back", a.Version, a.Name)
		}
		if err := e.rollbackOne(ctx, m); err != nil {
			return err
		}
		e.log.Infof("Rolled back migration %d (%s)", m.Version, m.Name)
	}
	return nil
}

// Applied returns the recorded migrations in ascending version order.
func (e *Engine) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if err := e.initVersionTable(ctx); err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx,
		`SELECT version, name, checksum, applied_at FROM migrations ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var a AppliedMigration
		var appliedAt string
		if err := rows.Scan(&a.Version, &a.Name, &a.Checksum, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan applied migration: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339, appliedAt); parseErr == nil {
			a.AppliedAt = ts
		}
		applied = append(applied, a)
	}
	return applied, rows.Err()
}

func (e *Engine) initVersionTable(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (e *Engine) applyOne(ctx context.Context, m Migration) (err error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin transaction: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				e.log.Errorf("Failed to rollback transaction for migration %d: %v", m.Version, rollbackErr)
			}
		}
	}()

	if err = execStatements(ctx, tx, m.UpSQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO migrations (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)`,
		m.Version, m.Name, m.Checksum(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("migration %d: record: %w", m.Version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.Version, err)
	}
	return nil
}

func (e *Engine) rollbackOne(ctx context.Context, m Migration) (err error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rollback %d: begin transaction: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				e.log.Errorf("Failed to rollback transaction for migration %d: %v", m.Version, rollbackErr)
			}
		}
	}()

	if err = execStatements(ctx, tx, m.DownSQL); err != nil {
		return fmt.Errorf("rollback %d (%s): %w", m.Version, m.Name, err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM migrations WHERE version = ?`, m.Version)
	if err != nil {
		return fmt.Errorf("rollback %d: unrecord: %w", m.Version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("rollback %d: commit: %w", m.Version, err)
	}
	return nil
}

func execStatements(ctx context.Context, tx *sql.Tx, script string) error {
	statements := strings.Split(script, ";")
	executed := 0
	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d: %w", i+1, err)
		}
		executed++
	}
	if executed == 0 {
		return fmt.Errorf("no SQL statements found")
	}
	return nil
}
