package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"OdysseyFarmer/internal/model"
)

// SQLiteRecorder persists outcomes and balance snapshots to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL mode so dashboards can read while the farmer writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS outcomes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			run_id     TEXT,
			account    TEXT,
			action     TEXT,
			target     TEXT,
			kind       TEXT NOT NULL,
			hash       TEXT,
			reason     TEXT,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_ts ON outcomes(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_account ON outcomes(account)`,

		`CREATE TABLE IF NOT EXISTS balance_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			account     TEXT NOT NULL,
			balance_wei TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_balance_ts ON balance_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordOutcome(e *model.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO outcomes
		(timestamp, run_id, account, action, target, kind, hash, reason, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		e.Time.UnixMilli(), e.RunID, e.Account, e.Action, e.Target,
		string(e.Outcome.Kind), e.Outcome.Hash, e.Outcome.Reason, e.Outcome.Err,
	)
	return err
}

// RecordBalances writes one row per reading in a single transaction.
func (r *SQLiteRecorder) RecordBalances(readings []model.BalanceReading) error {
	if len(readings) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO balance_snapshots
		(timestamp, account, balance_wei, error) VALUES (?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, rd := range readings {
		var bal sql.NullString
		if rd.Amount != nil {
			bal = sql.NullString{String: rd.Amount.Dec(), Valid: true}
		}
		if _, err := stmt.Exec(now, rd.Identity, bal, rd.Err); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
