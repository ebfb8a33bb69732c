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

	"MoonLamp/internal/model"
)

// SQLiteRecorder persists price history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(logger zerolog.Logger, dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the status API read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_ticks (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			symbol        TEXT NOT NULL,
			source        TEXT,
			price         REAL NOT NULL,
			compare_price REAL,
			status        TEXT NOT NULL,
			change_pct    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_symbol_ts ON price_ticks(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS status_changes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			from_status TEXT,
			to_status   TEXT NOT NULL,
			price       REAL,
			change_pct  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_changes_ts ON status_changes(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTick(evt *TickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var compare sql.NullFloat64
	if evt.ComparePrice != nil {
		compare = sql.NullFloat64{Float64: *evt.ComparePrice, Valid: true}
	}
	_, err := r.db.Exec(`INSERT INTO price_ticks
		(timestamp, symbol, source, price, compare_price, status, change_pct)
		VALUES (?,?,?,?,?,?,?)`,
		evt.CheckedAt.UnixMilli(), evt.Symbol, evt.Source, evt.Price,
		compare, string(evt.Status), evt.Change,
	)
	return err
}

func (r *SQLiteRecorder) RecordStatusChange(evt *StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO status_changes
		(timestamp, symbol, from_status, to_status, price, change_pct)
		VALUES (?,?,?,?,?,?)`,
		evt.At.UnixMilli(), evt.Symbol, string(evt.From), string(evt.To),
		evt.Price, evt.Change,
	)
	return err
}

// RecentPrices returns the ticks of symbol newer than since, oldest first.
func (r *SQLiteRecorder) RecentPrices(symbol string, since time.Time) ([]model.PricePoint, error) {
	rows, err := r.db.Query(`SELECT timestamp, price FROM price_ticks
		WHERE symbol = ? AND timestamp > ?
		ORDER BY timestamp ASC`, symbol, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		var ts int64
		var p model.PricePoint
		if err := rows.Scan(&ts, &p.Price); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		p.Timestamp = time.UnixMilli(ts)
		points = append(points, p)
	}
	return points, rows.Err()
}

// Purge deletes ticks and status changes older than before.
func (r *SQLiteRecorder) Purge(before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	for _, table := range []string{"price_ticks", "status_changes"} {
		res, err := r.db.Exec("DELETE FROM "+table+" WHERE timestamp < ?", before.UnixMilli())
		if err != nil {
			return total, fmt.Errorf("purge %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
