package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"TrendSentinel/internal/model"
)

// SQLiteRecorder persists evaluation history to a SQLite database.
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

	// WAL lets dashboards read while the scheduler writes.
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
		`CREATE TABLE IF NOT EXISTS evaluations (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			symbol        TEXT NOT NULL,
			interval      TEXT,
			bar_time      INTEGER,
			bar_count     INTEGER,
			close         REAL,
			sar           REAL,
			ma            REAL,
			sar_direction INTEGER,
			ma_direction  INTEGER,
			signal        INTEGER,
			trend         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_symbol_ts ON evaluations(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS signal_changes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			interval    TEXT,
			bar_time    INTEGER,
			from_signal INTEGER,
			to_signal   INTEGER,
			close       REAL,
			sar         REAL,
			ma          REAL,
			trend       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_change_symbol_ts ON signal_changes(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordEvaluation(ev *model.Evaluation) error {
	i := ev.Latest()
	if i < 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO evaluations
		(timestamp, symbol, interval, bar_time, bar_count, close, sar, ma,
		 sar_direction, ma_direction, signal, trend)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		ev.EvaluatedAt.Unix(), ev.Symbol, ev.Interval, ev.Bars[i].Time.Unix(), ev.Len(),
		ev.Bars[i].Close, ev.SAR[i], ev.MA[i],
		ev.Votes[i].SAR, ev.Votes[i].MA, int(ev.Signals[i]), int(ev.Trend),
	)
	return err
}

func (r *SQLiteRecorder) RecordSignalChange(evt *model.SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO signal_changes
		(timestamp, symbol, interval, bar_time, from_signal, to_signal, close, sar, ma, trend)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		at.Unix(), evt.Symbol, evt.Interval, evt.BarTime.Unix(),
		int(evt.From), int(evt.To), evt.Close, evt.SAR, evt.MA, int(evt.Trend),
	)
	return err
}

func (r *SQLiteRecorder) LastSignal(symbol string) (model.Signal, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sig int
	err := r.db.QueryRow(
		`SELECT signal FROM evaluations WHERE symbol = ? ORDER BY id DESC LIMIT 1`, symbol,
	).Scan(&sig)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SignalFlat, false, nil
	}
	if err != nil {
		return model.SignalFlat, false, err
	}
	return model.Signal(sig), true, nil
}

// CountSignalChanges returns how many transitions were recorded for symbol.
func (r *SQLiteRecorder) CountSignalChanges(symbol string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM signal_changes WHERE symbol = ?`, symbol).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
