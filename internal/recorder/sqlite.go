package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists analysis history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for concurrent readers while the batch writes.
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
		`CREATE TABLE IF NOT EXISTS analysis_results (
			symbol          TEXT NOT NULL,
			trade_date      TEXT NOT NULL,
			run_id          TEXT,
			recorded_at     INTEGER NOT NULL,
			name            TEXT,
			provisional     INTEGER,
			price           REAL,
			change_pct      REAL,
			regime          TEXT,
			horizon         TEXT,
			trend           TEXT,
			base_score      REAL,
			score           REAL,
			recommendation  TEXT,
			valuation       TEXT,
			halted          INTEGER,
			halt_reasons    TEXT,
			stop_binding    REAL,
			stop_intraday   REAL,
			stop_short      REAL,
			stop_medium     REAL,
			tp_short        REAL,
			tp_medium       REAL,
			trailing_stop   REAL,
			position_pct    REAL,
			suggested_pct   REAL,
			amount          REAL,
			risk_reward     REAL,
			dimensions      TEXT,
			adjustments     TEXT,
			missing         TEXT,
			summary         TEXT,
			advisory        TEXT,
			PRIMARY KEY (symbol, trade_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON analysis_results(run_id)`,

		`CREATE TABLE IF NOT EXISTS run_failures (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT,
			symbol      TEXT NOT NULL,
			error       TEXT,
			providers   TEXT,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_symbol ON run_failures(symbol)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	res := rec.Result
	if res == nil || res.Symbol == "" || res.AsOf.IsZero() {
		return fmt.Errorf("record analysis: result needs symbol and date")
	}
	dims, err := json.Marshal(res.Dimensions)
	if err != nil {
		return fmt.Errorf("encode dimensions: %w", err)
	}
	adjs, err := json.Marshal(res.Adjustments)
	if err != nil {
		return fmt.Errorf("encode adjustments: %w", err)
	}
	missing, err := json.Marshal(res.Missing)
	if err != nil {
		return fmt.Errorf("encode missing: %w", err)
	}
	tp := res.TakeProfit.Tranches

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO analysis_results
		(symbol, trade_date, run_id, recorded_at, name, provisional, price, change_pct,
		 regime, horizon, trend, base_score, score, recommendation, valuation,
		 halted, halt_reasons, stop_binding, stop_intraday, stop_short, stop_medium,
		 tp_short, tp_medium, trailing_stop, position_pct, suggested_pct, amount, risk_reward,
		 dimensions, adjustments, missing, summary, advisory)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, trade_date) DO UPDATE SET
			run_id=excluded.run_id, recorded_at=excluded.recorded_at, name=excluded.name,
			provisional=excluded.provisional, price=excluded.price, change_pct=excluded.change_pct,
			regime=excluded.regime, horizon=excluded.horizon, trend=excluded.trend,
			base_score=excluded.base_score, score=excluded.score,
			recommendation=excluded.recommendation, valuation=excluded.valuation,
			halted=excluded.halted, halt_reasons=excluded.halt_reasons,
			stop_binding=excluded.stop_binding, stop_intraday=excluded.stop_intraday,
			stop_short=excluded.stop_short, stop_medium=excluded.stop_medium,
			tp_short=excluded.tp_short, tp_medium=excluded.tp_medium,
			trailing_stop=excluded.trailing_stop, position_pct=excluded.position_pct,
			suggested_pct=excluded.suggested_pct, amount=excluded.amount,
			risk_reward=excluded.risk_reward, dimensions=excluded.dimensions,
			adjustments=excluded.adjustments, missing=excluded.missing,
			summary=excluded.summary, advisory=excluded.advisory`,
		res.Symbol, res.AsOf.Format(dateLayout), rec.RunID, time.Now().Unix(), res.Name,
		res.Provisional, res.Price, res.ChangePct,
		string(res.Regime), string(res.Horizon), string(res.Signals.Trend),
		res.BaseScore, res.Score, string(res.Recommendation), res.Valuation,
		res.Halted, strings.Join(res.HaltReasons, "；"),
		res.StopLoss.Binding, res.StopLoss.Intraday, res.StopLoss.Short, res.StopLoss.Medium,
		tp[0].Price, tp[1].Price, tp[2].Price,
		res.Position.Position, res.Position.Suggested, res.Position.Amount, res.RiskReward,
		string(dims), string(adjs), string(missing), res.Summary, res.Advisory,
	)
	return err
}

func (r *SQLiteRecorder) RecordFailure(ctx context.Context, rec *FailureRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO run_failures
		(run_id, symbol, error, providers, recorded_at)
		VALUES (?,?,?,?,?)`,
		rec.RunID, rec.Symbol, rec.Error, strings.Join(rec.Providers, ","), at.Unix(),
	)
	return err
}

func (r *SQLiteRecorder) LastTrailing(ctx context.Context, symbol string, before time.Time) (float64, error) {
	var v sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT trailing_stop FROM analysis_results
		WHERE symbol = ? AND trade_date < ? AND halted = 0
		ORDER BY trade_date DESC LIMIT 1`,
		symbol, before.Format(dateLayout),
	).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query trailing stop: %w", err)
	}
	return v.Float64, nil
}

func (r *SQLiteRecorder) Recent(ctx context.Context, symbol string, limit int) ([]StoredResult, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, trade_date, run_id, score, recommendation,
		trailing_stop, provisional
		FROM analysis_results WHERE symbol = ?
		ORDER BY trade_date DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var s StoredResult
		var runID sql.NullString
		if err := rows.Scan(&s.Symbol, &s.TradeDate, &runID, &s.Score, &s.Recommendation,
			&s.TrailingStop, &s.Provisional); err != nil {
			return nil, err
		}
		s.RunID = runID.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// FailureCount returns the number of failures recorded for a run.
func (r *SQLiteRecorder) FailureCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_failures WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
