package backtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// TradeStore keeps a run's executed orders in an in-memory DuckDB table for
// ad hoc aggregation and parquet export.
type TradeStore struct {
	db *sql.DB
}

// StoreSummary aggregates one run's stored trades. Realized P&L accumulates
// in decimal so long runs do not drift.
type StoreSummary struct {
	Trades      int
	RealizedPnL decimal.Decimal
}

// NewTradeStore opens an in-memory DuckDB database and creates the orders
// table.
func NewTradeStore(ctx context.Context) (*TradeStore, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestStoreFailed, "failed to open duckdb", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR PRIMARY KEY,
		run_id VARCHAR NOT NULL,
		ticker VARCHAR NOT NULL,
		action VARCHAR NOT NULL,
		ts TIMESTAMP NOT NULL,
		price DOUBLE NOT NULL,
		quantity DOUBLE NOT NULL,
		pnl DOUBLE,
		stop_loss_triggered BOOLEAN NOT NULL,
		take_profit_triggered BOOLEAN NOT NULL
	)`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, errors.Wrap(errors.ErrCodeBacktestStoreFailed, "failed to create orders table", err)
	}

	return &TradeStore{db: db}, nil
}

// Close releases the database.
func (s *TradeStore) Close() error {
	return s.db.Close()
}

// InsertOrders stores the trade records of a run. INFO records carry no
// execution and are skipped.
func (s *TradeStore) InsertOrders(ctx context.Context, runID string, orders []types.OrderRecord) error {
	builder := sq.Insert("orders").Columns(
		"id", "run_id", "ticker", "action", "ts", "price", "quantity",
		"pnl", "stop_loss_triggered", "take_profit_triggered",
	)

	inserted := 0

	for _, o := range orders {
		if !o.IsTrade() {
			continue
		}

		var pnl any
		if o.PnLThisTrade.IsSome() {
			pnl = o.PnLThisTrade.Unwrap()
		} else if o.PnLFromPriorTrade.IsSome() {
			pnl = o.PnLFromPriorTrade.Unwrap()
		}

		builder = builder.Values(
			o.ID, runID, o.Ticker, string(o.Action), o.Timestamp, o.Price, o.Quantity,
			pnl, o.StopLossTriggered, o.TakeProfitTriggered,
		)
		inserted++
	}

	if inserted == 0 {
		return nil
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStoreFailed, "failed to build insert", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStoreFailed, "failed to insert orders", err)
	}

	return nil
}

// Summary returns trade count and accumulated realized P&L for a run.
func (s *TradeStore) Summary(ctx context.Context, runID string) (StoreSummary, error) {
	query, args, err := sq.Select("pnl").
		From("orders").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("ts").
		ToSql()
	if err != nil {
		return StoreSummary{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build summary query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return StoreSummary{}, errors.Wrap(errors.ErrCodeQueryFailed, "summary query failed", err)
	}
	defer rows.Close()

	summary := StoreSummary{RealizedPnL: decimal.Zero}

	for rows.Next() {
		var pnl sql.NullFloat64
		if err := rows.Scan(&pnl); err != nil {
			return StoreSummary{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan summary row", err)
		}

		summary.Trades++

		if pnl.Valid {
			summary.RealizedPnL = summary.RealizedPnL.Add(decimal.NewFromFloat(pnl.Float64))
		}
	}

	if err := rows.Err(); err != nil {
		return StoreSummary{}, errors.Wrap(errors.ErrCodeQueryFailed, "summary iteration failed", err)
	}

	return summary, nil
}

// ExportParquet writes the run's orders to a parquet file.
func (s *TradeStore) ExportParquet(ctx context.Context, runID, path string) error {
	if strings.ContainsAny(path, "'") {
		return errors.Newf(errors.ErrCodeInvalidParameter, "invalid parquet path %q", path)
	}

	// COPY does not take placeholders for the target file, so the run filter
	// is parameterized and the path is validated above.
	query := fmt.Sprintf(
		"COPY (SELECT * FROM orders WHERE run_id = ? ORDER BY ts) TO '%s' (FORMAT PARQUET)", path)

	if _, err := s.db.ExecContext(ctx, query, runID); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStoreFailed, "parquet export failed", err)
	}

	return nil
}
