package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/tawandab/pawnshop-engine/internal/domain"
)

type reportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) SumLedgerByCategory(ctx context.Context, from, to time.Time, currency string) (map[string]decimal.Decimal, error) {
	query := `
		SELECT category AS bucket, COALESCE(SUM(amount), 0) AS total
		FROM ledger_entries
		WHERE entry_date >= $1 AND entry_date < $2 AND currency = $3
		GROUP BY category
	`
	return r.sums(ctx, query, from, to, currency)
}

func (r *reportRepository) SumTransactionsByType(ctx context.Context, from, to time.Time, currency string) (map[string]decimal.Decimal, error) {
	query := `
		SELECT type AS bucket, COALESCE(SUM(amount), 0) AS total
		FROM inventory_transactions
		WHERE occurred_at >= $1 AND occurred_at < $2 AND currency = $3
		GROUP BY type
	`
	return r.sums(ctx, query, from, to, currency)
}

func (r *reportRepository) TrialBalanceRows(ctx context.Context, from, to time.Time, currency string) ([]domain.TrialBalanceRow, error) {
	query := `
		SELECT account_code,
		       COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0)  AS debit,
		       COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS credit
		FROM inventory_transactions
		WHERE occurred_at >= $1 AND occurred_at < $2 AND currency = $3
		GROUP BY account_code
		ORDER BY account_code
	`

	var rows []domain.TrialBalanceRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to, currency); err != nil {
		return nil, err
	}
	return rows, nil
}

type sumRow struct {
	Bucket string          `db:"bucket"`
	Total  decimal.Decimal `db:"total"`
}

func (r *reportRepository) sums(ctx context.Context, query string, from, to time.Time, currency string) (map[string]decimal.Decimal, error) {
	var rows []sumRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to, currency); err != nil {
		return nil, err
	}

	sums := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.Bucket] = row.Total
	}
	return sums, nil
}
