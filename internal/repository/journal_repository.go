package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tawandab/pawnshop-engine/internal/domain"
)

type journalRepository struct {
	db *sqlx.DB
}

func NewJournalRepository(db *sqlx.DB) JournalRepository {
	return &journalRepository{db: db}
}

// PostEvent writes every row of one business event inside a single
// transaction. The partial unique indexes reject double-posting; callers see
// the violation as a DuplicateKey error carrying the constraint name.
func (r *journalRepository) PostEvent(ctx context.Context, txns []*domain.InventoryTransaction, entries []*domain.LedgerEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertTxn := `
		INSERT INTO inventory_transactions (id, tx_no, type, amount, currency, asset_id, loan_id, payment_id, account_code, description, occurred_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for _, t := range txns {
		_, err = tx.ExecContext(ctx, insertTxn,
			t.ID, t.TxNo, t.Type, t.Amount, t.Currency,
			t.AssetID, t.LoanID, t.PaymentID,
			t.AccountCode, t.Description, t.OccurredAt, t.CreatedBy, time.Now(),
		)
		if err != nil {
			return translateError(err, "inventory transaction", t.TxNo)
		}
	}

	insertEntry := `
		INSERT INTO ledger_entries (id, entry_date, category, amount, currency, loan_id, payment_id, asset_id, inventory_txn_id, memo, branch_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, e := range entries {
		_, err = tx.ExecContext(ctx, insertEntry,
			e.ID, e.EntryDate, e.Category, e.Amount, e.Currency,
			e.LoanID, e.PaymentID, e.AssetID, e.InventoryTxnID,
			e.Memo, e.BranchCode, time.Now(),
		)
		if err != nil {
			return translateError(err, "ledger entry", e.Category)
		}
	}

	return tx.Commit()
}

func (r *journalRepository) CountTransactionsOn(ctx context.Context, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	query := `
		SELECT COUNT(*)
		FROM inventory_transactions
		WHERE created_at >= $1 AND created_at < $2
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, start, end); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *journalRepository) HasDisbursement(ctx context.Context, loanID uuid.UUID) (bool, error) {
	return r.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_transactions
			WHERE type = 'loan_disbursement' AND loan_id = $1
		)`, loanID)
}

func (r *journalRepository) HasAssetSale(ctx context.Context, assetID uuid.UUID) (bool, error) {
	return r.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_transactions
			WHERE type = 'asset_sale' AND asset_id = $1
		)`, assetID)
}

func (r *journalRepository) HasPaymentPosting(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	return r.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_transactions
			WHERE payment_id = $1
		)`, paymentID)
}

func (r *journalRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var found bool
	if err := r.db.GetContext(ctx, &found, query, arg); err != nil {
		return false, err
	}
	return found, nil
}

func (r *journalRepository) ListTransactions(ctx context.Context, filter domain.JournalFilter) ([]*domain.InventoryTransaction, error) {
	query := `
		SELECT id, tx_no, type, amount, currency, asset_id, loan_id, payment_id, account_code, description, occurred_at, created_by, created_at
		FROM inventory_transactions
	`

	where, args := buildJournalWhere(filter, "occurred_at", filter.Type, "type")
	query += where + ` ORDER BY occurred_at DESC, tx_no DESC` + limitOffset(filter, len(args))

	var txns []*domain.InventoryTransaction
	if err := r.db.SelectContext(ctx, &txns, query, args...); err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *journalRepository) ListEntries(ctx context.Context, filter domain.JournalFilter) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT id, entry_date, category, amount, currency, loan_id, payment_id, asset_id, inventory_txn_id, memo, branch_code, created_at
		FROM ledger_entries
	`

	where, args := buildJournalWhere(filter, "entry_date", filter.Category, "category")
	query += where + ` ORDER BY entry_date DESC, created_at DESC` + limitOffset(filter, len(args))

	var entries []*domain.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}

func buildJournalWhere(filter domain.JournalFilter, dateColumn, kindValue, kindColumn string) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if kindValue != "" {
		add(kindColumn+" = $%d", kindValue)
	}
	if filter.Currency != "" {
		add("currency = $%d", filter.Currency)
	}
	if filter.LoanID != nil {
		add("loan_id = $%d", *filter.LoanID)
	}
	if filter.AssetID != nil {
		add("asset_id = $%d", *filter.AssetID)
	}
	if filter.PaymentID != nil {
		add("payment_id = $%d", *filter.PaymentID)
	}
	if filter.From != nil {
		add(dateColumn+" >= $%d", *filter.From)
	}
	if filter.To != nil {
		add(dateColumn+" < $%d", *filter.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func limitOffset(filter domain.JournalFilter, _ int) string {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}
