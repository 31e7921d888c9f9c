package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/tawandab/pawnshop-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, loan_no, customer_id, asset_id, principal_amount, current_balance, currency, status, disbursed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.LoanNo,
		loan.CustomerID,
		loan.AssetID,
		loan.PrincipalAmount,
		loan.CurrentBalance,
		loan.Currency,
		loan.Status,
		loan.DisbursedAt,
		now,
		now,
	)

	return translateError(err, "loan", loan.LoanNo)
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT id, loan_no, customer_id, asset_id, principal_amount, current_balance, currency, status, disbursed_at, created_at, updated_at
		FROM loans
		WHERE id = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		return nil, translateError(err, "loan", id.String())
	}

	return &loan, nil
}

func (r *loanRepository) GetByLoanNo(ctx context.Context, loanNo string) (*domain.Loan, error) {
	query := `
		SELECT id, loan_no, customer_id, asset_id, principal_amount, current_balance, currency, status, disbursed_at, created_at, updated_at
		FROM loans
		WHERE loan_no = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, loanNo); err != nil {
		return nil, translateError(err, "loan", loanNo)
	}

	return &loan, nil
}

func (r *loanRepository) SetDisbursed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE loans
		SET disbursed_at = $2, status = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, at, domain.LoanStatusActive, time.Now())
	return err
}

// ApplyPayment serializes concurrent captures on the same loan with a row
// lock, so current_balance always equals principal minus the applied
// payments, clamped at zero. The decrement is claimed on the payment row
// inside the same transaction; a payment whose balance already landed is
// skipped, which lets the settle path be replayed after partial failures.
func (r *loanRepository) ApplyPayment(ctx context.Context, id, paymentID uuid.UUID, amount decimal.Decimal) (*domain.Loan, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var loan domain.Loan
	lockQuery := `
		SELECT id, loan_no, customer_id, asset_id, principal_amount, current_balance, currency, status, disbursed_at, created_at, updated_at
		FROM loans
		WHERE id = $1
		FOR UPDATE
	`
	if err := tx.GetContext(ctx, &loan, lockQuery, id); err != nil {
		return nil, translateError(err, "loan", id.String())
	}

	claim := `
		UPDATE loan_payments
		SET balance_applied_at = $2, updated_at = $2
		WHERE id = $1 AND balance_applied_at IS NULL
	`
	result, err := tx.ExecContext(ctx, claim, paymentID, time.Now())
	if err != nil {
		return nil, err
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if claimed == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &loan, nil
	}

	newBalance := loan.CurrentBalance.Sub(amount)
	if newBalance.IsNegative() {
		newBalance = decimal.Zero
	}

	status := loan.Status
	if newBalance.IsZero() {
		status = domain.LoanStatusRedeemed
	}

	now := time.Now()
	updateLoan := `
		UPDATE loans
		SET current_balance = $2, status = $3, updated_at = $4
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, updateLoan, loan.ID, newBalance, status, now); err != nil {
		return nil, err
	}

	if loan.AssetID != nil {
		assetStatus := domain.AssetStatusPawned
		if newBalance.IsZero() {
			assetStatus = domain.AssetStatusRedeemed
		}
		updateAsset := `
			UPDATE assets
			SET status = $2, updated_at = $3
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, updateAsset, *loan.AssetID, assetStatus, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	loan.CurrentBalance = newBalance
	loan.Status = status
	loan.UpdatedAt = now
	return &loan, nil
}
