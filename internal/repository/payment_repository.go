package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tawandab/pawnshop-engine/internal/domain"
	apperrors "github.com/tawandab/pawnshop-engine/pkg/errors"
)

const paymentColumns = `
	id, loan_id, amount, currency,
	principal_component, interest_component, storage_component, penalty_component,
	provider, payment_status, receipt_no, poll_url, provider_ref, paynow_invoice_id,
	received_by, paid_at, captured_at, balance_applied_at, created_at, updated_at
`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO loan_payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.LoanID,
		payment.Amount,
		payment.Currency,
		payment.PrincipalComponent,
		payment.InterestComponent,
		payment.StorageComponent,
		payment.PenaltyComponent,
		payment.Provider,
		payment.PaymentStatus,
		payment.ReceiptNo,
		payment.PollURL,
		payment.ProviderRef,
		payment.PaynowInvoiceID,
		payment.ReceivedBy,
		payment.PaidAt,
		payment.CapturedAt,
		payment.BalanceAppliedAt,
		now,
		now,
	)

	return translateError(err, "payment", payment.ReceiptNo)
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM loan_payments WHERE id = $1`

	var payment domain.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, translateError(err, "payment", id.String())
	}

	refunds, err := r.GetRefunds(ctx, id)
	if err != nil {
		return nil, err
	}
	payment.Refunds = refunds

	return &payment, nil
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM loan_payments WHERE loan_id = $1 ORDER BY created_at`

	var payments []*domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) FindForWebhook(ctx context.Context, providerRef, receiptNo, pollURL string) (*domain.Payment, error) {
	lookups := []struct {
		column string
		value  string
	}{
		{"provider_ref", providerRef},
		{"receipt_no", receiptNo},
		{"poll_url", pollURL},
	}

	for _, l := range lookups {
		if l.value == "" {
			continue
		}

		query := `SELECT ` + paymentColumns + ` FROM loan_payments WHERE ` + l.column + ` = $1`
		var payment domain.Payment
		err := r.db.GetContext(ctx, &payment, query, l.value)
		if err == nil {
			return &payment, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	return nil, apperrors.NotFound("payment", providerRef+receiptNo)
}

func (r *paymentRepository) UpdateGatewayDetails(ctx context.Context, id uuid.UUID, pollURL, providerRef, invoiceID string) error {
	query := `
		UPDATE loan_payments
		SET poll_url = $2, provider_ref = $3, paynow_invoice_id = $4, updated_at = $5
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, pollURL, providerRef, invoiceID, time.Now())
	return err
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE loan_payments
		SET payment_status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}

// MarkPaid is the guarded paid transition: the WHERE clause admits only
// in-flight statuses, so a terminal row (paid, failed, cancelled, disputed,
// refunded) can never be flipped back to paid and only one caller wins under
// concurrency.
func (r *paymentRepository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE loan_payments
		SET payment_status = $2, captured_at = $3, paid_at = COALESCE(paid_at, $3), updated_at = $4
		WHERE id = $1 AND payment_status IN ('pending', 'sent', 'awaiting_confirmation', 'awaiting_delivery')
	`

	result, err := r.db.ExecContext(ctx, query, id, domain.PaymentStatusPaid, at, time.Now())
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *paymentRepository) AddRefund(ctx context.Context, refund *domain.Refund) error {
	query := `
		INSERT INTO payment_refunds (id, payment_id, amount, provider_ref, refunded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		refund.ID,
		refund.PaymentID,
		refund.Amount,
		refund.ProviderRef,
		refund.RefundedBy,
		time.Now(),
	)
	return err
}

func (r *paymentRepository) GetRefunds(ctx context.Context, paymentID uuid.UUID) ([]*domain.Refund, error) {
	query := `
		SELECT id, payment_id, amount, provider_ref, refunded_by, created_at
		FROM payment_refunds
		WHERE payment_id = $1
		ORDER BY created_at
	`

	var refunds []*domain.Refund
	if err := r.db.SelectContext(ctx, &refunds, query, paymentID); err != nil {
		return nil, err
	}
	return refunds, nil
}

func (r *paymentRepository) ListOpenGateway(ctx context.Context) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM loan_payments
		WHERE provider IN ($1, $2, $3, $4)
		  AND payment_status IN ($5, $6, $7, $8)
		  AND poll_url <> ''
		ORDER BY created_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query,
		domain.ProviderPaynow, domain.ProviderEcocash, domain.ProviderOneMoney, domain.ProviderTelecash,
		domain.PaymentStatusPending, domain.PaymentStatusSent,
		domain.PaymentStatusAwaitingConfirmation, domain.PaymentStatusAwaitingDelivery,
	)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) ListStaleGateway(ctx context.Context, cutoff time.Time) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM loan_payments
		WHERE provider IN ($1, $2, $3, $4)
		  AND payment_status IN ($5, $6)
		  AND created_at < $7
		ORDER BY created_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query,
		domain.ProviderPaynow, domain.ProviderEcocash, domain.ProviderOneMoney, domain.ProviderTelecash,
		domain.PaymentStatusPending, domain.PaymentStatusSent,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	return payments, nil
}
