package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tawandab/pawnshop-engine/internal/domain"
)

// LoanRepository defines loan data operations.
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by primary key
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByLoanNo retrieves a loan by its business number
	GetByLoanNo(ctx context.Context, loanNo string) (*domain.Loan, error)

	// SetDisbursed stamps the disbursement time and activates the loan
	SetDisbursed(ctx context.Context, id uuid.UUID, at time.Time) error

	// ApplyPayment decrements the balance from a captured payment inside a
	// row-locked transaction, clamping at zero, redeeming the loan when the
	// balance reaches zero and propagating the status to the linked asset.
	// The payment row carries a one-shot claim, so re-running the call for
	// the same payment is a no-op rather than a double decrement.
	ApplyPayment(ctx context.Context, id, paymentID uuid.UUID, amount decimal.Decimal) (*domain.Loan, error)
}

// AssetRepository defines collateral asset data operations.
type AssetRepository interface {
	// Create creates a new asset
	Create(ctx context.Context, asset *domain.Asset) error

	// GetByID retrieves an asset by primary key
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error)

	// UpdateStatus sets the asset lifecycle status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// PaymentRepository defines payment data operations.
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by primary key
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByLoanID retrieves all payments for a loan
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// FindForWebhook locates a payment by provider reference, receipt number
	// or poll URL, whichever matches first.
	FindForWebhook(ctx context.Context, providerRef, receiptNo, pollURL string) (*domain.Payment, error)

	// UpdateGatewayDetails stores the provider handles after initiation
	UpdateGatewayDetails(ctx context.Context, id uuid.UUID, pollURL, providerRef, invoiceID string) error

	// UpdateStatus sets the payment status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// MarkPaid performs the guarded pending-to-paid transition. It returns
	// true only for the caller that actually claimed the transition.
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// AddRefund appends a refund record
	AddRefund(ctx context.Context, refund *domain.Refund) error

	// GetRefunds lists refunds for a payment
	GetRefunds(ctx context.Context, paymentID uuid.UUID) ([]*domain.Refund, error)

	// ListOpenGateway lists gateway payments still in flight with a poll URL
	ListOpenGateway(ctx context.Context) ([]*domain.Payment, error)

	// ListStaleGateway lists gateway payments still pending past the cutoff
	ListStaleGateway(ctx context.Context, cutoff time.Time) ([]*domain.Payment, error)
}

// JournalRepository defines the inventory-transaction and ledger-entry
// journal operations.
type JournalRepository interface {
	// PostEvent persists the inventory rows and derived ledger rows of one
	// business event in a single transaction.
	PostEvent(ctx context.Context, txns []*domain.InventoryTransaction, entries []*domain.LedgerEntry) error

	// CountTransactionsOn counts journal rows created within the given
	// calendar day; feeds the daily tx_no sequence.
	CountTransactionsOn(ctx context.Context, day time.Time) (int, error)

	// HasDisbursement reports whether a disbursement row exists for a loan
	HasDisbursement(ctx context.Context, loanID uuid.UUID) (bool, error)

	// HasAssetSale reports whether a sale row exists for an asset
	HasAssetSale(ctx context.Context, assetID uuid.UUID) (bool, error)

	// HasPaymentPosting reports whether any repayment-family row exists for
	// a payment
	HasPaymentPosting(ctx context.Context, paymentID uuid.UUID) (bool, error)

	// ListTransactions lists inventory transactions matching the filter
	ListTransactions(ctx context.Context, filter domain.JournalFilter) ([]*domain.InventoryTransaction, error)

	// ListEntries lists ledger entries matching the filter
	ListEntries(ctx context.Context, filter domain.JournalFilter) ([]*domain.LedgerEntry, error)
}

// ReportRepository defines the aggregation queries behind the reporting
// projections.
type ReportRepository interface {
	// SumLedgerByCategory sums ledger amounts per category over a period
	SumLedgerByCategory(ctx context.Context, from, to time.Time, currency string) (map[string]decimal.Decimal, error)

	// SumTransactionsByType sums inventory amounts per type over a period
	SumTransactionsByType(ctx context.Context, from, to time.Time, currency string) (map[string]decimal.Decimal, error)

	// TrialBalanceRows splits per-account journal movement into debit and
	// credit columns over a period
	TrialBalanceRows(ctx context.Context, from, to time.Time, currency string) ([]domain.TrialBalanceRow, error)
}
