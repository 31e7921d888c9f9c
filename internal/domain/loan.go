package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive    = "active"
	LoanStatusOverdue   = "overdue"
	LoanStatusRedeemed  = "redeemed"
	LoanStatusDefaulted = "defaulted"
	LoanStatusClosed    = "closed"
)

const (
	CurrencyUSD = "USD"
	CurrencyZWL = "ZWL"
)

// Loan is a pawn loan backed by an optional collateral asset.
// current_balance never exceeds principal_amount; a redeemed loan
// always carries a zero balance.
type Loan struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	LoanNo          string          `json:"loan_no" db:"loan_no"`
	CustomerID      uuid.UUID       `json:"customer_id" db:"customer_id"`
	AssetID         *uuid.UUID      `json:"asset_id,omitempty" db:"asset_id"`
	PrincipalAmount decimal.Decimal `json:"principal_amount" db:"principal_amount"`
	CurrentBalance  decimal.Decimal `json:"current_balance" db:"current_balance"`
	Currency        string          `json:"currency" db:"currency"`
	Status          string          `json:"status" db:"status"`
	DisbursedAt     *time.Time      `json:"disbursed_at,omitempty" db:"disbursed_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// IsSettled reports whether no further repayments are expected on the loan.
func (l *Loan) IsSettled() bool {
	return l.Status == LoanStatusRedeemed || l.Status == LoanStatusClosed
}

func ValidCurrency(c string) bool {
	return c == CurrencyUSD || c == CurrencyZWL
}
