package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending              = "pending"
	PaymentStatusAwaitingConfirmation = "awaiting_confirmation"
	PaymentStatusAwaitingDelivery     = "awaiting_delivery"
	PaymentStatusSent                 = "sent"
	PaymentStatusPaid                 = "paid"
	PaymentStatusFailed               = "failed"
	PaymentStatusCancelled            = "cancelled"
)

const (
	ProviderPaynow       = "paynow"
	ProviderEcocash      = "ecocash"
	ProviderOneMoney     = "onemoney"
	ProviderTelecash     = "telecash"
	ProviderBankTransfer = "bank_transfer"
	ProviderCash         = "cash"
)

// Payment is a repayment against a loan, split into up to four monetary
// components. The component sum never exceeds amount; any excess is applied
// as implicit principal. A paid payment is immutable apart from appended
// refunds.
type Payment struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	LoanID             uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	Currency           string          `json:"currency" db:"currency"`
	PrincipalComponent decimal.Decimal `json:"principal_component" db:"principal_component"`
	InterestComponent  decimal.Decimal `json:"interest_component" db:"interest_component"`
	StorageComponent   decimal.Decimal `json:"storage_component" db:"storage_component"`
	PenaltyComponent   decimal.Decimal `json:"penalty_component" db:"penalty_component"`
	Provider           string          `json:"provider" db:"provider"`
	PaymentStatus      string          `json:"payment_status" db:"payment_status"`
	ReceiptNo          string          `json:"receipt_no" db:"receipt_no"`
	PollURL            string          `json:"poll_url,omitempty" db:"poll_url"`
	ProviderRef        string          `json:"provider_ref,omitempty" db:"provider_ref"`
	PaynowInvoiceID    string          `json:"paynow_invoice_id,omitempty" db:"paynow_invoice_id"`
	ReceivedBy         string          `json:"received_by" db:"received_by"`
	PaidAt             *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CapturedAt         *time.Time      `json:"captured_at,omitempty" db:"captured_at"`
	BalanceAppliedAt   *time.Time      `json:"balance_applied_at,omitempty" db:"balance_applied_at"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`

	Refunds []*Refund `json:"refunds,omitempty" db:"-"`
}

// Refund is an appended partial reversal of a paid payment. Appending a
// refund never changes payment_status.
type Refund struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	PaymentID   uuid.UUID       `json:"payment_id" db:"payment_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	ProviderRef string          `json:"provider_ref,omitempty" db:"provider_ref"`
	RefundedBy  string          `json:"refunded_by" db:"refunded_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// paymentTransitions is the allowed state machine:
//
//	pending -> sent | awaiting_confirmation | awaiting_delivery | paid | failed | cancelled
//	sent -> awaiting_confirmation | awaiting_delivery | paid | failed | cancelled
//	awaiting_* -> paid | failed | cancelled
//	paid, failed, cancelled -> terminal
var paymentTransitions = map[string][]string{
	PaymentStatusPending: {
		PaymentStatusSent, PaymentStatusAwaitingConfirmation, PaymentStatusAwaitingDelivery,
		PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled,
	},
	PaymentStatusSent: {
		PaymentStatusAwaitingConfirmation, PaymentStatusAwaitingDelivery,
		PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled,
	},
	PaymentStatusAwaitingConfirmation: {PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusAwaitingDelivery:     {PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled},
}

// CanTransition reports whether a payment may move from one status to another.
// Terminal statuses admit no transitions; a self transition is a no-op and
// always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsGatewayProvider reports whether the provider is driven through the
// external payment gateway rather than recorded directly.
func IsGatewayProvider(provider string) bool {
	switch provider {
	case ProviderPaynow, ProviderEcocash, ProviderOneMoney, ProviderTelecash:
		return true
	}
	return false
}

func ValidProvider(provider string) bool {
	return IsGatewayProvider(provider) || provider == ProviderBankTransfer || provider == ProviderCash
}

// ComponentSum returns the sum of the four monetary components.
func (p *Payment) ComponentSum() decimal.Decimal {
	return p.PrincipalComponent.Add(p.InterestComponent).Add(p.StorageComponent).Add(p.PenaltyComponent)
}

// ImplicitPrincipal is the part of amount not covered by explicit components.
// It is treated as principal when posting.
func (p *Payment) ImplicitPrincipal() decimal.Decimal {
	excess := p.Amount.Sub(p.ComponentSum())
	if excess.IsNegative() {
		return decimal.Zero
	}
	return excess
}

// RefundedTotal sums the appended refunds.
func (p *Payment) RefundedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		total = total.Add(r.Amount)
	}
	return total
}

// DTOs for requests and responses

type CreatePaymentRequest struct {
	LoanNo             string          `json:"loan_no" validate:"required"`
	Amount             decimal.Decimal `json:"amount" validate:"required"`
	Currency           string          `json:"currency"`
	PrincipalComponent decimal.Decimal `json:"principal_component"`
	InterestComponent  decimal.Decimal `json:"interest_component"`
	StorageComponent   decimal.Decimal `json:"storage_component"`
	PenaltyComponent   decimal.Decimal `json:"penalty_component"`
	Provider           string          `json:"provider" validate:"required"`
	PaymentStatus      string          `json:"payment_status"`
	ReceiptNo          string          `json:"receipt_no"`
	PayerEmail         string          `json:"payer_email"`
	PayerPhone         string          `json:"payer_phone"`
	Description        string          `json:"description"`
}

type CreatePaymentResponse struct {
	Payment      *Payment `json:"payment"`
	RedirectURL  string   `json:"redirect_url,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

type RefundRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	ProviderRef string          `json:"provider_ref"`
}
