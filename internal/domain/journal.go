package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Inventory transaction types. The journal is single-sided: each row carries
// a signed amount, inflows positive and outflows negative.
const (
	TxnTypeLoanDisbursement = "loan_disbursement"
	TxnTypeRepayment        = "repayment"
	TxnTypeInterestIncome   = "interest_income"
	TxnTypeStorageIncome    = "storage_income"
	TxnTypePenaltyIncome    = "penalty_income"
	TxnTypeAssetSale        = "asset_sale"
	TxnTypeAssetPurchase    = "asset_purchase"
	TxnTypeExpense          = "expense"
	TxnTypeAdjustment       = "adjustment"
)

// Ledger entry categories.
const (
	LedgerInterestIncome       = "interest_income"
	LedgerStorageIncome        = "storage_income"
	LedgerPenaltyIncome        = "penalty_income"
	LedgerLoanDisbursement     = "loan_disbursement"
	LedgerLoanPrincipalRepaid  = "loan_principal_repayment"
	LedgerAssetSaleRevenue     = "asset_sale_revenue"
	LedgerAssetSaleCOGS        = "asset_sale_cogs"
	LedgerWriteOff             = "write_off"
	LedgerAdjustment           = "adjustment"
	LedgerOther                = "other"
)

// Account codes per inventory transaction type / payment component.
const (
	AccountLoanBook         = "1100"
	AccountRepayments       = "1200"
	AccountInterestIncome   = "2100"
	AccountStorageIncome    = "2200"
	AccountPenaltyIncome    = "2300"
	AccountAssetSales       = "3100"
	AccountExpenseRent      = "4100"
	AccountExpenseUtilities = "4200"
	AccountExpenseSalaries  = "4300"
	AccountExpenseMaint     = "4400"
	AccountExpenseMarketing = "4500"
	AccountExpenseInsurance = "4600"
	AccountExpenseOther     = "4700"
)

// InventoryTransaction is one row of the per-event cash-flow journal.
// Rows derived from a paid payment or a sold asset must never be deleted.
type InventoryTransaction struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	TxNo        string          `json:"tx_no" db:"tx_no"`
	Type        string          `json:"type" db:"type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	AssetID     *uuid.UUID      `json:"asset_id,omitempty" db:"asset_id"`
	LoanID      *uuid.UUID      `json:"loan_id,omitempty" db:"loan_id"`
	PaymentID   *uuid.UUID      `json:"payment_id,omitempty" db:"payment_id"`
	AccountCode string          `json:"account_code" db:"account_code"`
	Description string          `json:"description,omitempty" db:"description"`
	OccurredAt  time.Time       `json:"occurred_at" db:"occurred_at"`
	CreatedBy   string          `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// LedgerEntry is an accounting classification derived from (or independent
// of) an inventory transaction. Income categories carry positive amounts,
// expense categories negative.
type LedgerEntry struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	EntryDate      time.Time       `json:"entry_date" db:"entry_date"`
	Category       string          `json:"category" db:"category"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Currency       string          `json:"currency" db:"currency"`
	LoanID         *uuid.UUID      `json:"loan_id,omitempty" db:"loan_id"`
	PaymentID      *uuid.UUID      `json:"payment_id,omitempty" db:"payment_id"`
	AssetID        *uuid.UUID      `json:"asset_id,omitempty" db:"asset_id"`
	InventoryTxnID *uuid.UUID      `json:"inventory_txn_id,omitempty" db:"inventory_txn_id"`
	Memo           string          `json:"memo,omitempty" db:"memo"`
	BranchCode     string          `json:"branch_code,omitempty" db:"branch_code"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// TxnSign returns the required sign for an inventory transaction type:
// +1 inflow, -1 outflow, 0 when the sign is carried by the value itself
// (adjustments only).
func TxnSign(txnType string) int {
	switch txnType {
	case TxnTypeRepayment, TxnTypeInterestIncome, TxnTypeStorageIncome,
		TxnTypePenaltyIncome, TxnTypeAssetSale:
		return 1
	case TxnTypeLoanDisbursement, TxnTypeAssetPurchase, TxnTypeExpense:
		return -1
	}
	return 0
}

// LedgerSign returns the required sign for a ledger category, 0 when
// unconstrained (adjustment, other).
func LedgerSign(category string) int {
	switch category {
	case LedgerInterestIncome, LedgerStorageIncome, LedgerPenaltyIncome,
		LedgerLoanPrincipalRepaid, LedgerAssetSaleRevenue:
		return 1
	case LedgerLoanDisbursement, LedgerAssetSaleCOGS, LedgerWriteOff:
		return -1
	}
	return 0
}

// NormalizeAmount re-signs a value to the sign its transaction type
// requires. Values for unconstrained types pass through untouched.
func NormalizeAmount(txnType string, amount decimal.Decimal) decimal.Decimal {
	switch TxnSign(txnType) {
	case 1:
		return amount.Abs()
	case -1:
		return amount.Abs().Neg()
	}
	return amount
}

// Expense categories and their account codes.
var expenseAccounts = map[string]string{
	"rent":        AccountExpenseRent,
	"utilities":   AccountExpenseUtilities,
	"salaries":    AccountExpenseSalaries,
	"maintenance": AccountExpenseMaint,
	"marketing":   AccountExpenseMarketing,
	"insurance":   AccountExpenseInsurance,
	"other":       AccountExpenseOther,
}

// ExpenseAccountCode resolves an expense category to its account code.
func ExpenseAccountCode(category string) (string, bool) {
	code, ok := expenseAccounts[category]
	return code, ok
}

// JournalFilter narrows journal list queries. Zero values are ignored.
type JournalFilter struct {
	Type      string
	Category  string
	Currency  string
	LoanID    *uuid.UUID
	AssetID   *uuid.UUID
	PaymentID *uuid.UUID
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
