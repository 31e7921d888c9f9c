package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProfitLossReport aggregates ledger entries over a period. Income rows are
// positive, expense rows negative; Net is their sum.
type ProfitLossReport struct {
	From     time.Time                  `json:"from"`
	To       time.Time                  `json:"to"`
	Currency string                     `json:"currency"`
	Income   map[string]decimal.Decimal `json:"income"`
	Expenses map[string]decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal            `json:"net"`
}

// CashFlowReport aggregates inventory transactions over a period by type.
type CashFlowReport struct {
	From     time.Time                  `json:"from"`
	To       time.Time                  `json:"to"`
	Currency string                     `json:"currency"`
	Inflows  map[string]decimal.Decimal `json:"inflows"`
	Outflows map[string]decimal.Decimal `json:"outflows"`
	Net      decimal.Decimal            `json:"net"`
}

// TrialBalanceRow is the per-account split of journal movement: inflows as
// debit, outflows as credit (absolute values).
type TrialBalanceRow struct {
	AccountCode string          `json:"account_code" db:"account_code"`
	Debit       decimal.Decimal `json:"debit" db:"debit"`
	Credit      decimal.Decimal `json:"credit" db:"credit"`
}

// TrialBalanceReport snapshots per-account totals for a period. Balanced is
// true when total debit equals total credit plus the period net, i.e. the
// journal itself is internally consistent.
type TrialBalanceReport struct {
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	Currency    string            `json:"currency"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Net         decimal.Decimal   `json:"net"`
}
