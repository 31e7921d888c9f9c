package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTxnSign(t *testing.T) {
	assert.Equal(t, 1, TxnSign(TxnTypeRepayment))
	assert.Equal(t, 1, TxnSign(TxnTypeInterestIncome))
	assert.Equal(t, 1, TxnSign(TxnTypeStorageIncome))
	assert.Equal(t, 1, TxnSign(TxnTypePenaltyIncome))
	assert.Equal(t, 1, TxnSign(TxnTypeAssetSale))

	assert.Equal(t, -1, TxnSign(TxnTypeLoanDisbursement))
	assert.Equal(t, -1, TxnSign(TxnTypeAssetPurchase))
	assert.Equal(t, -1, TxnSign(TxnTypeExpense))

	assert.Equal(t, 0, TxnSign(TxnTypeAdjustment))
}

func TestLedgerSign(t *testing.T) {
	assert.Equal(t, 1, LedgerSign(LedgerInterestIncome))
	assert.Equal(t, 1, LedgerSign(LedgerLoanPrincipalRepaid))
	assert.Equal(t, 1, LedgerSign(LedgerAssetSaleRevenue))

	assert.Equal(t, -1, LedgerSign(LedgerLoanDisbursement))
	assert.Equal(t, -1, LedgerSign(LedgerAssetSaleCOGS))
	assert.Equal(t, -1, LedgerSign(LedgerWriteOff))

	assert.Equal(t, 0, LedgerSign(LedgerAdjustment))
	assert.Equal(t, 0, LedgerSign(LedgerOther))
}

func TestNormalizeAmount(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	minusHundred := decimal.NewFromInt(-100)

	// inflows come out positive whatever was submitted
	assert.True(t, NormalizeAmount(TxnTypeRepayment, minusHundred).Equal(hundred))
	assert.True(t, NormalizeAmount(TxnTypeAssetSale, hundred).Equal(hundred))

	// outflows come out negative whatever was submitted
	assert.True(t, NormalizeAmount(TxnTypeLoanDisbursement, hundred).Equal(minusHundred))
	assert.True(t, NormalizeAmount(TxnTypeExpense, minusHundred).Equal(minusHundred))

	// adjustments keep the caller's sign
	assert.True(t, NormalizeAmount(TxnTypeAdjustment, minusHundred).Equal(minusHundred))
	assert.True(t, NormalizeAmount(TxnTypeAdjustment, hundred).Equal(hundred))
}

func TestExpenseAccountCode(t *testing.T) {
	code, ok := ExpenseAccountCode("rent")
	assert.True(t, ok)
	assert.Equal(t, AccountExpenseRent, code)

	code, ok = ExpenseAccountCode("salaries")
	assert.True(t, ok)
	assert.Equal(t, AccountExpenseSalaries, code)

	_, ok = ExpenseAccountCode("entertainment")
	assert.False(t, ok)
}
