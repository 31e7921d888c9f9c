package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tawandab/pawnshop-engine/internal/config"
	"github.com/tawandab/pawnshop-engine/internal/domain"
	"github.com/tawandab/pawnshop-engine/internal/repository"
	apperrors "github.com/tawandab/pawnshop-engine/pkg/errors"
	"github.com/tawandab/pawnshop-engine/tests/mocks"
)

var testTime = time.Date(2024, 3, 7, 10, 30, 0, 0, time.UTC)

func newTestConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			DefaultCurrency:   domain.CurrencyUSD,
			CogsFallbackRatio: "0.6",
			IDRetryAttempts:   3,
		},
	}
}

func newPostingFixture() (*PostingService, *mocks.MockJournalRepository, *mocks.MockLoanRepository, *mocks.MockAssetRepository) {
	journalRepo := new(mocks.MockJournalRepository)
	loanRepo := new(mocks.MockLoanRepository)
	assetRepo := new(mocks.MockAssetRepository)

	svc := NewPostingService(journalRepo, loanRepo, assetRepo, newTestConfig(), zap.NewNop())
	svc.now = func() time.Time { return testTime }
	return svc, journalRepo, loanRepo, assetRepo
}

func duplicateOn(constraint string) error {
	return apperrors.DuplicateKey(constraint, &pq.Error{Code: "23505", Constraint: constraint})
}

func TestPostDisbursement(t *testing.T) {
	svc, journalRepo, loanRepo, _ := newPostingFixture()

	loanID := uuid.New()
	assetID := uuid.New()
	loan := &domain.Loan{
		ID:              loanID,
		LoanNo:          "LN-001",
		AssetID:         &assetID,
		PrincipalAmount: decimal.NewFromInt(100),
		CurrentBalance:  decimal.NewFromInt(100),
		Currency:        domain.CurrencyUSD,
		Status:          domain.LoanStatusActive,
	}

	loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	journalRepo.On("HasDisbursement", mock.Anything, loanID).Return(false, nil)
	journalRepo.On("CountTransactionsOn", mock.Anything, testTime).Return(0, nil)
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	loanRepo.On("SetDisbursed", mock.Anything, loanID, testTime).Return(nil)

	txn, err := svc.PostDisbursement(context.Background(), loanID, "clerk-1")
	require.NoError(t, err)

	assert.Equal(t, domain.TxnTypeLoanDisbursement, txn.Type)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(-100)), "disbursement must post negative, got %s", txn.Amount)
	assert.Equal(t, domain.AccountLoanBook, txn.AccountCode)
	assert.Equal(t, "TXN2403070001", txn.TxNo)
	assert.Equal(t, "clerk-1", txn.CreatedBy)

	posted := journalRepo.Calls[2].Arguments
	entries := posted.Get(2).([]*domain.LedgerEntry)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.LedgerLoanDisbursement, entries[0].Category)
	assert.True(t, entries[0].Amount.IsNegative())

	loanRepo.AssertExpectations(t)
	journalRepo.AssertExpectations(t)
}

func TestPostDisbursement_AlreadyPosted(t *testing.T) {
	svc, journalRepo, loanRepo, _ := newPostingFixture()

	loanID := uuid.New()
	loan := &domain.Loan{ID: loanID, LoanNo: "LN-002", PrincipalAmount: decimal.NewFromInt(50), Currency: domain.CurrencyUSD}

	loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	journalRepo.On("HasDisbursement", mock.Anything, loanID).Return(true, nil)
	loanRepo.On("SetDisbursed", mock.Anything, loanID, testTime).Return(nil)

	_, err := svc.PostDisbursement(context.Background(), loanID, "clerk-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAlreadyPosted, apperrors.KindOf(err))
	journalRepo.AssertNotCalled(t, "PostEvent", mock.Anything, mock.Anything, mock.Anything)
}

// A crash between posting the journal row and stamping the loan leaves
// disbursed_at empty; the retry must backfill the stamp while still reporting
// the duplicate.
func TestPostDisbursement_RetryBackfillsStamp(t *testing.T) {
	svc, journalRepo, loanRepo, _ := newPostingFixture()

	loanID := uuid.New()
	loan := &domain.Loan{ID: loanID, LoanNo: "LN-004", PrincipalAmount: decimal.NewFromInt(50), Currency: domain.CurrencyUSD}

	loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	journalRepo.On("HasDisbursement", mock.Anything, loanID).Return(true, nil)
	loanRepo.On("SetDisbursed", mock.Anything, loanID, testTime).Return(nil)

	_, err := svc.PostDisbursement(context.Background(), loanID, "clerk-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAlreadyPosted, apperrors.KindOf(err))
	loanRepo.AssertCalled(t, "SetDisbursed", mock.Anything, loanID, testTime)

	// An already stamped loan is left alone.
	svc2, journalRepo2, loanRepo2, _ := newPostingFixture()
	stamped := &domain.Loan{ID: loanID, LoanNo: "LN-004", PrincipalAmount: decimal.NewFromInt(50), Currency: domain.CurrencyUSD, DisbursedAt: &testTime}
	loanRepo2.On("GetByID", mock.Anything, loanID).Return(stamped, nil)
	journalRepo2.On("HasDisbursement", mock.Anything, loanID).Return(true, nil)

	_, err = svc2.PostDisbursement(context.Background(), loanID, "clerk-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAlreadyPosted, apperrors.KindOf(err))
	loanRepo2.AssertNotCalled(t, "SetDisbursed", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostDisbursement_ConcurrentLoser(t *testing.T) {
	svc, journalRepo, loanRepo, _ := newPostingFixture()

	loanID := uuid.New()
	loan := &domain.Loan{ID: loanID, LoanNo: "LN-003", PrincipalAmount: decimal.NewFromInt(50), Currency: domain.CurrencyUSD}

	loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	journalRepo.On("HasDisbursement", mock.Anything, loanID).Return(false, nil)
	journalRepo.On("CountTransactionsOn", mock.Anything, testTime).Return(0, nil)
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).
		Return(duplicateOn(repository.ConstraintDisbursementLoan))
	loanRepo.On("SetDisbursed", mock.Anything, loanID, testTime).Return(nil)

	_, err := svc.PostDisbursement(context.Background(), loanID, "clerk-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAlreadyPosted, apperrors.KindOf(err))
	loanRepo.AssertCalled(t, "SetDisbursed", mock.Anything, loanID, testTime)
}

func TestPostCapture_ComponentRows(t *testing.T) {
	svc, journalRepo, _, _ := newPostingFixture()

	payment := &domain.Payment{
		ID:                 uuid.New(),
		LoanID:             uuid.New(),
		Amount:             decimal.NewFromInt(40),
		Currency:           domain.CurrencyUSD,
		PrincipalComponent: decimal.NewFromInt(25),
		InterestComponent:  decimal.NewFromInt(10),
		StorageComponent:   decimal.NewFromInt(5),
		Provider:           domain.ProviderCash,
		PaymentStatus:      domain.PaymentStatusPaid,
		ReceiptNo:          "RCPT24030001",
	}

	journalRepo.On("HasPaymentPosting", mock.Anything, payment.ID).Return(false, nil)
	journalRepo.On("CountTransactionsOn", mock.Anything, testTime).Return(4, nil)
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	txns, err := svc.PostCapture(context.Background(), payment, "clerk-1")
	require.NoError(t, err)
	require.Len(t, txns, 3, "zero penalty component must not produce a row")

	byType := map[string]*domain.InventoryTransaction{}
	for _, txn := range txns {
		byType[txn.Type] = txn
		assert.True(t, txn.Amount.IsPositive(), "capture rows are inflows")
		assert.Equal(t, payment.ID, *txn.PaymentID)
		assert.Equal(t, payment.LoanID, *txn.LoanID)
	}

	assert.True(t, byType[domain.TxnTypeRepayment].Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, domain.AccountRepayments, byType[domain.TxnTypeRepayment].AccountCode)
	assert.True(t, byType[domain.TxnTypeInterestIncome].Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, domain.AccountInterestIncome, byType[domain.TxnTypeInterestIncome].AccountCode)
	assert.True(t, byType[domain.TxnTypeStorageIncome].Amount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, domain.AccountStorageIncome, byType[domain.TxnTypeStorageIncome].AccountCode)

	assert.Equal(t, "TXN2403070005", txns[0].TxNo)
	assert.Equal(t, "TXN2403070006", txns[1].TxNo)
	assert.Equal(t, "TXN2403070007", txns[2].TxNo)
}

func TestPostCapture_ExcessBecomesPrincipal(t *testing.T) {
	svc, journalRepo, _, _ := newPostingFixture()

	payment := &domain.Payment{
		ID:                 uuid.New(),
		LoanID:             uuid.New(),
		Amount:             decimal.NewFromInt(50),
		Currency:           domain.CurrencyUSD,
		PrincipalComponent: decimal.NewFromInt(20),
		InterestComponent:  decimal.NewFromInt(10),
		Provider:           domain.ProviderCash,
		PaymentStatus:      domain.PaymentStatusPaid,
		ReceiptNo:          "RCPT24030002",
	}

	journalRepo.On("HasPaymentPosting", mock.Anything, payment.ID).Return(false, nil)
	journalRepo.On("CountTransactionsOn", mock.Anything, testTime).Return(0, nil)
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	txns, err := svc.PostCapture(context.Background(), payment, "clerk-1")
	require.NoError(t, err)
	require.Len(t, txns, 2)

	// 20 explicit principal + 20 unallocated excess.
	assert.Equal(t, domain.TxnTypeRepayment, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(decimal.NewFromInt(40)))
}

func TestPostCapture_NotPaid(t *testing.T) {
	svc, _, _, _ := newPostingFixture()

	payment := &domain.Payment{
		ID:            uuid.New(),
		PaymentStatus: domain.PaymentStatusPending,
		Amount:        decimal.NewFromInt(10),
	}

	_, err := svc.PostCapture(context.Background(), payment, "clerk-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestPostCapture_AlreadyPosted(t *testing.T) {
	svc, journalRepo, _, _ := newPostingFixture()

	payment := &domain.Payment{
		ID:            uuid.New(),
		LoanID:        uuid.New(),
		Amount:        decimal.NewFromInt(10),
		PaymentStatus: domain.PaymentStatusPaid,
		ReceiptNo:     "RCPT24030003",
	}

	journalRepo.On("HasPaymentPosting", mock.Anything, payment.ID).Return(true, nil)

	_, err := svc.PostCapture(context.Background(), payment, "clerk-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAlreadyPosted, apperrors.KindOf(err))
}

func TestPostAssetSale(t *testing.T) {
	svc, journalRepo, _, assetRepo := newPostingFixture()

	assetID := uuid.New()
	asset := &domain.Asset{
		ID:             assetID,
		AssetNo:        "AST-001",
		Status:         domain.AssetStatusAuction,
		EvaluatedValue: decimal.NewNullDecimal(decimal.NewFromInt(80)),
	}

	assetRepo.On("GetByID", mock.Anything, assetID).Return(asset, nil)
	journalRepo.On("HasAssetSale", mock.Anything, assetID).Return(false, nil)
	journalRepo.On("CountTransactionsOn", mock.Anything, testTime).Return(0, nil)
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	assetRepo.On("UpdateStatus", mock.Anything, assetID, domain.AssetStatusSold).Return(nil)

	txn, err := svc.PostAssetSale(context.Background(), assetID, decimal.NewFromInt(120), domain.CurrencyUSD, "clerk-1")
	require.NoError(t, err)

	assert.Equal(t, domain.TxnTypeAssetSale, txn.Type)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, domain.AccountAssetSales, txn.AccountCode)

	posted := journalRepo.Calls[2].Arguments
	entries := posted.Get(2).([]*domain.LedgerEntry)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.LedgerAssetSaleRevenue, entries[0].Category)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, domain.LedgerAssetSaleCOGS, entries[1].Category)
	assert.True(t, entries[1].Amount.Equal(decimal.NewFromInt(-80)))

	assetRepo.AssertExpectations(t)
}

func TestPostAssetSale_CostBasisFallback(t *testing.T) {
	svc, journalRepo, _, assetRepo := newPostingFixture()

	assetID := uuid.New()
	asset := &domain.Asset{ID: assetID, AssetNo: "AST-002", Status: domain.AssetStatusAuction}

	assetRepo.On("GetByID", mock.Anything, assetID).Return(asset, nil)
	journalRepo.On("HasAssetSale", mock.Anything, assetID).Return(false, nil)
	journalRepo.On("CountTransactionsOn", mock.Anything, testTime).Return(0, nil)
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	assetRepo.On("UpdateStatus", mock.Anything, assetID, domain.AssetStatusSold).Return(nil)

	_, err := svc.PostAssetSale(context.Background(), assetID, decimal.NewFromInt(100), domain.CurrencyUSD, "clerk-1")
	require.NoError(t, err)

	posted := journalRepo.Calls[2].Arguments
	entries := posted.Get(2).([]*domain.LedgerEntry)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].Amount.Equal(decimal.NewFromInt(-60)), "unevaluated asset costs 0.6 of sale price, got %s", entries[1].Amount)
}

func TestPostAssetSale_Duplicate(t *testing.T) {
	svc, journalRepo, _, assetRepo := newPostingFixture()

	assetID := uuid.New()
	asset := &domain.Asset{ID: assetID, AssetNo: "AST-003"}

	assetRepo.On("GetByID", mock.Anything, assetID).Return(asset, nil)
	journalRepo.On("HasAssetSale", mock.Anything, assetID).Return(true, nil)

	_, err := svc.PostAssetSale(context.Background(), assetID, decimal.NewFromInt(10), domain.CurrencyUSD, "clerk-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAlreadyPosted, apperrors.KindOf(err))
}

func TestPostExpense(t *testing.T) {
	svc, journalRepo, _, _ := newPostingFixture()

	journalRepo.On("CountTransactionsOn", mock.Anything, testTime).Return(0, nil)
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	txn, err := svc.PostExpense(context.Background(), "rent", decimal.NewFromInt(300), domain.CurrencyUSD, "march rent", "clerk-1")
	require.NoError(t, err)

	assert.Equal(t, domain.TxnTypeExpense, txn.Type)
	assert.Equal(t, domain.AccountExpenseRent, txn.AccountCode)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(-300)), "expenses are outflows even when submitted positive")
}

func TestPostExpense_UnknownCategory(t *testing.T) {
	svc, _, _, _ := newPostingFixture()

	_, err := svc.PostExpense(context.Background(), "entertainment", decimal.NewFromInt(10), domain.CurrencyUSD, "", "clerk-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestPostAdjustment_KeepsSign(t *testing.T) {
	svc, journalRepo, _, _ := newPostingFixture()

	journalRepo.On("CountTransactionsOn", mock.Anything, testTime).Return(0, nil)
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	txn, err := svc.PostAdjustment(context.Background(), decimal.NewFromInt(-15), domain.CurrencyUSD, "till shortfall", "manager-1", nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(-15)))

	txn, err = svc.PostAdjustment(context.Background(), decimal.NewFromInt(15), domain.CurrencyUSD, "till surplus", "manager-1", nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(15)))
}

func TestPostEvent_TxNoRetry(t *testing.T) {
	svc, journalRepo, _, _ := newPostingFixture()

	journalRepo.On("CountTransactionsOn", mock.Anything, testTime).Return(0, nil)
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).
		Return(duplicateOn(repository.ConstraintTxNo)).Twice()
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.PostExpense(context.Background(), "other", decimal.NewFromInt(5), domain.CurrencyUSD, "misc", "clerk-1")
	require.NoError(t, err)
	journalRepo.AssertNumberOfCalls(t, "PostEvent", 3)
}

func TestPostEvent_TxNoExhausted(t *testing.T) {
	svc, journalRepo, _, _ := newPostingFixture()

	journalRepo.On("CountTransactionsOn", mock.Anything, testTime).Return(0, nil)
	journalRepo.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).
		Return(duplicateOn(repository.ConstraintTxNo))

	_, err := svc.PostExpense(context.Background(), "other", decimal.NewFromInt(5), domain.CurrencyUSD, "misc", "clerk-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindIDCollision, apperrors.KindOf(err))
	journalRepo.AssertNumberOfCalls(t, "PostEvent", 3)
}

func TestPostEvent_SignMismatchRejectedBeforePersist(t *testing.T) {
	svc, journalRepo, _, _ := newPostingFixture()

	txn := &domain.InventoryTransaction{
		ID:          uuid.New(),
		Type:        domain.TxnTypeInterestIncome,
		Amount:      decimal.NewFromInt(-5),
		Currency:    domain.CurrencyUSD,
		AccountCode: domain.AccountInterestIncome,
		OccurredAt:  testTime,
	}
	entry := &domain.LedgerEntry{
		ID:       uuid.New(),
		Category: domain.LedgerInterestIncome,
		Amount:   decimal.NewFromInt(-5),
		Currency: domain.CurrencyUSD,
	}

	err := svc.postEvent(context.Background(), []*domain.InventoryTransaction{txn}, []*domain.LedgerEntry{entry}, "repayment", "RCPT-X")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindSignMismatch, apperrors.KindOf(err))
	journalRepo.AssertNotCalled(t, "CountTransactionsOn", mock.Anything, mock.Anything)
	journalRepo.AssertNotCalled(t, "PostEvent", mock.Anything, mock.Anything, mock.Anything)
}
