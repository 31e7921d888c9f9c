package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tawandab/pawnshop-engine/internal/config"
	"github.com/tawandab/pawnshop-engine/internal/domain"
	"github.com/tawandab/pawnshop-engine/internal/repository"
	apperrors "github.com/tawandab/pawnshop-engine/pkg/errors"
	"github.com/tawandab/pawnshop-engine/pkg/idgen"
)

// PostingService turns business events into inventory-transaction rows and
// derived ledger entries. Each event posts at most once; the partial unique
// indexes are the authority, the read-side checks are a fast path.
type PostingService struct {
	journalRepo repository.JournalRepository
	loanRepo    repository.LoanRepository
	assetRepo   repository.AssetRepository
	cfg         *config.Config
	logger      *zap.Logger
	now         func() time.Time
}

func NewPostingService(
	journalRepo repository.JournalRepository,
	loanRepo repository.LoanRepository,
	assetRepo repository.AssetRepository,
	cfg *config.Config,
	logger *zap.Logger,
) *PostingService {
	return &PostingService{
		journalRepo: journalRepo,
		loanRepo:    loanRepo,
		assetRepo:   assetRepo,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// PostDisbursement records the cash outflow of a disbursed loan.
func (s *PostingService) PostDisbursement(ctx context.Context, loanID uuid.UUID, actor string) (*domain.InventoryTransaction, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	posted, err := s.journalRepo.HasDisbursement(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	if posted {
		return nil, s.stampDisbursed(ctx, loan)
	}

	now := s.now()
	txn := &domain.InventoryTransaction{
		ID:          uuid.New(),
		Type:        domain.TxnTypeLoanDisbursement,
		Amount:      domain.NormalizeAmount(domain.TxnTypeLoanDisbursement, loan.PrincipalAmount),
		Currency:    loan.Currency,
		LoanID:      &loan.ID,
		AssetID:     loan.AssetID,
		AccountCode: domain.AccountLoanBook,
		Description: "loan disbursement " + loan.LoanNo,
		OccurredAt:  now,
		CreatedBy:   actor,
	}

	entry := s.deriveEntry(txn, domain.LedgerLoanDisbursement, txn.Amount)

	if err := s.postEvent(ctx, []*domain.InventoryTransaction{txn}, []*domain.LedgerEntry{entry}, "loan disbursement", loan.LoanNo); err != nil {
		if apperrors.KindOf(err) == apperrors.KindAlreadyPosted {
			return nil, s.stampDisbursed(ctx, loan)
		}
		return nil, err
	}

	if err := s.loanRepo.SetDisbursed(ctx, loan.ID, now); err != nil {
		s.logger.Error("disbursement posted but loan not stamped", zap.String("loan_no", loan.LoanNo), zap.Error(err))
		return nil, err
	}

	return txn, nil
}

// stampDisbursed backfills disbursed_at on a loan whose disbursement row is
// already in the journal, then reports the duplicate. Covers retries after a
// crash between posting and stamping.
func (s *PostingService) stampDisbursed(ctx context.Context, loan *domain.Loan) error {
	if loan.DisbursedAt == nil {
		if err := s.loanRepo.SetDisbursed(ctx, loan.ID, s.now()); err != nil {
			s.logger.Error("failed to backfill disbursement stamp", zap.String("loan_no", loan.LoanNo), zap.Error(err))
			return err
		}
	}
	return apperrors.AlreadyPosted("loan disbursement", loan.LoanNo)
}

// PostCapture records a captured payment: one inflow row per positive
// component, each with its own account code, plus the matching ledger rows.
// Any excess of amount over the explicit components is posted as principal.
func (s *PostingService) PostCapture(ctx context.Context, payment *domain.Payment, actor string) ([]*domain.InventoryTransaction, error) {
	if payment.PaymentStatus != domain.PaymentStatusPaid {
		return nil, apperrors.Validation("payment is not captured")
	}

	posted, err := s.journalRepo.HasPaymentPosting(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if posted {
		return nil, apperrors.AlreadyPosted("repayment", payment.ReceiptNo)
	}

	now := s.now()
	components := []struct {
		amount      decimal.Decimal
		txnType     string
		accountCode string
		category    string
	}{
		{payment.PrincipalComponent.Add(payment.ImplicitPrincipal()), domain.TxnTypeRepayment, domain.AccountRepayments, domain.LedgerLoanPrincipalRepaid},
		{payment.InterestComponent, domain.TxnTypeInterestIncome, domain.AccountInterestIncome, domain.LedgerInterestIncome},
		{payment.StorageComponent, domain.TxnTypeStorageIncome, domain.AccountStorageIncome, domain.LedgerStorageIncome},
		{payment.PenaltyComponent, domain.TxnTypePenaltyIncome, domain.AccountPenaltyIncome, domain.LedgerPenaltyIncome},
	}

	var txns []*domain.InventoryTransaction
	var entries []*domain.LedgerEntry
	for _, c := range components {
		if !c.amount.IsPositive() {
			continue
		}

		txn := &domain.InventoryTransaction{
			ID:          uuid.New(),
			Type:        c.txnType,
			Amount:      domain.NormalizeAmount(c.txnType, c.amount),
			Currency:    payment.Currency,
			LoanID:      &payment.LoanID,
			PaymentID:   &payment.ID,
			AccountCode: c.accountCode,
			Description: "repayment " + payment.ReceiptNo,
			OccurredAt:  now,
			CreatedBy:   actor,
		}
		txns = append(txns, txn)
		entries = append(entries, s.deriveEntry(txn, c.category, txn.Amount))
	}

	if len(txns) == 0 {
		return nil, apperrors.Validation("payment has no positive components")
	}

	if err := s.postEvent(ctx, txns, entries, "repayment", payment.ReceiptNo); err != nil {
		return nil, err
	}

	return txns, nil
}

// PostAssetSale records the sale of an asset: one inflow row at the sale
// price plus a revenue/COGS ledger pair. Cost of goods falls back to a
// configured fraction of the sale price when the asset was never evaluated.
func (s *PostingService) PostAssetSale(ctx context.Context, assetID uuid.UUID, salePrice decimal.Decimal, currency, actor string) (*domain.InventoryTransaction, error) {
	if !salePrice.IsPositive() {
		return nil, apperrors.Validation("sale price must be positive")
	}

	asset, err := s.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}

	sold, err := s.journalRepo.HasAssetSale(ctx, asset.ID)
	if err != nil {
		return nil, err
	}
	if sold {
		return nil, apperrors.AlreadyPosted("asset sale", asset.AssetNo)
	}

	costBasis := salePrice.Mul(s.cfg.GetCogsFallbackRatio())
	if asset.EvaluatedValue.Valid {
		costBasis = asset.EvaluatedValue.Decimal
	}

	now := s.now()
	txn := &domain.InventoryTransaction{
		ID:          uuid.New(),
		Type:        domain.TxnTypeAssetSale,
		Amount:      domain.NormalizeAmount(domain.TxnTypeAssetSale, salePrice),
		Currency:    currency,
		AssetID:     &asset.ID,
		AccountCode: domain.AccountAssetSales,
		Description: "sale of asset " + asset.AssetNo,
		OccurredAt:  now,
		CreatedBy:   actor,
	}

	entries := []*domain.LedgerEntry{
		s.deriveEntry(txn, domain.LedgerAssetSaleRevenue, salePrice),
		s.deriveEntry(txn, domain.LedgerAssetSaleCOGS, costBasis.Abs().Neg()),
	}

	if err := s.postEvent(ctx, []*domain.InventoryTransaction{txn}, entries, "asset sale", asset.AssetNo); err != nil {
		return nil, err
	}

	if err := s.assetRepo.UpdateStatus(ctx, asset.ID, domain.AssetStatusSold); err != nil {
		s.logger.Error("sale posted but asset not marked sold", zap.String("asset_no", asset.AssetNo), zap.Error(err))
		return nil, err
	}

	return txn, nil
}

// PostExpense records an operating expense under its category account.
func (s *PostingService) PostExpense(ctx context.Context, category string, amount decimal.Decimal, currency, description, actor string) (*domain.InventoryTransaction, error) {
	accountCode, ok := domain.ExpenseAccountCode(category)
	if !ok {
		return nil, apperrors.Validation("unknown expense category " + category)
	}
	if amount.IsZero() {
		return nil, apperrors.Validation("expense amount must be non-zero")
	}

	now := s.now()
	txn := &domain.InventoryTransaction{
		ID:          uuid.New(),
		Type:        domain.TxnTypeExpense,
		Amount:      domain.NormalizeAmount(domain.TxnTypeExpense, amount),
		Currency:    currency,
		AccountCode: accountCode,
		Description: description,
		OccurredAt:  now,
		CreatedBy:   actor,
	}

	entry := s.deriveEntry(txn, domain.LedgerOther, txn.Amount)

	if err := s.postEvent(ctx, []*domain.InventoryTransaction{txn}, []*domain.LedgerEntry{entry}, "expense", category); err != nil {
		return nil, err
	}

	return txn, nil
}

// PostAdjustment records a signed correction. The caller's sign is kept.
func (s *PostingService) PostAdjustment(ctx context.Context, amount decimal.Decimal, currency, memo, actor string, loanID, assetID, paymentID *uuid.UUID) (*domain.InventoryTransaction, error) {
	if amount.IsZero() {
		return nil, apperrors.Validation("adjustment amount must be non-zero")
	}

	now := s.now()
	txn := &domain.InventoryTransaction{
		ID:          uuid.New(),
		Type:        domain.TxnTypeAdjustment,
		Amount:      amount,
		Currency:    currency,
		LoanID:      loanID,
		AssetID:     assetID,
		PaymentID:   paymentID,
		AccountCode: domain.AccountExpenseOther,
		Description: memo,
		OccurredAt:  now,
		CreatedBy:   actor,
	}

	entry := s.deriveEntry(txn, domain.LedgerAdjustment, amount)
	entry.Memo = memo

	if err := s.postEvent(ctx, []*domain.InventoryTransaction{txn}, []*domain.LedgerEntry{entry}, "adjustment", txn.ID.String()); err != nil {
		return nil, err
	}

	return txn, nil
}

// deriveEntry builds the ledger row derived from an inventory transaction.
func (s *PostingService) deriveEntry(txn *domain.InventoryTransaction, category string, amount decimal.Decimal) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:             uuid.New(),
		EntryDate:      txn.OccurredAt,
		Category:       category,
		Amount:         amount,
		Currency:       txn.Currency,
		LoanID:         txn.LoanID,
		PaymentID:      txn.PaymentID,
		AssetID:        txn.AssetID,
		InventoryTxnID: &txn.ID,
		Memo:           txn.Description,
	}
}

// postEvent assigns transaction numbers, validates ledger signs and persists
// the whole event atomically, retrying only tx_no collisions.
func (s *PostingService) postEvent(ctx context.Context, txns []*domain.InventoryTransaction, entries []*domain.LedgerEntry, event, ref string) error {
	for _, e := range entries {
		if required := domain.LedgerSign(e.Category); required != 0 && e.Amount.Sign() != required {
			return apperrors.SignMismatch(e.Category)
		}
	}

	attempts := s.cfg.Business.IDRetryAttempts
	for attempt := 0; attempt < attempts; attempt++ {
		seq, err := s.journalRepo.CountTransactionsOn(ctx, s.now())
		if err != nil {
			return err
		}

		for i, txn := range txns {
			txn.TxNo = idgen.NewTxNo(s.now(), seq+i+attempt)
		}

		err = s.journalRepo.PostEvent(ctx, txns, entries)
		if err == nil {
			return nil
		}

		switch repository.ViolatedConstraint(err) {
		case repository.ConstraintTxNo:
			s.logger.Warn("tx_no collision, retrying", zap.String("event", event), zap.String("ref", ref))
			continue
		case repository.ConstraintDisbursementLoan, repository.ConstraintAssetSale, repository.ConstraintPaymentPosting:
			return apperrors.AlreadyPosted(event, ref)
		}

		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Kind == apperrors.KindDuplicateKey {
			return appErr
		}
		return err
	}

	return apperrors.IDCollision("TXN", attempts)
}
