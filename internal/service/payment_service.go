package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tawandab/pawnshop-engine/internal/config"
	"github.com/tawandab/pawnshop-engine/internal/domain"
	"github.com/tawandab/pawnshop-engine/internal/gateway"
	"github.com/tawandab/pawnshop-engine/internal/repository"
	apperrors "github.com/tawandab/pawnshop-engine/pkg/errors"
	"github.com/tawandab/pawnshop-engine/pkg/idgen"
)

// PaymentService drives payments through the state machine. The first
// transition to paid posts the repayment and updates the loan balance
// exactly once; later polls and webhooks observing paid are no-ops.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	loanRepo    repository.LoanRepository
	posting     *PostingService
	gateway     gateway.Client
	cfg         *config.Config
	logger      *zap.Logger
	now         func() time.Time
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	loanRepo repository.LoanRepository,
	posting *PostingService,
	gw gateway.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		loanRepo:    loanRepo,
		posting:     posting,
		gateway:     gw,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Create records a payment. Cash and bank transfers are inserted directly
// and, when already marked paid, captured immediately. Gateway providers are
// inserted pending and initiated at the provider.
func (s *PaymentService) Create(ctx context.Context, req *domain.CreatePaymentRequest, actor string) (*domain.CreatePaymentResponse, error) {
	if !domain.ValidProvider(req.Provider) {
		return nil, apperrors.Validation("unknown provider " + req.Provider)
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.Validation("amount must be positive")
	}

	loan, err := s.loanRepo.GetByLoanNo(ctx, req.LoanNo)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = loan.Currency
	}
	if !domain.ValidCurrency(currency) {
		return nil, apperrors.Validation("unknown currency " + currency)
	}

	receiptNo := req.ReceiptNo
	if receiptNo == "" {
		receiptNo = idgen.NewReceiptNo(s.now())
	}

	payment := &domain.Payment{
		ID:                 uuid.New(),
		LoanID:             loan.ID,
		Amount:             req.Amount,
		Currency:           currency,
		PrincipalComponent: req.PrincipalComponent,
		InterestComponent:  req.InterestComponent,
		StorageComponent:   req.StorageComponent,
		PenaltyComponent:   req.PenaltyComponent,
		Provider:           req.Provider,
		PaymentStatus:      domain.PaymentStatusPending,
		ReceiptNo:          receiptNo,
		ReceivedBy:         actor,
	}

	if payment.ComponentSum().GreaterThan(payment.Amount) {
		return nil, apperrors.Validation("component sum exceeds payment amount")
	}

	if domain.IsGatewayProvider(req.Provider) {
		return s.createGatewayPayment(ctx, payment, req)
	}

	if req.PaymentStatus == domain.PaymentStatusPaid {
		now := s.now()
		payment.PaymentStatus = domain.PaymentStatusPaid
		payment.CapturedAt = &now
		payment.PaidAt = &now
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	if payment.PaymentStatus == domain.PaymentStatusPaid {
		if _, err := s.settle(ctx, payment, actor); err != nil {
			return nil, err
		}
	}

	return &domain.CreatePaymentResponse{Payment: payment}, nil
}

func (s *PaymentService) createGatewayPayment(ctx context.Context, payment *domain.Payment, req *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	method := gateway.MethodFor(req.Provider)
	// Mobile-money numbers are checked before anything is persisted, so a
	// bad phone leaves no payment behind.
	if method != "" {
		if err := gateway.ValidateMobile(req.PayerPhone); err != nil {
			return nil, err
		}
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = "loan repayment " + payment.ReceiptNo
	}

	initiated, err := s.gateway.Initiate(ctx, &gateway.InitiateRequest{
		Reference:   payment.ReceiptNo,
		Email:       req.PayerEmail,
		Phone:       req.PayerPhone,
		Description: description,
		Amount:      payment.Amount,
		Method:      method,
	})
	if err != nil {
		if updErr := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusFailed); updErr != nil {
			s.logger.Error("failed to mark rejected payment", zap.String("receipt_no", payment.ReceiptNo), zap.Error(updErr))
		}
		return nil, err
	}

	if err := s.paymentRepo.UpdateGatewayDetails(ctx, payment.ID, initiated.PollURL, initiated.ProviderRef, initiated.Raw["invoiceid"]); err != nil {
		return nil, err
	}

	payment.PollURL = initiated.PollURL
	payment.ProviderRef = initiated.ProviderRef
	payment.PaynowInvoiceID = initiated.Raw["invoiceid"]

	return &domain.CreatePaymentResponse{
		Payment:      payment,
		RedirectURL:  initiated.RedirectURL,
		Instructions: initiated.Instructions,
	}, nil
}

// Poll refreshes a gateway payment from the provider and applies the mapped
// status. Polling an already-paid payment is a no-op.
func (s *PaymentService) Poll(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if !domain.IsGatewayProvider(payment.Provider) {
		return nil, apperrors.UnsupportedForProvider(payment.Provider)
	}
	if payment.PaymentStatus == domain.PaymentStatusPaid {
		return payment, nil
	}
	if payment.PollURL == "" {
		return nil, apperrors.PollURLMissing(payment.ID.String())
	}

	status, err := s.gateway.Poll(ctx, payment.PollURL)
	if err != nil {
		return nil, err
	}

	return s.applyStatus(ctx, payment, gateway.MapStatus(status.Status))
}

// Webhook handles a provider callback. When the located payment carries a
// poll URL the poll is authoritative; otherwise the webhook status is
// applied directly.
func (s *PaymentService) Webhook(ctx context.Context, body []byte) (*domain.Payment, error) {
	parsed, err := s.gateway.ParseWebhook(body)
	if err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.FindForWebhook(ctx, parsed.Reference, parsed.Reference, parsed.PollURL)
	if err != nil {
		return nil, err
	}

	if payment.PollURL != "" {
		return s.Poll(ctx, payment.ID)
	}

	return s.applyStatus(ctx, payment, gateway.MapStatus(parsed.Status))
}

// Refund appends a refund to a paid payment. The provider-side refund call
// is an extension point; the local record is the source of truth.
func (s *PaymentService) Refund(ctx context.Context, paymentID uuid.UUID, req *domain.RefundRequest, actor string) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.PaymentStatus != domain.PaymentStatusPaid {
		return nil, apperrors.Validation("only paid payments can be refunded")
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.Validation("refund amount must be positive")
	}

	remaining := payment.Amount.Sub(payment.RefundedTotal())
	if req.Amount.GreaterThan(remaining) {
		return nil, apperrors.Validation("refund exceeds remaining refundable amount")
	}

	refund := &domain.Refund{
		ID:          uuid.New(),
		PaymentID:   payment.ID,
		Amount:      req.Amount,
		ProviderRef: req.ProviderRef,
		RefundedBy:  actor,
	}
	if err := s.paymentRepo.AddRefund(ctx, refund); err != nil {
		return nil, err
	}

	payment.Refunds = append(payment.Refunds, refund)
	return payment, nil
}

// PostRepayment re-runs settlement for an already-paid payment whose posting
// or balance update failed or was never run. Both halves are idempotent, so
// this doubles as the repair path after a partial settle.
func (s *PaymentService) PostRepayment(ctx context.Context, paymentID uuid.UUID, actor string) ([]*domain.InventoryTransaction, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, payment, actor)
}

// SweepPending polls every in-flight gateway payment; the scheduler runs
// this so captures land even when webhooks are lost.
func (s *PaymentService) SweepPending(ctx context.Context) (int, error) {
	payments, err := s.paymentRepo.ListOpenGateway(ctx)
	if err != nil {
		return 0, err
	}

	captured := 0
	for _, p := range payments {
		updated, err := s.Poll(ctx, p.ID)
		if err != nil {
			s.logger.Warn("sweep poll failed", zap.String("receipt_no", p.ReceiptNo), zap.Error(err))
			continue
		}
		if updated.PaymentStatus == domain.PaymentStatusPaid {
			captured++
		}
	}
	return captured, nil
}

// ExpireStale cancels gateway payments still unconfirmed past the cutoff.
func (s *PaymentService) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.GetPaymentExpiry())
	payments, err := s.paymentRepo.ListStaleGateway(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range payments {
		if !domain.CanTransition(p.PaymentStatus, domain.PaymentStatusCancelled) {
			continue
		}
		if err := s.paymentRepo.UpdateStatus(ctx, p.ID, domain.PaymentStatusCancelled); err != nil {
			s.logger.Warn("failed to cancel stale payment", zap.String("receipt_no", p.ReceiptNo), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// applyStatus moves a payment to the mapped status. The paid transition is
// claimed with a guarded update so the posting set and balance decrement run
// exactly once per payment.
func (s *PaymentService) applyStatus(ctx context.Context, payment *domain.Payment, newStatus string) (*domain.Payment, error) {
	if newStatus == payment.PaymentStatus {
		return payment, nil
	}
	if !domain.CanTransition(payment.PaymentStatus, newStatus) {
		s.logger.Warn("ignoring disallowed payment transition",
			zap.String("receipt_no", payment.ReceiptNo),
			zap.String("from", payment.PaymentStatus),
			zap.String("to", newStatus),
		)
		return payment, nil
	}

	if newStatus != domain.PaymentStatusPaid {
		if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, newStatus); err != nil {
			return nil, err
		}
		payment.PaymentStatus = newStatus
		return payment, nil
	}

	now := s.now()
	claimed, err := s.paymentRepo.MarkPaid(ctx, payment.ID, now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Another poll or webhook won the transition, or the row already
		// reached a terminal status; report whatever is stored.
		return s.paymentRepo.GetByID(ctx, payment.ID)
	}
	payment.PaymentStatus = domain.PaymentStatusPaid
	payment.CapturedAt = &now

	if _, err := s.settle(ctx, payment, payment.ReceivedBy); err != nil {
		return nil, err
	}
	return payment, nil
}

// settle runs capture posting and the balance update for a paid payment.
// Each half carries its own once-only guard, so a settle interrupted between
// the two can be replayed until both have landed.
func (s *PaymentService) settle(ctx context.Context, payment *domain.Payment, actor string) ([]*domain.InventoryTransaction, error) {
	txns, err := s.posting.PostCapture(ctx, payment, actor)
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindAlreadyPosted {
			return nil, err
		}
		s.logger.Info("capture already posted", zap.String("receipt_no", payment.ReceiptNo))
		txns = nil
	}

	if _, err := s.loanRepo.ApplyPayment(ctx, payment.LoanID, payment.ID, payment.Amount); err != nil {
		return nil, err
	}
	return txns, nil
}
