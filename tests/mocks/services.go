package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/tawandab/pawnshop-engine/internal/domain"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Create(ctx context.Context, req *domain.CreatePaymentRequest, actor string) (*domain.CreatePaymentResponse, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreatePaymentResponse), args.Error(1)
}

func (m *MockPaymentService) Poll(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) Webhook(ctx context.Context, body []byte) (*domain.Payment, error) {
	args := m.Called(ctx, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) Refund(ctx context.Context, paymentID uuid.UUID, req *domain.RefundRequest, actor string) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) PostRepayment(ctx context.Context, paymentID uuid.UUID, actor string) ([]*domain.InventoryTransaction, error) {
	args := m.Called(ctx, paymentID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InventoryTransaction), args.Error(1)
}

type MockPostingService struct {
	mock.Mock
}

func (m *MockPostingService) PostDisbursement(ctx context.Context, loanID uuid.UUID, actor string) (*domain.InventoryTransaction, error) {
	args := m.Called(ctx, loanID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryTransaction), args.Error(1)
}

func (m *MockPostingService) PostAssetSale(ctx context.Context, assetID uuid.UUID, salePrice decimal.Decimal, currency, actor string) (*domain.InventoryTransaction, error) {
	args := m.Called(ctx, assetID, salePrice, currency, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryTransaction), args.Error(1)
}

func (m *MockPostingService) PostExpense(ctx context.Context, category string, amount decimal.Decimal, currency, description, actor string) (*domain.InventoryTransaction, error) {
	args := m.Called(ctx, category, amount, currency, description, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryTransaction), args.Error(1)
}

func (m *MockPostingService) PostAdjustment(ctx context.Context, amount decimal.Decimal, currency, memo, actor string, loanID, assetID, paymentID *uuid.UUID) (*domain.InventoryTransaction, error) {
	args := m.Called(ctx, amount, currency, memo, actor, loanID, assetID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryTransaction), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) ProfitLoss(ctx context.Context, from, to time.Time, currency string) (*domain.ProfitLossReport, error) {
	args := m.Called(ctx, from, to, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProfitLossReport), args.Error(1)
}

func (m *MockReportService) CashFlow(ctx context.Context, from, to time.Time, currency string) (*domain.CashFlowReport, error) {
	args := m.Called(ctx, from, to, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CashFlowReport), args.Error(1)
}

func (m *MockReportService) TrialBalance(ctx context.Context, from, to time.Time, currency string) (*domain.TrialBalanceReport, error) {
	args := m.Called(ctx, from, to, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrialBalanceReport), args.Error(1)
}
