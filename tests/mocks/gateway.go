package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tawandab/pawnshop-engine/internal/gateway"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Initiate(ctx context.Context, req *gateway.InitiateRequest) (*gateway.InitiateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.InitiateResponse), args.Error(1)
}

func (m *MockGateway) Poll(ctx context.Context, pollURL string) (*gateway.StatusResponse, error) {
	args := m.Called(ctx, pollURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.StatusResponse), args.Error(1)
}

func (m *MockGateway) ParseWebhook(body []byte) (*gateway.WebhookResult, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.WebhookResult), args.Error(1)
}
