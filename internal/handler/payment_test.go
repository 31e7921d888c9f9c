package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tawandab/pawnshop-engine/internal/domain"
	apperrors "github.com/tawandab/pawnshop-engine/pkg/errors"
	"github.com/tawandab/pawnshop-engine/pkg/response"
	"github.com/tawandab/pawnshop-engine/tests/mocks"
)

func withActor(r *http.Request, actor string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), actorKey, actor))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func TestPaymentHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*mocks.MockPaymentService)
		expectedStatus int
	}{
		{
			name: "created",
			body: `{"loan_no":"LN-100","amount":"40","provider":"cash","payment_status":"paid"}`,
			setupMock: func(m *mocks.MockPaymentService) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(req *domain.CreatePaymentRequest) bool {
					return req.LoanNo == "LN-100" && req.Amount.Equal(decimal.NewFromInt(40)) && req.Provider == domain.ProviderCash
				}), "clerk-1").Return(&domain.CreatePaymentResponse{
					Payment: &domain.Payment{ID: uuid.New(), PaymentStatus: domain.PaymentStatusPaid},
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed body",
			body:           `{"loan_no":`,
			setupMock:      func(m *mocks.MockPaymentService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing required fields",
			body:           `{"amount":"40"}`,
			setupMock:      func(m *mocks.MockPaymentService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown loan",
			body: `{"loan_no":"LN-404","amount":"40","provider":"cash"}`,
			setupMock: func(m *mocks.MockPaymentService) {
				m.On("Create", mock.Anything, mock.Anything, "clerk-1").
					Return(nil, apperrors.NotFound("loan", "LN-404")).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "invalid payer phone",
			body: `{"loan_no":"LN-100","amount":"40","provider":"ecocash","payer_phone":"0771234567"}`,
			setupMock: func(m *mocks.MockPaymentService) {
				m.On("Create", mock.Anything, mock.Anything, "clerk-1").
					Return(nil, apperrors.InvalidPhone("0771234567")).Once()
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(mocks.MockPaymentService)
			tt.setupMock(service)
			h := NewPaymentHandler(service)

			r := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.Create(w, withActor(r, "clerk-1"))

			assert.Equal(t, tt.expectedStatus, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.expectedStatus < 300, env.Success)
			service.AssertExpectations(t)
		})
	}
}

func TestPaymentHandler_Poll(t *testing.T) {
	service := new(mocks.MockPaymentService)
	paymentID := uuid.New()
	service.On("Poll", mock.Anything, paymentID).
		Return(&domain.Payment{ID: paymentID, PaymentStatus: domain.PaymentStatusPaid}, nil)

	h := NewPaymentHandler(service)
	router := mux.NewRouter()
	router.HandleFunc("/payments/{id}/poll", h.Poll).Methods(http.MethodPost)

	r := httptest.NewRequest(http.MethodPost, "/payments/"+paymentID.String()+"/poll", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withActor(r, "clerk-1"))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentHandler_Poll_BadID(t *testing.T) {
	service := new(mocks.MockPaymentService)
	h := NewPaymentHandler(service)
	router := mux.NewRouter()
	router.HandleFunc("/payments/{id}/poll", h.Poll).Methods(http.MethodPost)

	r := httptest.NewRequest(http.MethodPost, "/payments/not-a-uuid/poll", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "Poll", mock.Anything, mock.Anything)
}

func TestPaymentHandler_Webhook(t *testing.T) {
	service := new(mocks.MockPaymentService)
	body := "paynowreference=PR-1&status=Paid"
	service.On("Webhook", mock.Anything, []byte(body)).
		Return(&domain.Payment{ID: uuid.New(), PaymentStatus: domain.PaymentStatusPaid}, nil)

	h := NewPaymentHandler(service)

	// webhooks arrive without an actor
	r := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Webhook(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestPaymentHandler_Refund_Conflict(t *testing.T) {
	service := new(mocks.MockPaymentService)
	paymentID := uuid.New()
	service.On("Refund", mock.Anything, paymentID, mock.Anything, "manager-1").
		Return(nil, apperrors.Validation("only paid payments can be refunded"))

	h := NewPaymentHandler(service)
	router := mux.NewRouter()
	router.HandleFunc("/payments/{id}/refund", h.Refund).Methods(http.MethodPost)

	r := httptest.NewRequest(http.MethodPost, "/payments/"+paymentID.String()+"/refund", strings.NewReader(`{"amount":"10"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withActor(r, "manager-1"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_PostRepayment_AlreadyPosted(t *testing.T) {
	service := new(mocks.MockPaymentService)
	paymentID := uuid.New()
	service.On("PostRepayment", mock.Anything, paymentID, "clerk-1").
		Return(nil, apperrors.AlreadyPosted("repayment", "RCPT24030001"))

	h := NewPaymentHandler(service)
	router := mux.NewRouter()
	router.HandleFunc("/payments/{id}/post", h.PostRepayment).Methods(http.MethodPost)

	r := httptest.NewRequest(http.MethodPost, "/payments/"+paymentID.String()+"/post", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withActor(r, "clerk-1"))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRequireActor(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Actor(r)
		w.WriteHeader(http.StatusNoContent)
	})
	protected := RequireActor(inner)

	r := httptest.NewRequest(http.MethodPost, "/payments", nil)
	r.Header.Set("X-User-ID", "clerk-7")
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "clerk-7", seen)

	r = httptest.NewRequest(http.MethodPost, "/payments", nil)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
