package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tawandab/pawnshop-engine/internal/domain"
	apperrors "github.com/tawandab/pawnshop-engine/pkg/errors"
	"github.com/tawandab/pawnshop-engine/tests/mocks"
)

func postingRouter(service *mocks.MockPostingService, journal *mocks.MockJournalRepository) *mux.Router {
	h := NewPostingHandler(service, journal)
	router := mux.NewRouter()
	router.HandleFunc("/loans/{id}/disburse", h.Disburse).Methods(http.MethodPost)
	router.HandleFunc("/assets/{id}/sale", h.AssetSale).Methods(http.MethodPost)
	router.HandleFunc("/expenses", h.Expense).Methods(http.MethodPost)
	router.HandleFunc("/adjustments", h.Adjustment).Methods(http.MethodPost)
	router.HandleFunc("/inventory-transactions", h.ListTransactions).Methods(http.MethodGet)
	router.HandleFunc("/ledger-entries", h.ListEntries).Methods(http.MethodGet)
	return router
}

func TestPostingHandler_Disburse(t *testing.T) {
	service := new(mocks.MockPostingService)
	loanID := uuid.New()
	service.On("PostDisbursement", mock.Anything, loanID, "clerk-1").
		Return(&domain.InventoryTransaction{
			ID:     uuid.New(),
			TxNo:   "TXN2403070001",
			Type:   domain.TxnTypeLoanDisbursement,
			Amount: decimal.NewFromInt(-100),
		}, nil)

	router := postingRouter(service, new(mocks.MockJournalRepository))
	r := httptest.NewRequest(http.MethodPost, "/loans/"+loanID.String()+"/disburse", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withActor(r, "clerk-1"))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPostingHandler_Disburse_Duplicate(t *testing.T) {
	service := new(mocks.MockPostingService)
	loanID := uuid.New()
	service.On("PostDisbursement", mock.Anything, loanID, "clerk-1").
		Return(nil, apperrors.AlreadyPosted("loan disbursement", "LN-001"))

	router := postingRouter(service, new(mocks.MockJournalRepository))
	r := httptest.NewRequest(http.MethodPost, "/loans/"+loanID.String()+"/disburse", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withActor(r, "clerk-1"))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPostingHandler_AssetSale(t *testing.T) {
	service := new(mocks.MockPostingService)
	assetID := uuid.New()
	service.On("PostAssetSale", mock.Anything, assetID, mock.MatchedBy(func(p decimal.Decimal) bool {
		return p.Equal(decimal.NewFromInt(120))
	}), domain.CurrencyUSD, "clerk-1").
		Return(&domain.InventoryTransaction{ID: uuid.New(), Type: domain.TxnTypeAssetSale}, nil)

	router := postingRouter(service, new(mocks.MockJournalRepository))
	r := httptest.NewRequest(http.MethodPost, "/assets/"+assetID.String()+"/sale",
		strings.NewReader(`{"sale_price":"120","currency":"USD"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withActor(r, "clerk-1"))

	assert.Equal(t, http.StatusCreated, w.Code)
	service.AssertExpectations(t)
}

func TestPostingHandler_Expense_MissingFields(t *testing.T) {
	service := new(mocks.MockPostingService)
	router := postingRouter(service, new(mocks.MockJournalRepository))

	r := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"amount":"10"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withActor(r, "clerk-1"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "PostExpense", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostingHandler_ListTransactions_Filter(t *testing.T) {
	journal := new(mocks.MockJournalRepository)
	loanID := uuid.New()
	journal.On("ListTransactions", mock.Anything, mock.MatchedBy(func(f domain.JournalFilter) bool {
		return f.Type == domain.TxnTypeRepayment &&
			f.LoanID != nil && *f.LoanID == loanID &&
			f.From != nil && f.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) &&
			f.Limit == 10
	})).Return([]*domain.InventoryTransaction{}, nil)

	router := postingRouter(new(mocks.MockPostingService), journal)
	r := httptest.NewRequest(http.MethodGet,
		"/inventory-transactions?type=repayment&loan_id="+loanID.String()+"&from=2024-03-01&limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	journal.AssertExpectations(t)
}

func TestPostingHandler_ListEntries_BadFilter(t *testing.T) {
	journal := new(mocks.MockJournalRepository)
	router := postingRouter(new(mocks.MockPostingService), journal)

	r := httptest.NewRequest(http.MethodGet, "/ledger-entries?loan_id=nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	journal.AssertNotCalled(t, "ListEntries", mock.Anything, mock.Anything)
}
