package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tawandab/pawnshop-engine/internal/domain"
	"github.com/tawandab/pawnshop-engine/internal/repository"
	"github.com/tawandab/pawnshop-engine/pkg/response"
)

// PostingService is the posting-engine surface the handler depends on.
type PostingService interface {
	PostDisbursement(ctx context.Context, loanID uuid.UUID, actor string) (*domain.InventoryTransaction, error)
	PostAssetSale(ctx context.Context, assetID uuid.UUID, salePrice decimal.Decimal, currency, actor string) (*domain.InventoryTransaction, error)
	PostExpense(ctx context.Context, category string, amount decimal.Decimal, currency, description, actor string) (*domain.InventoryTransaction, error)
	PostAdjustment(ctx context.Context, amount decimal.Decimal, currency, memo, actor string, loanID, assetID, paymentID *uuid.UUID) (*domain.InventoryTransaction, error)
}

type PostingHandler struct {
	service   PostingService
	journal   repository.JournalRepository
	validator *validator.Validate
}

func NewPostingHandler(service PostingService, journal repository.JournalRepository) *PostingHandler {
	return &PostingHandler{
		service:   service,
		journal:   journal,
		validator: validator.New(),
	}
}

// Disburse handles POST /loans/{id}/disburse.
func (h *PostingHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	txn, err := h.service.PostDisbursement(r.Context(), id, Actor(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, txn)
}

type assetSaleRequest struct {
	SalePrice decimal.Decimal `json:"sale_price" validate:"required"`
	Currency  string          `json:"currency" validate:"required"`
}

// AssetSale handles POST /assets/{id}/sale.
func (h *PostingHandler) AssetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req assetSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	txn, err := h.service.PostAssetSale(r.Context(), id, req.SalePrice, req.Currency, Actor(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, txn)
}

type expenseRequest struct {
	Category    string          `json:"category" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Currency    string          `json:"currency" validate:"required"`
	Description string          `json:"description"`
}

// Expense handles POST /expenses.
func (h *PostingHandler) Expense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	txn, err := h.service.PostExpense(r.Context(), req.Category, req.Amount, req.Currency, req.Description, Actor(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, txn)
}

type adjustmentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Currency  string          `json:"currency" validate:"required"`
	Memo      string          `json:"memo"`
	LoanID    *uuid.UUID      `json:"loan_id"`
	AssetID   *uuid.UUID      `json:"asset_id"`
	PaymentID *uuid.UUID      `json:"payment_id"`
}

// Adjustment handles POST /adjustments.
func (h *PostingHandler) Adjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	txn, err := h.service.PostAdjustment(r.Context(), req.Amount, req.Currency, req.Memo, Actor(r), req.LoanID, req.AssetID, req.PaymentID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, txn)
}

// ListTransactions handles GET /inventory-transactions.
func (h *PostingHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := journalFilterFromQuery(r)
	if err != nil {
		response.BadRequest(w, "invalid filter", err)
		return
	}

	txns, err := h.journal.ListTransactions(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, txns)
}

// ListEntries handles GET /ledger-entries.
func (h *PostingHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := journalFilterFromQuery(r)
	if err != nil {
		response.BadRequest(w, "invalid filter", err)
		return
	}

	entries, err := h.journal.ListEntries(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, entries)
}

func journalFilterFromQuery(r *http.Request) (domain.JournalFilter, error) {
	q := r.URL.Query()
	filter := domain.JournalFilter{
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Currency: q.Get("currency"),
	}

	for name, target := range map[string]**uuid.UUID{
		"loan_id":    &filter.LoanID,
		"asset_id":   &filter.AssetID,
		"payment_id": &filter.PaymentID,
	} {
		if v := q.Get(name); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return filter, err
			}
			*target = &id
		}
	}

	for name, target := range map[string]**time.Time{
		"from": &filter.From,
		"to":   &filter.To,
	} {
		if v := q.Get(name); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return filter, err
			}
			*target = &t
		}
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Offset = offset
	}

	return filter, nil
}
