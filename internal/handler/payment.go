package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tawandab/pawnshop-engine/internal/domain"
	"github.com/tawandab/pawnshop-engine/pkg/response"
)

// PaymentService is the workflow surface the handler depends on.
type PaymentService interface {
	Create(ctx context.Context, req *domain.CreatePaymentRequest, actor string) (*domain.CreatePaymentResponse, error)
	Poll(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	Webhook(ctx context.Context, body []byte) (*domain.Payment, error)
	Refund(ctx context.Context, paymentID uuid.UUID, req *domain.RefundRequest, actor string) (*domain.Payment, error)
	PostRepayment(ctx context.Context, paymentID uuid.UUID, actor string) ([]*domain.InventoryTransaction, error)
}

type PaymentHandler struct {
	service   PaymentService
	validator *validator.Validate
}

func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Create handles POST /payments.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	result, err := h.service.Create(r.Context(), &req, Actor(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, result)
}

// Poll handles POST /payments/{id}/poll.
func (h *PaymentHandler) Poll(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	payment, err := h.service.Poll(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payment)
}

// Webhook handles POST /payments/webhook. The provider does not authenticate
// as an actor; payment lookup is by its own references.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "unreadable webhook body", err)
		return
	}

	payment, err := h.service.Webhook(r.Context(), body)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payment)
}

// Refund handles POST /payments/{id}/refund.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req domain.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	payment, err := h.service.Refund(r.Context(), id, &req, Actor(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payment)
}

// PostRepayment handles POST /payments/{id}/post.
func (h *PaymentHandler) PostRepayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	txns, err := h.service.PostRepayment(r.Context(), id, Actor(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, txns)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}
