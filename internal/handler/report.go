package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/tawandab/pawnshop-engine/internal/domain"
	"github.com/tawandab/pawnshop-engine/pkg/response"
)

// ReportService is the projection surface the handler depends on.
type ReportService interface {
	ProfitLoss(ctx context.Context, from, to time.Time, currency string) (*domain.ProfitLossReport, error)
	CashFlow(ctx context.Context, from, to time.Time, currency string) (*domain.CashFlowReport, error)
	TrialBalance(ctx context.Context, from, to time.Time, currency string) (*domain.TrialBalanceReport, error)
}

type ReportHandler struct {
	service         ReportService
	defaultCurrency string
}

func NewReportHandler(service ReportService, defaultCurrency string) *ReportHandler {
	return &ReportHandler{
		service:         service,
		defaultCurrency: defaultCurrency,
	}
}

// ProfitLoss handles GET /reports/profit-loss.
func (h *ReportHandler) ProfitLoss(w http.ResponseWriter, r *http.Request) {
	from, to, currency, err := h.period(r)
	if err != nil {
		response.BadRequest(w, "invalid period", err)
		return
	}

	report, err := h.service.ProfitLoss(r.Context(), from, to, currency)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, report)
}

// CashFlow handles GET /reports/cash-flow.
func (h *ReportHandler) CashFlow(w http.ResponseWriter, r *http.Request) {
	from, to, currency, err := h.period(r)
	if err != nil {
		response.BadRequest(w, "invalid period", err)
		return
	}

	report, err := h.service.CashFlow(r.Context(), from, to, currency)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, report)
}

// TrialBalance handles GET /reports/trial-balance.
func (h *ReportHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	from, to, currency, err := h.period(r)
	if err != nil {
		response.BadRequest(w, "invalid period", err)
		return
	}

	report, err := h.service.TrialBalance(r.Context(), from, to, currency)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, report)
}

// period reads from/to/currency query parameters. The default period is the
// current calendar month.
func (h *ReportHandler) period(r *http.Request) (time.Time, time.Time, string, error) {
	q := r.URL.Query()

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)

	if v := q.Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, "", err
		}
		from = parsed
	}
	if v := q.Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, "", err
		}
		to = parsed
	}

	currency := q.Get("currency")
	if currency == "" {
		currency = h.defaultCurrency
	}

	return from, to, currency, nil
}
