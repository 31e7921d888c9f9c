package gateway

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tawandab/pawnshop-engine/internal/config"
	"github.com/tawandab/pawnshop-engine/internal/domain"
	apperrors "github.com/tawandab/pawnshop-engine/pkg/errors"
)

const (
	initiatePath = "/interface/initiatetransaction"
	remotePath   = "/interface/remotetransaction"
)

// Zimbabwean mobile numbers accepted by the mobile-money providers:
// +263 then 71/73/77/78 then seven digits.
var mobilePattern = regexp.MustCompile(`^\+2637[1378]\d{7}$`)

// Client is the provider-facing surface the payment workflow depends on.
type Client interface {
	Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResponse, error)
	Poll(ctx context.Context, pollURL string) (*StatusResponse, error)
	ParseWebhook(body []byte) (*WebhookResult, error)
}

// InitiateRequest describes one provider payment to create. Method is empty
// for web (redirect) payments and a mobile-money code for express payments.
type InitiateRequest struct {
	Reference   string
	Email       string
	Phone       string
	Description string
	Amount      decimal.Decimal
	Method      string
}

type InitiateResponse struct {
	PollURL      string
	RedirectURL  string
	ProviderRef  string
	Instructions string
	Raw          map[string]string
}

type StatusResponse struct {
	Status string
	Amount decimal.Decimal
	Raw    map[string]string
}

type WebhookResult struct {
	Reference string
	Status    string
	PollURL   string
	Method    string
	Amount    decimal.Decimal
}

// Paynow talks to the hosted payment gateway over form-encoded HTTP.
type Paynow struct {
	cfg    config.GatewayConfig
	http   *http.Client
	logger *zap.Logger
}

// New builds a gateway client. Missing credentials fail initialization.
func New(cfg config.GatewayConfig, timeout time.Duration, logger *zap.Logger) (*Paynow, error) {
	if cfg.ID == "" || cfg.Key == "" {
		return nil, fmt.Errorf("gateway credentials missing: GATEWAY_ID and GATEWAY_KEY are required")
	}
	if cfg.ResultURL == "" || cfg.ReturnURL == "" {
		return nil, fmt.Errorf("gateway callback urls missing: GATEWAY_RESULT_URL and GATEWAY_RETURN_URL are required")
	}

	return &Paynow{
		cfg: cfg,
		http: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// ValidateMobile checks a payer phone number against the country pattern.
func ValidateMobile(phone string) error {
	if !mobilePattern.MatchString(phone) {
		return apperrors.InvalidPhone(phone)
	}
	return nil
}

// Initiate creates a provider payment and returns the poll and redirect
// URLs. Mobile-money methods take the express path and require a valid
// payer phone.
func (p *Paynow) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResponse, error) {
	values := url.Values{}
	values.Set("id", p.cfg.ID)
	values.Set("reference", req.Reference)
	values.Set("amount", req.Amount.StringFixed(2))
	values.Set("additionalinfo", req.Description)
	values.Set("returnurl", p.cfg.ReturnURL)
	values.Set("resulturl", p.cfg.ResultURL)
	values.Set("authemail", req.Email)
	values.Set("status", "Message")

	path := initiatePath
	if req.Method != "" {
		if err := ValidateMobile(req.Phone); err != nil {
			return nil, err
		}
		values.Set("phone", req.Phone)
		values.Set("method", req.Method)
		path = remotePath
	}
	values.Set("hash", p.hash(values))

	raw, err := p.post(ctx, p.cfg.BaseURL+path, values)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(raw["status"], "ok") {
		return nil, apperrors.GatewayRejected(gatewayError(raw))
	}

	return &InitiateResponse{
		PollURL:      raw["pollurl"],
		RedirectURL:  raw["browserurl"],
		ProviderRef:  raw["paynowreference"],
		Instructions: raw["instructions"],
		Raw:          raw,
	}, nil
}

// Poll fetches the current provider status for a transaction.
func (p *Paynow) Poll(ctx context.Context, pollURL string) (*StatusResponse, error) {
	raw, err := p.post(ctx, pollURL, url.Values{})
	if err != nil {
		return nil, err
	}

	amount := decimal.Zero
	if v, ok := raw["amount"]; ok {
		amount, _ = decimal.NewFromString(v)
	}

	return &StatusResponse{
		Status: raw["status"],
		Amount: amount,
		Raw:    raw,
	}, nil
}

// ParseWebhook decodes a provider callback body.
func (p *Paynow) ParseWebhook(body []byte) (*WebhookResult, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, apperrors.Validation("malformed webhook body")
	}

	result := &WebhookResult{
		Reference: firstOf(values, "paynowreference", "reference"),
		Status:    values.Get("status"),
		PollURL:   values.Get("pollurl"),
		Method:    values.Get("method"),
	}
	if v := values.Get("amount"); v != "" {
		result.Amount, _ = decimal.NewFromString(v)
	}

	if result.Reference == "" && result.PollURL == "" {
		return nil, apperrors.Validation("webhook carries no payment reference")
	}

	return result, nil
}

// MapStatus translates a provider status string into the internal payment
// status enumeration. Matching is case-insensitive on substrings; unknown
// strings map to pending.
func MapStatus(providerStatus string) string {
	s := strings.ToLower(providerStatus)
	switch {
	case strings.Contains(s, "paid"), strings.Contains(s, "completed"):
		return domain.PaymentStatusPaid
	case strings.Contains(s, "awaiting delivery"):
		return domain.PaymentStatusAwaitingDelivery
	case strings.Contains(s, "awaiting confirmation"):
		return domain.PaymentStatusAwaitingConfirmation
	case strings.Contains(s, "sent"), strings.Contains(s, "created"):
		return domain.PaymentStatusSent
	case strings.Contains(s, "cancel"):
		return domain.PaymentStatusCancelled
	case strings.Contains(s, "fail"):
		return domain.PaymentStatusFailed
	}
	return domain.PaymentStatusPending
}

// MethodFor maps an internal provider to the gateway express-payment method
// code, empty for the hosted web flow.
func MethodFor(provider string) string {
	switch provider {
	case domain.ProviderEcocash:
		return "ecocash"
	case domain.ProviderOneMoney:
		return "onemoney"
	case domain.ProviderTelecash:
		return "telecash"
	}
	return ""
}

func (p *Paynow) post(ctx context.Context, endpoint string, values url.Values) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, apperrors.Internal("building gateway request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		p.logger.Warn("gateway call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, apperrors.GatewayUnreachable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.GatewayUnreachable(err)
	}

	parsed, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, apperrors.GatewayUnreachable(fmt.Errorf("unparseable gateway response: %w", err))
	}

	raw := make(map[string]string, len(parsed))
	for k := range parsed {
		raw[strings.ToLower(k)] = parsed.Get(k)
	}
	return raw, nil
}

// hash signs the outgoing values: SHA-512 over the concatenated values in
// field order plus the integration key, uppercase hex.
func (p *Paynow) hash(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(values.Get(k))
	}
	b.WriteString(p.cfg.Key)

	sum := sha512.Sum512([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func gatewayError(raw map[string]string) string {
	if msg, ok := raw["error"]; ok && msg != "" {
		return msg
	}
	return "gateway rejected the transaction"
}

func firstOf(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return ""
}
