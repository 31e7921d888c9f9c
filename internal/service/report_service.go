package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tawandab/pawnshop-engine/internal/config"
	"github.com/tawandab/pawnshop-engine/internal/domain"
	"github.com/tawandab/pawnshop-engine/internal/repository"
)

// ReportService builds period projections over the journal. Snapshots are
// cached in redis with a short TTL; any cache failure falls back to the
// database.
type ReportService struct {
	reportRepo repository.ReportRepository
	redis      *redis.Client
	cfg        *config.Config
	logger     *zap.Logger
}

func NewReportService(
	reportRepo repository.ReportRepository,
	redisClient *redis.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		redis:      redisClient,
		cfg:        cfg,
		logger:     logger,
	}
}

var ledgerIncomeCategories = []string{
	domain.LedgerInterestIncome,
	domain.LedgerStorageIncome,
	domain.LedgerPenaltyIncome,
	domain.LedgerAssetSaleRevenue,
}

var ledgerExpenseCategories = []string{
	domain.LedgerLoanDisbursement,
	domain.LedgerAssetSaleCOGS,
	domain.LedgerWriteOff,
	domain.LedgerOther,
}

// ProfitLoss aggregates ledger entries into income and expense buckets.
// Principal repayment and adjustments move cash but are not profit, so they
// are excluded.
func (s *ReportService) ProfitLoss(ctx context.Context, from, to time.Time, currency string) (*domain.ProfitLossReport, error) {
	report := &domain.ProfitLossReport{From: from, To: to, Currency: currency}
	if ok := s.fromCache(ctx, s.cacheKey("pl", from, to, currency), report); ok {
		return report, nil
	}

	sums, err := s.reportRepo.SumLedgerByCategory(ctx, from, to, currency)
	if err != nil {
		return nil, err
	}

	report.Income = map[string]decimal.Decimal{}
	report.Expenses = map[string]decimal.Decimal{}
	report.Net = decimal.Zero

	for _, category := range ledgerIncomeCategories {
		if total, ok := sums[category]; ok {
			report.Income[category] = total
			report.Net = report.Net.Add(total)
		}
	}
	for _, category := range ledgerExpenseCategories {
		if total, ok := sums[category]; ok {
			report.Expenses[category] = total
			report.Net = report.Net.Add(total)
		}
	}

	s.toCache(ctx, s.cacheKey("pl", from, to, currency), report)
	return report, nil
}

// CashFlow aggregates inventory transactions by type into inflow and
// outflow buckets.
func (s *ReportService) CashFlow(ctx context.Context, from, to time.Time, currency string) (*domain.CashFlowReport, error) {
	report := &domain.CashFlowReport{From: from, To: to, Currency: currency}
	if ok := s.fromCache(ctx, s.cacheKey("cf", from, to, currency), report); ok {
		return report, nil
	}

	sums, err := s.reportRepo.SumTransactionsByType(ctx, from, to, currency)
	if err != nil {
		return nil, err
	}

	report.Inflows = map[string]decimal.Decimal{}
	report.Outflows = map[string]decimal.Decimal{}
	report.Net = decimal.Zero

	for txnType, total := range sums {
		report.Net = report.Net.Add(total)
		if total.Sign() >= 0 {
			report.Inflows[txnType] = total
		} else {
			report.Outflows[txnType] = total
		}
	}

	s.toCache(ctx, s.cacheKey("cf", from, to, currency), report)
	return report, nil
}

// TrialBalance splits per-account journal movement into debit and credit
// totals for the period.
func (s *ReportService) TrialBalance(ctx context.Context, from, to time.Time, currency string) (*domain.TrialBalanceReport, error) {
	report := &domain.TrialBalanceReport{From: from, To: to, Currency: currency}
	if ok := s.fromCache(ctx, s.cacheKey("tb", from, to, currency), report); ok {
		return report, nil
	}

	rows, err := s.reportRepo.TrialBalanceRows(ctx, from, to, currency)
	if err != nil {
		return nil, err
	}

	report.Rows = rows
	report.TotalDebit = decimal.Zero
	report.TotalCredit = decimal.Zero
	for _, row := range rows {
		report.TotalDebit = report.TotalDebit.Add(row.Debit)
		report.TotalCredit = report.TotalCredit.Add(row.Credit)
	}
	report.Net = report.TotalDebit.Sub(report.TotalCredit)

	s.toCache(ctx, s.cacheKey("tb", from, to, currency), report)
	return report, nil
}

func (s *ReportService) cacheKey(kind string, from, to time.Time, currency string) string {
	return fmt.Sprintf("report:%s:%s:%s:%s", kind, from.Format("20060102"), to.Format("20060102"), currency)
}

func (s *ReportService) fromCache(ctx context.Context, key string, target interface{}) bool {
	if s.redis == nil {
		return false
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		s.logger.Warn("corrupt report cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *ReportService) toCache(ctx context.Context, key string, report interface{}) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.cfg.GetReportCacheTTL()).Err(); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}
