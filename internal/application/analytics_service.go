package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/retail-platform/inventory-engine/internal/domain"
	"github.com/retail-platform/inventory-engine/pkg/errors"
	"github.com/retail-platform/inventory-engine/pkg/logging"
)

// AnalyticsService computes purchase-run sell-through reports. It only
// reads; running a report twice never changes what it reports on.
type AnalyticsService struct {
	lots  domain.LotRepository
	sales domain.SaleLineReader
	runs  domain.PurchaseRunReader

	logger *logging.Logger
	now    func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(lots domain.LotRepository, sales domain.SaleLineReader, runs domain.PurchaseRunReader, logger *logging.Logger) *AnalyticsService {
	return &AnalyticsService{
		lots:   lots,
		sales:  sales,
		runs:   runs,
		logger: logger.WithComponent("analytics-service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetPurchaseRunProgress computes the sell-through report for one purchase
// run: quantities, realized and expected economics, and velocity.
func (s *AnalyticsService) GetPurchaseRunProgress(ctx context.Context, query GetPurchaseRunProgressQuery) (*domain.PurchaseRunProgress, error) {
	lots, err := s.lots.FindByPurchaseRun(ctx, query.PurchaseRunID)
	if err != nil {
		return nil, s.storeError(ctx, "load lots", query.PurchaseRunID, err)
	}
	if len(lots) == 0 {
		return nil, errors.ErrNotFoundWithID("purchase run", query.PurchaseRunID)
	}

	sales, err := s.sales.FindByPurchaseRun(ctx, query.PurchaseRunID)
	if err != nil {
		return nil, s.storeError(ctx, "load sale lines", query.PurchaseRunID, err)
	}

	// a missing run record is (nil, nil) and degrades expected pricing to
	// the cost fallback; a read failure must surface, never fall back
	run, err := s.runs.FindByID(ctx, query.PurchaseRunID)
	if err != nil {
		return nil, s.storeError(ctx, "load purchase run", query.PurchaseRunID, err)
	}

	progress, err := domain.BuildPurchaseRunProgress(query.PurchaseRunID, lots, sales, run, s.now())
	if err != nil {
		if stderrors.Is(err, domain.ErrPurchaseRunNotFound) {
			return nil, errors.ErrNotFoundWithID("purchase run", query.PurchaseRunID)
		}
		s.logger.Error("Failed to compute purchase run progress",
			"purchaseRunId", query.PurchaseRunID, "error", err)
		return nil, fmt.Errorf("failed to compute progress: %w", err)
	}

	return progress, nil
}

func (s *AnalyticsService) storeError(ctx context.Context, op, runID string, err error) error {
	s.logger.WithContext(ctx).Error("Store read failed", "operation", op, "purchaseRunId", runID, "error", err)
	if stderrors.Is(err, domain.ErrStoreUnavailable) {
		return errors.ErrStoreUnavailable().Wrap(err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
