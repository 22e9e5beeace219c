package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/retail-platform/inventory-engine/internal/domain"
	"github.com/retail-platform/inventory-engine/pkg/errors"
	"github.com/retail-platform/inventory-engine/pkg/logging"
	"github.com/retail-platform/inventory-engine/pkg/metrics"
)

// maxAllocationAttempts bounds the revision-conflict retry loop. Conflicts
// past this count surface to the caller as CONCURRENT_MODIFICATION.
const maxAllocationAttempts = 4

// AllocationService performs FIFO stock allocation
type AllocationService struct {
	repo    domain.LotRepository
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(repo domain.LotRepository, logger *logging.Logger, m *metrics.Metrics) *AllocationService {
	return &AllocationService{
		repo:    repo,
		logger:  logger.WithComponent("allocation-service"),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Allocate draws the requested quantity from the product's lots, oldest lot
// first. The whole draw either commits or nothing does: the plan is computed
// against a snapshot, verified sufficient, and applied in one revision-gated
// write. A concurrent writer invalidating the snapshot restarts the
// computation from a fresh read, up to maxAllocationAttempts times.
func (s *AllocationService) Allocate(ctx context.Context, cmd AllocateCommand) (*AllocationResultDTO, error) {
	if cmd.ProductID == "" {
		return nil, errors.ErrValidation("productId is required")
	}
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation("quantity must be a positive integer")
	}

	var result *AllocationResultDTO
	attempt := 0

	operation := func() error {
		attempt++
		plan, err := s.planAndApply(ctx, cmd)
		if err != nil {
			if stderrors.Is(err, domain.ErrRevisionConflict) {
				s.metrics.AllocationConflicts.WithLabelValues(cmd.ProductID).Inc()
				s.logger.Warn("Allocation lost a revision race, retrying",
					"productId", cmd.ProductID, "attempt", attempt)
				return err
			}
			return backoff.Permanent(err)
		}

		result = plan
		return nil
	}

	// conflicts resolve in milliseconds; a long first wait just adds latency
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxAllocationAttempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, s.mapAllocationError(ctx, cmd, err)
	}

	s.metrics.UnitsAllocated.WithLabelValues(cmd.ProductID).Add(float64(cmd.Quantity))
	s.logger.Info("Allocated stock",
		"productId", cmd.ProductID,
		"quantity", cmd.Quantity,
		"lots", len(result.Allocations),
		"attempts", attempt)
	return result, nil
}

// planAndApply runs one optimistic attempt: snapshot, plan, commit
func (s *AllocationService) planAndApply(ctx context.Context, cmd AllocateCommand) (*AllocationResultDTO, error) {
	lots, err := s.repo.FindAvailableByProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	plan, err := domain.BuildDrawPlan(cmd.ProductID, cmd.Quantity, lots)
	if err != nil {
		if stderrors.Is(err, domain.ErrInsufficientInventory) {
			return nil, &insufficientError{requested: cmd.Quantity, available: lots.TotalRemaining(), cause: err}
		}
		return nil, err
	}

	allocatedAt := s.now()
	if err := s.repo.ApplyDraws(ctx, plan, allocatedAt); err != nil {
		return nil, err
	}

	totalCost, err := plan.TotalCost()
	if err != nil {
		return nil, err
	}

	return &AllocationResultDTO{
		ProductID:   cmd.ProductID,
		Quantity:    cmd.Quantity,
		TotalCost:   ToMoneyDTO(totalCost),
		Allocations: ToAllocationRecordDTOs(plan.Records()),
		AllocatedAt: allocatedAt,
	}, nil
}

// insufficientError carries the availability snapshot so the API response
// can tell the caller how much stock actually exists.
type insufficientError struct {
	requested int
	available int
	cause     error
}

func (e *insufficientError) Error() string {
	return fmt.Sprintf("requested %d, available %d", e.requested, e.available)
}

func (e *insufficientError) Unwrap() error { return e.cause }

func (s *AllocationService) mapAllocationError(ctx context.Context, cmd AllocateCommand, err error) error {
	var insufficient *insufficientError
	switch {
	case stderrors.As(err, &insufficient):
		s.metrics.InsufficientInventory.WithLabelValues(cmd.ProductID).Inc()
		s.logger.Info("Allocation rejected for insufficient stock",
			"productId", cmd.ProductID,
			"requested", insufficient.requested,
			"available", insufficient.available)
		return errors.ErrInsufficientInventory(cmd.ProductID, insufficient.requested, insufficient.available)

	case stderrors.Is(err, domain.ErrRevisionConflict):
		s.logger.Warn("Allocation gave up after repeated revision conflicts",
			"productId", cmd.ProductID, "quantity", cmd.Quantity)
		return errors.ErrConcurrentModification(cmd.ProductID)

	case stderrors.Is(err, domain.ErrStoreUnavailable):
		s.logger.WithContext(ctx).Error("Lot store unavailable during allocation",
			"productId", cmd.ProductID, "error", err)
		return errors.ErrStoreUnavailable().Wrap(err)

	default:
		s.logger.WithContext(ctx).Error("Allocation failed",
			"productId", cmd.ProductID, "error", err)
		return fmt.Errorf("failed to allocate stock: %w", err)
	}
}
