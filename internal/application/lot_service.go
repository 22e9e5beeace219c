package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/retail-platform/inventory-engine/internal/domain"
	"github.com/retail-platform/inventory-engine/pkg/errors"
	"github.com/retail-platform/inventory-engine/pkg/kafka"
	"github.com/retail-platform/inventory-engine/pkg/logging"
	"github.com/retail-platform/inventory-engine/pkg/metrics"
	"github.com/retail-platform/inventory-engine/pkg/outbox"
)

// LotService handles lot creation and lot queries
type LotService struct {
	repo    domain.LotRepository
	outbox  outbox.Repository
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewLotService creates a new LotService
func NewLotService(repo domain.LotRepository, outboxRepo outbox.Repository, logger *logging.Logger, m *metrics.Metrics) *LotService {
	return &LotService{
		repo:    repo,
		outbox:  outboxRepo,
		logger:  logger.WithComponent("lot-service"),
		metrics: m,
	}
}

// CreateLots turns the line items of a completed purchase into inventory
// lots. Items whose (purchaseRunId, productId) pair already has a lot are
// skipped and reported, so redelivering the same purchase cannot double
// stock. Created and skipped items are reported together; a validation error
// on any item rejects the whole command before anything is written.
func (s *LotService) CreateLots(ctx context.Context, cmd CreateLotsCommand) (*CreateLotsResultDTO, error) {
	if cmd.PurchaseRunID == "" {
		return nil, errors.ErrValidation("purchaseRunId is required")
	}
	if len(cmd.Items) == 0 {
		return nil, errors.ErrValidation("at least one line item is required")
	}
	if cmd.PurchasedAt.IsZero() {
		return nil, errors.ErrValidation("purchasedAt is required")
	}

	items := make([]domain.PurchaseItem, 0, len(cmd.Items))
	for _, input := range cmd.Items {
		item, err := ToPurchaseItem(input)
		if err != nil {
			return nil, errors.ErrValidation(fmt.Sprintf("line item %s: %v", input.ProductID, err))
		}
		if item.Quantity <= 0 {
			return nil, errors.ErrValidation(fmt.Sprintf("line item %s: quantity must be positive", input.ProductID))
		}
		items = append(items, item)
	}

	existing, err := s.repo.FindByPurchaseRun(ctx, cmd.PurchaseRunID)
	if err != nil {
		return nil, s.storeError(ctx, "check existing lots", cmd.PurchaseRunID, err)
	}
	alreadyStocked := make(map[string]bool, len(existing))
	for _, lot := range existing {
		alreadyStocked[lot.ProductID] = true
	}

	result := &CreateLotsResultDTO{PurchaseRunID: cmd.PurchaseRunID}
	var created []*domain.InventoryLot
	for _, item := range items {
		if alreadyStocked[item.ProductID] {
			result.SkippedProductIDs = append(result.SkippedProductIDs, item.ProductID)
			continue
		}

		lot, err := domain.NewInventoryLot(cmd.PurchaseRunID, cmd.PurchasedAt, item, cmd.Supplier)
		if err != nil {
			return nil, errors.ErrValidation(fmt.Sprintf("line item %s: %v", item.ProductID, err))
		}
		created = append(created, lot)
	}

	if len(created) > 0 {
		if err := s.repo.Insert(ctx, created); err != nil {
			return nil, s.storeError(ctx, "insert lots", cmd.PurchaseRunID, err)
		}

		for _, lot := range created {
			s.metrics.LotsCreated.WithLabelValues(lot.ProductID).Add(float64(lot.Quantity))
		}
		s.enqueueLotsCreated(ctx, cmd, created)
	}

	result.Created = ToInventoryLotDTOs(created)
	s.logger.Info("Created inventory lots",
		"purchaseRunId", cmd.PurchaseRunID,
		"created", len(created),
		"skipped", len(result.SkippedProductIDs))
	return result, nil
}

// GetLot retrieves a single lot by id
func (s *LotService) GetLot(ctx context.Context, query GetLotQuery) (*InventoryLotDTO, error) {
	lot, err := s.repo.FindByID(ctx, query.LotID)
	if err != nil {
		return nil, s.storeError(ctx, "get lot", query.LotID, err)
	}
	if lot == nil {
		return nil, errors.ErrNotFoundWithID("lot", query.LotID)
	}

	dto := ToInventoryLotDTO(lot)
	return &dto, nil
}

// ListLotsByProduct lists a product's lots in FIFO order
func (s *LotService) ListLotsByProduct(ctx context.Context, query ListLotsByProductQuery) ([]InventoryLotDTO, error) {
	var (
		lots domain.Lots
		err  error
	)
	if query.AvailableOnly {
		lots, err = s.repo.FindAvailableByProduct(ctx, query.ProductID)
	} else {
		lots, err = s.repo.FindByProduct(ctx, query.ProductID)
	}
	if err != nil {
		return nil, s.storeError(ctx, "list lots by product", query.ProductID, err)
	}

	domain.SortFIFO(lots)
	return ToInventoryLotDTOs(lots), nil
}

// ListLotsByPurchaseRun lists the lots a purchase run created
func (s *LotService) ListLotsByPurchaseRun(ctx context.Context, query ListLotsByPurchaseRunQuery) ([]InventoryLotDTO, error) {
	lots, err := s.repo.FindByPurchaseRun(ctx, query.PurchaseRunID)
	if err != nil {
		return nil, s.storeError(ctx, "list lots by run", query.PurchaseRunID, err)
	}
	if len(lots) == 0 {
		return nil, errors.ErrNotFoundWithID("purchase run", query.PurchaseRunID)
	}

	domain.SortFIFO(lots)
	return ToInventoryLotDTOs(lots), nil
}

// GetAvailability sums the remaining stock a product can sell right now
func (s *LotService) GetAvailability(ctx context.Context, query GetAvailabilityQuery) (*ProductAvailabilityDTO, error) {
	lots, err := s.repo.FindAvailableByProduct(ctx, query.ProductID)
	if err != nil {
		return nil, s.storeError(ctx, "get availability", query.ProductID, err)
	}

	return &ProductAvailabilityDTO{
		ProductID:         query.ProductID,
		AvailableQuantity: lots.TotalRemaining(),
		LotCount:          len(lots),
		Lots:              ToInventoryLotDTOs(lots),
	}, nil
}

// enqueueLotsCreated writes the creation event to the outbox. Failure to
// enqueue never fails the command; the lots are already committed.
func (s *LotService) enqueueLotsCreated(ctx context.Context, cmd CreateLotsCommand, created []*domain.InventoryLot) {
	lotIDs := make([]string, 0, len(created))
	totalUnits := 0
	for _, lot := range created {
		lotIDs = append(lotIDs, lot.ID)
		totalUnits += lot.Quantity
	}

	event := domain.LotsCreatedEvent{
		PurchaseRunID: cmd.PurchaseRunID,
		Supplier:      cmd.Supplier,
		LotIDs:        lotIDs,
		TotalUnits:    totalUnits,
		CreatedAt:     time.Now().UTC(),
	}

	outboxEvent, err := outbox.NewOutboxEvent(cmd.PurchaseRunID, "purchase_run", kafka.Topics.InventoryEvents, event)
	if err == nil {
		err = s.outbox.Save(ctx, outboxEvent)
	}
	if err != nil {
		s.logger.Error("Failed to enqueue lots created event", "purchaseRunId", cmd.PurchaseRunID, "error", err)
	}
}

func (s *LotService) storeError(ctx context.Context, op, subject string, err error) error {
	s.logger.WithContext(ctx).Error("Lot store operation failed", "operation", op, "subject", subject, "error", err)
	if stderrors.Is(err, domain.ErrStoreUnavailable) {
		return errors.ErrStoreUnavailable().Wrap(err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
