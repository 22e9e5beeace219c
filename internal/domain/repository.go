package domain

import (
	"context"
	"time"
)

// LotRepository persists inventory lots. Find methods return (nil, nil) when
// nothing matches; errors are reserved for store failures.
type LotRepository interface {
	Insert(ctx context.Context, lots []*InventoryLot) error
	FindByID(ctx context.Context, id string) (*InventoryLot, error)
	FindByPurchaseRun(ctx context.Context, purchaseRunID string) (Lots, error)
	FindByProduct(ctx context.Context, productID string) (Lots, error)
	// FindAvailableByProduct returns only lots with remaining stock, already
	// in FIFO order.
	FindAvailableByProduct(ctx context.Context, productID string) (Lots, error)

	// ApplyDraws commits a draw plan atomically. Every lot in the plan is
	// decremented with a revision check; any conflict aborts the whole
	// write with ErrRevisionConflict and no lot is modified.
	ApplyDraws(ctx context.Context, plan *DrawPlan, allocatedAt time.Time) error
}

// SaleLineReader reads the sale lines whose allocations drew from a run
type SaleLineReader interface {
	FindByPurchaseRun(ctx context.Context, purchaseRunID string) ([]*SaleLine, error)
}

// PurchaseRunReader reads purchase run records for expected-pricing lookups
type PurchaseRunReader interface {
	FindByID(ctx context.Context, id string) (*PurchaseRun, error)
}
