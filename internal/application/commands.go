package application

import "time"

// CreateLotsCommand creates one inventory lot per line item of a completed
// purchase. Line items whose (purchaseRunId, productId) pair already has a
// lot are skipped, so redelivery of the same purchase is safe.
type CreateLotsCommand struct {
	PurchaseRunID string
	PurchasedAt   time.Time
	Supplier      string
	Items         []PurchaseItemInput
}

// PurchaseItemInput is one line item of a purchase
type PurchaseItemInput struct {
	ProductID            string
	ProductName          string
	ProductCode          string
	Quantity             int
	CostPrice            MoneyDTO
	IntendedSellingPrice *MoneyDTO
}

// AllocateCommand requests a FIFO draw of stock for one sold line item
type AllocateCommand struct {
	ProductID string
	Quantity  int
	SaleID    string
	LineID    string
}

// GetLotQuery fetches a single lot by id
type GetLotQuery struct {
	LotID string
}

// ListLotsByProductQuery lists lots of one product, optionally only those
// with remaining stock.
type ListLotsByProductQuery struct {
	ProductID     string
	AvailableOnly bool
}

// ListLotsByPurchaseRunQuery lists the lots created by one purchase run
type ListLotsByPurchaseRunQuery struct {
	PurchaseRunID string
}

// GetAvailabilityQuery fetches sellable stock for one product
type GetAvailabilityQuery struct {
	ProductID string
}

// GetPurchaseRunProgressQuery computes the sell-through report for a run
type GetPurchaseRunProgressQuery struct {
	PurchaseRunID string
}
