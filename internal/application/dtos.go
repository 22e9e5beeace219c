package application

import "time"

// MoneyDTO is the wire representation of a monetary amount
type MoneyDTO struct {
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency" binding:"required"`
	ExchangeRate float64 `json:"exchangeRate,omitempty"`
}

// InventoryLotDTO is the API representation of an inventory lot
type InventoryLotDTO struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"productId"`
	ProductName       string    `json:"productName"`
	ProductCode       string    `json:"productCode,omitempty"`
	PurchaseRunID     string    `json:"purchaseRunId"`
	PurchaseTimestamp time.Time `json:"purchaseTimestamp"`
	Quantity          int       `json:"quantity"`
	RemainingQuantity int       `json:"remainingQuantity"`
	CostPrice         MoneyDTO  `json:"costPrice"`
	Supplier          string    `json:"supplier,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CreateLotsResultDTO reports which line items produced lots and which were
// skipped as already processed.
type CreateLotsResultDTO struct {
	PurchaseRunID     string            `json:"purchaseRunId"`
	Created           []InventoryLotDTO `json:"created"`
	SkippedProductIDs []string          `json:"skippedProductIds,omitempty"`
}

// AllocationRecordDTO is one draw of an allocation result
type AllocationRecordDTO struct {
	LotID         string   `json:"lotId"`
	PurchaseRunID string   `json:"purchaseRunId"`
	Quantity      int      `json:"quantity"`
	CostPrice     MoneyDTO `json:"costPrice"`
}

// AllocationResultDTO is the outcome of a successful FIFO allocation
type AllocationResultDTO struct {
	ProductID   string                `json:"productId"`
	Quantity    int                   `json:"quantity"`
	TotalCost   MoneyDTO              `json:"totalCost"`
	Allocations []AllocationRecordDTO `json:"allocations"`
	AllocatedAt time.Time             `json:"allocatedAt"`
}

// ProductAvailabilityDTO summarizes sellable stock for one product
type ProductAvailabilityDTO struct {
	ProductID         string            `json:"productId"`
	AvailableQuantity int               `json:"availableQuantity"`
	LotCount          int               `json:"lotCount"`
	Lots              []InventoryLotDTO `json:"lots"`
}
