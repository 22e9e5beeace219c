package domain

import "time"

// Event types carried on the inventory topic
const (
	EventTypeLotsCreated    = "inventory.lots.created"
	EventTypeStockAllocated = "inventory.stock.allocated"
)

// LotsCreatedEvent is emitted after lots for a purchase run are persisted
type LotsCreatedEvent struct {
	PurchaseRunID string    `json:"purchaseRunId"`
	Supplier      string    `json:"supplier,omitempty"`
	LotIDs        []string  `json:"lotIds"`
	TotalUnits    int       `json:"totalUnits"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (e LotsCreatedEvent) EventType() string { return EventTypeLotsCreated }

// StockAllocatedEvent is emitted after an allocation commits
type StockAllocatedEvent struct {
	ProductID   string             `json:"productId"`
	Quantity    int                `json:"quantity"`
	Draws       []AllocationRecord `json:"draws"`
	AllocatedAt time.Time          `json:"allocatedAt"`
}

func (e StockAllocatedEvent) EventType() string { return EventTypeStockAllocated }
