package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// InventoryLot is a cost-bearing batch of stock created by one purchase line
// item. Lots are consumed in FIFO order and are never deleted: a depleted lot
// (remainingQuantity 0) is retained for historical costing and analytics.
//
// Field names are normative for interop with documents already in the store.
type InventoryLot struct {
	ID                string    `bson:"id" json:"id"`
	ProductID         string    `bson:"productId" json:"productId"`
	ProductName       string    `bson:"productName" json:"productName"`
	ProductCode       string    `bson:"productCode" json:"productCode"`
	PurchaseRunID     string    `bson:"purchaseRunId" json:"purchaseRunId"`
	PurchaseTimestamp time.Time `bson:"purchaseTimestamp" json:"purchaseTimestamp"`
	Quantity          int       `bson:"quantity" json:"quantity"`
	RemainingQuantity int       `bson:"remainingQuantity" json:"remainingQuantity"`
	CostPrice         Money     `bson:"costPrice" json:"costPrice"`
	Supplier          string    `bson:"supplier,omitempty" json:"supplier,omitempty"`

	// Revision is the optimistic-concurrency token; every write increments it.
	Revision int64 `bson:"revision" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewInventoryLot creates a lot from one purchase line item with
// remainingQuantity equal to the purchased quantity.
func NewInventoryLot(purchaseRunID string, purchasedAt time.Time, item PurchaseItem, supplier string) (*InventoryLot, error) {
	if item.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if item.CostPrice.IsNegative() {
		return nil, ErrNegativeMoney
	}

	now := time.Now().UTC()
	return &InventoryLot{
		ID:                uuid.New().String(),
		ProductID:         item.ProductID,
		ProductName:       item.ProductName,
		ProductCode:       item.ProductCode,
		PurchaseRunID:     purchaseRunID,
		PurchaseTimestamp: purchasedAt.UTC(),
		Quantity:          item.Quantity,
		RemainingQuantity: item.Quantity,
		CostPrice:         item.CostPrice,
		Supplier:          supplier,
		Revision:          1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Consume decrements the remaining quantity. remainingQuantity never goes
// negative; exact exhaustion to zero is valid.
func (l *InventoryLot) Consume(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > l.RemainingQuantity {
		return ErrLotOverdraw
	}

	l.RemainingQuantity -= qty
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// IsDepleted returns true once every unit has been drawn
func (l *InventoryLot) IsDepleted() bool {
	return l.RemainingQuantity == 0
}

// SoldQuantity returns the units already drawn from this lot
func (l *InventoryLot) SoldQuantity() int {
	return l.Quantity - l.RemainingQuantity
}

// TotalCost returns costPrice multiplied by the original purchased quantity
func (l *InventoryLot) TotalCost() Money {
	return l.CostPrice.MultiplyInt(l.Quantity)
}

// LessFIFO reports whether a precedes b in allocation order. The order is
// total: purchaseTimestamp ascending, ties broken by lot id so two lots
// received in the same instant still allocate deterministically.
func LessFIFO(a, b *InventoryLot) bool {
	if !a.PurchaseTimestamp.Equal(b.PurchaseTimestamp) {
		return a.PurchaseTimestamp.Before(b.PurchaseTimestamp)
	}
	return a.ID < b.ID
}

// SortFIFO sorts lots in place into allocation order
func SortFIFO(lots []*InventoryLot) {
	sort.Slice(lots, func(i, j int) bool {
		return LessFIFO(lots[i], lots[j])
	})
}

// Lots is a collection of lots with aggregate helpers
type Lots []*InventoryLot

// TotalQuantity returns the sum of original purchased quantities
func (ls Lots) TotalQuantity() int {
	total := 0
	for _, lot := range ls {
		total += lot.Quantity
	}
	return total
}

// TotalRemaining returns the sum of remaining quantities
func (ls Lots) TotalRemaining() int {
	total := 0
	for _, lot := range ls {
		total += lot.RemainingQuantity
	}
	return total
}

// EarliestPurchase returns the oldest purchase timestamp, or the zero time
// for an empty collection.
func (ls Lots) EarliestPurchase() time.Time {
	var earliest time.Time
	for _, lot := range ls {
		if earliest.IsZero() || lot.PurchaseTimestamp.Before(earliest) {
			earliest = lot.PurchaseTimestamp
		}
	}
	return earliest
}
