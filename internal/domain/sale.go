package domain

import "time"

// SaleLine is the read model of one sold line item. The sale recording flow
// owns the collection; this engine reads it for per-run analytics and writes
// the allocations the caller embeds after a successful FIFO allocation.
type SaleLine struct {
	SaleID      string             `bson:"saleId" json:"saleId"`
	LineID      string             `bson:"lineId" json:"lineId"`
	ProductID   string             `bson:"productId" json:"productId"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	UnitPrice   Money              `bson:"unitPrice" json:"unitPrice"`
	SoldAt      time.Time          `bson:"soldAt" json:"soldAt"`
	Allocations []AllocationRecord `bson:"allocations" json:"allocations"`
}

// AllocationsForRun returns the subset of this line's allocation records that
// drew from the given purchase run.
func (s SaleLine) AllocationsForRun(purchaseRunID string) []AllocationRecord {
	var records []AllocationRecord
	for _, rec := range s.Allocations {
		if rec.PurchaseRunID == purchaseRunID {
			records = append(records, rec)
		}
	}
	return records
}
