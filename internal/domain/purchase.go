package domain

import "time"

// PurchaseItem is one line of a purchase: the input to lot creation and the
// pricing source for expected-revenue analytics.
type PurchaseItem struct {
	ProductID   string `bson:"productId" json:"productId"`
	ProductName string `bson:"productName" json:"productName"`
	ProductCode string `bson:"productCode" json:"productCode"`
	Quantity    int    `bson:"quantity" json:"quantity"`
	CostPrice   Money  `bson:"costPrice" json:"costPrice"`

	// IntendedSellingPrice is nil when the buyer never set one. The nil case
	// is deliberately distinct from a price equal to cost: a genuine
	// zero-margin purchase must not look the same as an unpriced one.
	IntendedSellingPrice *Money `bson:"intendedSellingPrice,omitempty" json:"intendedSellingPrice,omitempty"`
}

// PurchaseRun is the read model of one completed purchase transaction. The
// engine never writes this collection; the purchasing flow owns it.
type PurchaseRun struct {
	ID          string         `bson:"id" json:"id"`
	PurchasedAt time.Time      `bson:"purchasedAt" json:"purchasedAt"`
	Supplier    string         `bson:"supplier,omitempty" json:"supplier,omitempty"`
	Items       []PurchaseItem `bson:"items" json:"items"`
}
