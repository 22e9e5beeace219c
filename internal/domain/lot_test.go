package domain

import (
	"testing"
	"time"
)

func testItem(t *testing.T, productID string, qty int, cost string) PurchaseItem {
	t.Helper()
	return PurchaseItem{
		ProductID:   productID,
		ProductName: "Product " + productID,
		Quantity:    qty,
		CostPrice:   mustMoney(t, cost, "USD"),
	}
}

func TestNewInventoryLot(t *testing.T) {
	purchasedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	lot, err := NewInventoryLot("run-1", purchasedAt, testItem(t, "prod-1", 10, "2.00"), "acme")
	if err != nil {
		t.Fatalf("NewInventoryLot: %v", err)
	}

	if lot.ID == "" {
		t.Error("lot id not assigned")
	}
	if lot.RemainingQuantity != lot.Quantity {
		t.Errorf("remaining = %d, want %d", lot.RemainingQuantity, lot.Quantity)
	}
	if lot.Revision != 1 {
		t.Errorf("revision = %d, want 1", lot.Revision)
	}
	if !lot.PurchaseTimestamp.Equal(purchasedAt) {
		t.Errorf("purchaseTimestamp = %v, want %v", lot.PurchaseTimestamp, purchasedAt)
	}
	if lot.Supplier != "acme" {
		t.Errorf("supplier = %q, want acme", lot.Supplier)
	}
}

func TestNewInventoryLotRejectsBadInput(t *testing.T) {
	purchasedAt := time.Now()

	if _, err := NewInventoryLot("run-1", purchasedAt, testItem(t, "p", 0, "1.00"), ""); err != ErrInvalidQuantity {
		t.Errorf("zero quantity error = %v, want ErrInvalidQuantity", err)
	}
	if _, err := NewInventoryLot("run-1", purchasedAt, testItem(t, "p", -3, "1.00"), ""); err != ErrInvalidQuantity {
		t.Errorf("negative quantity error = %v, want ErrInvalidQuantity", err)
	}
}

func TestLotConsume(t *testing.T) {
	tests := []struct {
		name          string
		remaining     int
		consume       int
		wantErr       error
		wantRemaining int
	}{
		{name: "partial draw", remaining: 10, consume: 4, wantRemaining: 6},
		{name: "exact exhaustion", remaining: 5, consume: 5, wantRemaining: 0},
		{name: "overdraw", remaining: 3, consume: 4, wantErr: ErrLotOverdraw, wantRemaining: 3},
		{name: "zero quantity", remaining: 3, consume: 0, wantErr: ErrInvalidQuantity, wantRemaining: 3},
		{name: "negative quantity", remaining: 3, consume: -1, wantErr: ErrInvalidQuantity, wantRemaining: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := &InventoryLot{Quantity: 10, RemainingQuantity: tt.remaining}

			err := lot.Consume(tt.consume)
			if err != tt.wantErr {
				t.Fatalf("Consume(%d) error = %v, want %v", tt.consume, err, tt.wantErr)
			}
			if lot.RemainingQuantity != tt.wantRemaining {
				t.Errorf("remaining = %d, want %d", lot.RemainingQuantity, tt.wantRemaining)
			}
		})
	}
}

func TestSortFIFO(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
	}

	lots := []*InventoryLot{
		{ID: "lot-c", PurchaseTimestamp: day(2)},
		{ID: "lot-b", PurchaseTimestamp: day(0)},
		{ID: "lot-a", PurchaseTimestamp: day(0)},
		{ID: "lot-d", PurchaseTimestamp: day(1)},
	}

	SortFIFO(lots)

	// same-instant lots tie-break on id so the order is total
	want := []string{"lot-a", "lot-b", "lot-d", "lot-c"}
	for i, id := range want {
		if lots[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, lots[i].ID, id)
		}
	}
}

func TestLotsAggregates(t *testing.T) {
	day0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	lots := Lots{
		{Quantity: 10, RemainingQuantity: 3, PurchaseTimestamp: day0.AddDate(0, 0, 1)},
		{Quantity: 5, RemainingQuantity: 5, PurchaseTimestamp: day0},
	}

	if got := lots.TotalQuantity(); got != 15 {
		t.Errorf("TotalQuantity = %d, want 15", got)
	}
	if got := lots.TotalRemaining(); got != 8 {
		t.Errorf("TotalRemaining = %d, want 8", got)
	}
	if got := lots.EarliestPurchase(); !got.Equal(day0) {
		t.Errorf("EarliestPurchase = %v, want %v", got, day0)
	}
}
