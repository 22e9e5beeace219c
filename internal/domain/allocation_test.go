package domain

import (
	"errors"
	"testing"
	"time"
)

func fifoLot(t *testing.T, id string, day int, qty, remaining int, cost string) *InventoryLot {
	t.Helper()
	return &InventoryLot{
		ID:                id,
		ProductID:         "prod-1",
		ProductName:       "Widget",
		PurchaseRunID:     "run-" + id,
		PurchaseTimestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Quantity:          qty,
		RemainingQuantity: remaining,
		CostPrice:         mustMoney(t, cost, "USD"),
		Revision:          1,
	}
}

func TestBuildDrawPlan(t *testing.T) {
	tests := []struct {
		name      string
		lots      []*InventoryLot
		quantity  int
		wantErr   error
		wantDraws map[string]int
	}{
		{
			name: "single lot covers request",
			lots: []*InventoryLot{
				fifoLot(t, "a", 0, 10, 10, "2.00"),
			},
			quantity:  4,
			wantDraws: map[string]int{"a": 4},
		},
		{
			name: "straddles lots oldest first",
			lots: []*InventoryLot{
				fifoLot(t, "b", 1, 5, 5, "2.50"),
				fifoLot(t, "a", 0, 10, 10, "2.00"),
			},
			quantity:  12,
			wantDraws: map[string]int{"a": 10, "b": 2},
		},
		{
			name: "skips depleted lots",
			lots: []*InventoryLot{
				fifoLot(t, "a", 0, 10, 0, "2.00"),
				fifoLot(t, "b", 1, 5, 5, "2.50"),
			},
			quantity:  3,
			wantDraws: map[string]int{"b": 3},
		},
		{
			name: "exact exhaustion of all stock",
			lots: []*InventoryLot{
				fifoLot(t, "a", 0, 10, 2, "2.00"),
				fifoLot(t, "b", 1, 5, 3, "2.50"),
			},
			quantity:  5,
			wantDraws: map[string]int{"a": 2, "b": 3},
		},
		{
			name: "insufficient inventory",
			lots: []*InventoryLot{
				fifoLot(t, "a", 0, 10, 2, "2.00"),
			},
			quantity: 3,
			wantErr:  ErrInsufficientInventory,
		},
		{
			name:     "no lots at all",
			lots:     nil,
			quantity: 1,
			wantErr:  ErrInsufficientInventory,
		},
		{
			name:     "zero quantity",
			quantity: 0,
			wantErr:  ErrInvalidQuantity,
		},
		{
			name:     "negative quantity",
			quantity: -2,
			wantErr:  ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := BuildDrawPlan("prod-1", tt.quantity, tt.lots)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildDrawPlan: %v", err)
			}

			if got := plan.TotalQuantity(); got != tt.quantity {
				t.Errorf("planned total = %d, want %d", got, tt.quantity)
			}
			if len(plan.Draws) != len(tt.wantDraws) {
				t.Fatalf("draw count = %d, want %d", len(plan.Draws), len(tt.wantDraws))
			}
			for _, draw := range plan.Draws {
				if want := tt.wantDraws[draw.Lot.ID]; draw.Quantity != want {
					t.Errorf("draw from %s = %d, want %d", draw.Lot.ID, draw.Quantity, want)
				}
			}
		})
	}
}

func TestBuildDrawPlanDoesNotMutateLots(t *testing.T) {
	lotA := fifoLot(t, "a", 0, 10, 10, "2.00")
	lotB := fifoLot(t, "b", 1, 5, 5, "2.50")

	if _, err := BuildDrawPlan("prod-1", 12, []*InventoryLot{lotA, lotB}); err != nil {
		t.Fatalf("BuildDrawPlan: %v", err)
	}

	// planning is read-only; only ApplyDraws changes quantities
	if lotA.RemainingQuantity != 10 || lotB.RemainingQuantity != 5 {
		t.Errorf("lots mutated during planning: a=%d b=%d", lotA.RemainingQuantity, lotB.RemainingQuantity)
	}
}

func TestDrawPlanTotalCost(t *testing.T) {
	// 10 @ 2.00 + 2 @ 2.50 = 25.00
	lotA := fifoLot(t, "a", 0, 10, 10, "2.00")
	lotB := fifoLot(t, "b", 1, 5, 5, "2.50")

	plan, err := BuildDrawPlan("prod-1", 12, []*InventoryLot{lotB, lotA})
	if err != nil {
		t.Fatalf("BuildDrawPlan: %v", err)
	}

	cost, err := plan.TotalCost()
	if err != nil {
		t.Fatalf("TotalCost: %v", err)
	}
	if got := cost.Amount().StringFixed(2); got != "25.00" {
		t.Errorf("cost = %s, want 25.00", got)
	}
}

func TestDrawPlanRecords(t *testing.T) {
	lotA := fifoLot(t, "a", 0, 10, 10, "2.00")
	lotB := fifoLot(t, "b", 1, 5, 5, "2.50")

	plan, err := BuildDrawPlan("prod-1", 11, []*InventoryLot{lotA, lotB})
	if err != nil {
		t.Fatalf("BuildDrawPlan: %v", err)
	}

	records := plan.Records()
	if len(records) != 2 {
		t.Fatalf("record count = %d, want 2", len(records))
	}
	if records[0].LotID != "a" || records[0].Quantity != 10 {
		t.Errorf("first record = %+v, want lot a qty 10", records[0])
	}
	if records[1].LotID != "b" || records[1].Quantity != 1 {
		t.Errorf("second record = %+v, want lot b qty 1", records[1])
	}
	if records[0].PurchaseRunID != lotA.PurchaseRunID {
		t.Errorf("record run = %s, want %s", records[0].PurchaseRunID, lotA.PurchaseRunID)
	}
	if !records[1].CostPrice.Equals(lotB.CostPrice) {
		t.Errorf("record cost = %s, want %s", records[1].CostPrice, lotB.CostPrice)
	}
}
