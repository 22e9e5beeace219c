package domain

import (
	"errors"
	"testing"
	"time"
)

// progressFixture models a run of two lots of the same product sold down in
// two sales: 12 units on day 3 (drawing 10 from the older lot and 2 from the
// newer) and 3 units on day 5 closing the run out.
type progressFixture struct {
	runID string
	day0  time.Time
	lots  Lots
	sales []*SaleLine
	run   *PurchaseRun
}

func newProgressFixture(t *testing.T) *progressFixture {
	t.Helper()
	day0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return day0.AddDate(0, 0, d) }

	costA := mustMoney(t, "2.00", "USD")
	costB := mustMoney(t, "2.50", "USD")
	sellPrice := mustMoney(t, "5.00", "USD")

	f := &progressFixture{runID: "run-1", day0: day0}
	f.lots = Lots{
		{
			ID: "lot-a", ProductID: "prod-1", ProductName: "Widget",
			PurchaseRunID: f.runID, PurchaseTimestamp: day(0),
			Quantity: 10, RemainingQuantity: 0, CostPrice: costA, Supplier: "acme",
		},
		{
			ID: "lot-b", ProductID: "prod-1", ProductName: "Widget",
			PurchaseRunID: f.runID, PurchaseTimestamp: day(1),
			Quantity: 5, RemainingQuantity: 0, CostPrice: costB, Supplier: "acme",
		},
	}
	f.sales = []*SaleLine{
		{
			SaleID: "sale-1", LineID: "line-1", ProductID: "prod-1",
			Quantity: 12, UnitPrice: sellPrice, SoldAt: day(3),
			Allocations: []AllocationRecord{
				{LotID: "lot-a", PurchaseRunID: f.runID, Quantity: 10, CostPrice: costA},
				{LotID: "lot-b", PurchaseRunID: f.runID, Quantity: 2, CostPrice: costB},
			},
		},
		{
			SaleID: "sale-2", LineID: "line-1", ProductID: "prod-1",
			Quantity: 3, UnitPrice: sellPrice, SoldAt: day(5),
			Allocations: []AllocationRecord{
				{LotID: "lot-b", PurchaseRunID: f.runID, Quantity: 3, CostPrice: costB},
			},
		},
	}
	intendedA := sellPrice
	f.run = &PurchaseRun{
		ID:          f.runID,
		PurchasedAt: day(0),
		Supplier:    "acme",
		Items: []PurchaseItem{
			{ProductID: "prod-1", ProductName: "Widget", Quantity: 15, CostPrice: costA, IntendedSellingPrice: &intendedA},
		},
	}
	return f
}

func TestBuildPurchaseRunProgressFullySold(t *testing.T) {
	f := newProgressFixture(t)
	now := f.day0.AddDate(0, 0, 7)

	progress, err := BuildPurchaseRunProgress(f.runID, f.lots, f.sales, f.run, now)
	if err != nil {
		t.Fatalf("BuildPurchaseRunProgress: %v", err)
	}

	if progress.QuantityPurchased != 15 || progress.QuantitySold != 15 || progress.QuantityRemaining != 0 {
		t.Errorf("quantities = %d/%d/%d, want 15/15/0",
			progress.QuantityPurchased, progress.QuantitySold, progress.QuantityRemaining)
	}
	if progress.ProgressPercent != 100 {
		t.Errorf("progress = %.2f, want 100", progress.ProgressPercent)
	}
	if progress.Supplier != "acme" {
		t.Errorf("supplier = %q, want acme", progress.Supplier)
	}

	fin := progress.Financials
	// 10 @ 2.00 + 5 @ 2.50 = 32.50 cost; 15 @ 5.00 = 75.00 revenue
	if got := fin.TotalCost.Amount().StringFixed(2); got != "32.50" {
		t.Errorf("totalCost = %s, want 32.50", got)
	}
	if got := fin.TotalRevenue.Amount().StringFixed(2); got != "75.00" {
		t.Errorf("totalRevenue = %s, want 75.00", got)
	}
	if got := fin.TotalProfit.Amount().StringFixed(2); got != "42.50" {
		t.Errorf("totalProfit = %s, want 42.50", got)
	}
	if !fin.ExpectedPricingComplete {
		t.Error("expectedPricingComplete = false, want true")
	}
	if got := fin.ExpectedRevenue.Amount().StringFixed(2); got != "75.00" {
		t.Errorf("expectedRevenue = %s, want 75.00", got)
	}

	timing := progress.Timing
	if timing.DaysToFirstSale == nil || *timing.DaysToFirstSale != 3 {
		t.Errorf("daysToFirstSale = %v, want 3", timing.DaysToFirstSale)
	}
	if timing.DaysToTurnover == nil || *timing.DaysToTurnover != 5 {
		t.Errorf("daysToTurnover = %v, want 5", timing.DaysToTurnover)
	}
	if timing.DaysOfInventoryRemaining == nil || *timing.DaysOfInventoryRemaining != 0 {
		t.Errorf("daysOfInventoryRemaining = %v, want 0 for a sold-out run", timing.DaysOfInventoryRemaining)
	}
}

func TestBuildPurchaseRunProgressPartiallySold(t *testing.T) {
	f := newProgressFixture(t)
	// rewind: only the first sale happened, lot-b keeps 3 units
	f.lots[1].RemainingQuantity = 3
	f.sales = f.sales[:1]
	now := f.day0.AddDate(0, 0, 4)

	progress, err := BuildPurchaseRunProgress(f.runID, f.lots, f.sales, f.run, now)
	if err != nil {
		t.Fatalf("BuildPurchaseRunProgress: %v", err)
	}

	if progress.QuantitySold != 12 || progress.QuantityRemaining != 3 {
		t.Errorf("sold/remaining = %d/%d, want 12/3", progress.QuantitySold, progress.QuantityRemaining)
	}
	if progress.ProgressPercent != 80 {
		t.Errorf("progress = %.2f, want 80", progress.ProgressPercent)
	}

	fin := progress.Financials
	// 10 @ 2.00 + 2 @ 2.50 = 25.00 realized cost; 12 @ 5.00 = 60.00 revenue
	if got := fin.TotalRevenue.Amount().StringFixed(2); got != "60.00" {
		t.Errorf("revenue = %s, want 60.00", got)
	}
	if got := fin.TotalProfit.Amount().StringFixed(2); got != "35.00" {
		t.Errorf("profit = %s, want 35.00", got)
	}

	if len(progress.Products) != 1 {
		t.Fatalf("product count = %d, want 1", len(progress.Products))
	}
	product := progress.Products[0]
	if got := product.CostOfGoodsSold.Amount().StringFixed(2); got != "25.00" {
		t.Errorf("cogs = %s, want 25.00", got)
	}

	timing := progress.Timing
	if timing.DaysToTurnover != nil {
		t.Errorf("daysToTurnover = %v, want nil while stock remains", timing.DaysToTurnover)
	}
	// 12 sold over 4 days = 3/day; 3 remaining at that pace is 1 more day
	if timing.TurnoverRatePerDay != 3 {
		t.Errorf("turnoverRate = %.2f, want 3", timing.TurnoverRatePerDay)
	}
	if timing.DaysOfInventoryRemaining == nil || *timing.DaysOfInventoryRemaining != 1 {
		t.Errorf("daysOfInventoryRemaining = %v, want 1", timing.DaysOfInventoryRemaining)
	}
}

func TestBuildPurchaseRunProgressIsIdempotent(t *testing.T) {
	f := newProgressFixture(t)
	now := f.day0.AddDate(0, 0, 7)

	first, err := BuildPurchaseRunProgress(f.runID, f.lots, f.sales, f.run, now)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := BuildPurchaseRunProgress(f.runID, f.lots, f.sales, f.run, now)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if first.QuantitySold != second.QuantitySold ||
		first.ProgressPercent != second.ProgressPercent ||
		!first.Financials.TotalProfit.Equals(second.Financials.TotalProfit) {
		t.Error("repeated computation produced different results")
	}
	if f.lots.TotalRemaining() != 0 {
		t.Error("analytics mutated lot state")
	}
}

func TestBuildPurchaseRunProgressExpectedPricingFallback(t *testing.T) {
	f := newProgressFixture(t)
	now := f.day0.AddDate(0, 0, 7)

	tests := []struct {
		name string
		run  *PurchaseRun
	}{
		{name: "run record missing", run: nil},
		{
			name: "item without intended price",
			run: &PurchaseRun{
				ID:          f.runID,
				PurchasedAt: f.day0,
				Items: []PurchaseItem{
					{ProductID: "prod-1", Quantity: 15, CostPrice: mustMoney(t, "2.00", "USD")},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress, err := BuildPurchaseRunProgress(f.runID, f.lots, f.sales, tt.run, now)
			if err != nil {
				t.Fatalf("BuildPurchaseRunProgress: %v", err)
			}

			fin := progress.Financials
			if fin.ExpectedPricingComplete {
				t.Error("expectedPricingComplete = true, want false when prices are missing")
			}
			// fallback prices every unit at cost so expected revenue equals total cost
			if !fin.ExpectedRevenue.Equals(fin.TotalCost) {
				t.Errorf("expectedRevenue = %s, want cost fallback %s", fin.ExpectedRevenue, fin.TotalCost)
			}
			if !fin.ExpectedProfit.IsZero() {
				t.Errorf("expectedProfit = %s, want 0.00", fin.ExpectedProfit)
			}
		})
	}
}

func TestBuildPurchaseRunProgressRejectsMixedCurrencies(t *testing.T) {
	f := newProgressFixture(t)
	now := f.day0.AddDate(0, 0, 7)

	// a sale priced in another currency must fail the whole report rather
	// than contribute zero revenue against a real cost
	eur, err := NewMoney(f.sales[0].UnitPrice.Amount(), "EUR")
	if err != nil {
		t.Fatalf("NewMoney: %v", err)
	}
	f.sales[0].UnitPrice = eur

	_, err = BuildPurchaseRunProgress(f.runID, f.lots, f.sales, f.run, now)
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("error = %v, want ErrCurrencyMismatch", err)
	}
}

func TestBuildPurchaseRunProgressUnknownRun(t *testing.T) {
	_, err := BuildPurchaseRunProgress("no-such-run", nil, nil, nil, time.Now())
	if err != ErrPurchaseRunNotFound {
		t.Errorf("error = %v, want ErrPurchaseRunNotFound", err)
	}
}
