package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ProductProgress is the per-product slice of a purchase run report
type ProductProgress struct {
	ProductID         string  `json:"productId"`
	ProductName       string  `json:"productName"`
	ProductCode       string  `json:"productCode,omitempty"`
	QuantityPurchased int     `json:"quantityPurchased"`
	QuantitySold      int     `json:"quantitySold"`
	QuantityRemaining int     `json:"quantityRemaining"`
	ProgressPercent   float64 `json:"progressPercent"`
	Revenue           Money   `json:"revenue"`
	CostOfGoodsSold   Money   `json:"costOfGoodsSold"`
	Profit            Money   `json:"profit"`
}

// FinancialSummary aggregates realized and expected economics for a run.
// Expected figures fall back to cost price for items without an intended
// selling price; ExpectedPricingComplete reports whether any fallback was
// needed.
type FinancialSummary struct {
	TotalCost               Money   `json:"totalCost"`
	TotalRevenue            Money   `json:"totalRevenue"`
	TotalProfit             Money   `json:"totalProfit"`
	ExpectedRevenue         Money   `json:"expectedRevenue"`
	ExpectedProfit          Money   `json:"expectedProfit"`
	ExpectedPricingComplete bool    `json:"expectedPricingComplete"`
	ROIPercent              float64 `json:"roiPercent"`
	ExpectedROIPercent      float64 `json:"expectedRoiPercent"`
}

// TimeSummary captures the velocity of a purchase run. Pointer fields are nil
// until the underlying milestone has happened.
type TimeSummary struct {
	PurchaseDate             time.Time  `json:"purchaseDate"`
	DaysSincePurchase        int        `json:"daysSincePurchase"`
	FirstSaleDate            *time.Time `json:"firstSaleDate,omitempty"`
	LastSaleDate             *time.Time `json:"lastSaleDate,omitempty"`
	DaysToFirstSale          *int       `json:"daysToFirstSale,omitempty"`
	DaysToTurnover           *int       `json:"daysToTurnover,omitempty"`
	AverageDaysToSell        *float64   `json:"averageDaysToSell,omitempty"`
	TurnoverRatePerDay       float64    `json:"turnoverRatePerDay"`
	DaysOfInventoryRemaining *int       `json:"daysOfInventoryRemaining,omitempty"`
}

// PurchaseRunProgress is the full sell-through report for one purchase run
type PurchaseRunProgress struct {
	PurchaseRunID     string            `json:"purchaseRunId"`
	Supplier          string            `json:"supplier,omitempty"`
	QuantityPurchased int               `json:"quantityPurchased"`
	QuantitySold      int               `json:"quantitySold"`
	QuantityRemaining int               `json:"quantityRemaining"`
	ProgressPercent   float64           `json:"progressPercent"`
	Financials        FinancialSummary  `json:"financials"`
	Timing            TimeSummary       `json:"timing"`
	Products          []ProductProgress `json:"products"`
}

// BuildPurchaseRunProgress computes the sell-through report for a run from
// its lots and the sale lines that drew from them. The run itself may be nil
// when the purchase record was not retained; expected pricing then falls back
// to cost. The computation is a pure read: calling it twice with the same
// inputs yields the same report.
func BuildPurchaseRunProgress(purchaseRunID string, lots Lots, sales []*SaleLine, run *PurchaseRun, now time.Time) (*PurchaseRunProgress, error) {
	if len(lots) == 0 {
		return nil, ErrPurchaseRunNotFound
	}

	currency := lots[0].CostPrice.Currency()
	purchaseDate := lots.EarliestPurchase()

	progress := &PurchaseRunProgress{
		PurchaseRunID:     purchaseRunID,
		QuantityPurchased: lots.TotalQuantity(),
		QuantityRemaining: lots.TotalRemaining(),
	}
	progress.QuantitySold = progress.QuantityPurchased - progress.QuantityRemaining
	if progress.QuantityPurchased > 0 {
		progress.ProgressPercent = float64(progress.QuantitySold) / float64(progress.QuantityPurchased) * 100
	}
	if run != nil {
		progress.Supplier = run.Supplier
	} else {
		progress.Supplier = lots[0].Supplier
	}

	perProduct, err := buildProductProgress(lots, sales, purchaseRunID, currency)
	if err != nil {
		return nil, err
	}

	totalCost := ZeroMoney(currency)
	totalRevenue := ZeroMoney(currency)
	realizedCost := ZeroMoney(currency)
	for _, lot := range lots {
		var err error
		totalCost, err = totalCost.Add(lot.TotalCost())
		if err != nil {
			return nil, err
		}
	}
	for _, p := range perProduct {
		var err error
		totalRevenue, err = totalRevenue.Add(p.Revenue)
		if err != nil {
			return nil, err
		}
		realizedCost, err = realizedCost.Add(p.CostOfGoodsSold)
		if err != nil {
			return nil, err
		}
	}

	totalProfit, err := totalRevenue.Subtract(realizedCost)
	if err != nil {
		return nil, err
	}

	expectedRevenue, pricingComplete, err := expectedRevenueForRun(lots, run, currency)
	if err != nil {
		return nil, err
	}
	expectedProfit, err := expectedRevenue.Subtract(totalCost)
	if err != nil {
		return nil, err
	}

	progress.Financials = FinancialSummary{
		TotalCost:               totalCost,
		TotalRevenue:            totalRevenue,
		TotalProfit:             totalProfit,
		ExpectedRevenue:         expectedRevenue,
		ExpectedProfit:          expectedProfit,
		ExpectedPricingComplete: pricingComplete,
	}
	if !totalCost.IsZero() {
		costF, _ := totalCost.Amount().Float64()
		profitF, _ := totalProfit.Amount().Float64()
		expProfitF, _ := expectedProfit.Amount().Float64()
		progress.Financials.ROIPercent = profitF / costF * 100
		progress.Financials.ExpectedROIPercent = expProfitF / costF * 100
	}

	progress.Timing = buildTimeSummary(purchaseDate, sales, purchaseRunID, progress.QuantitySold, progress.QuantityRemaining, now)
	progress.Products = perProduct
	return progress, nil
}

func buildProductProgress(lots Lots, sales []*SaleLine, purchaseRunID, currency string) ([]ProductProgress, error) {
	byProduct := make(map[string]*ProductProgress)
	for _, lot := range lots {
		p, ok := byProduct[lot.ProductID]
		if !ok {
			p = &ProductProgress{
				ProductID:       lot.ProductID,
				ProductName:     lot.ProductName,
				ProductCode:     lot.ProductCode,
				Revenue:         ZeroMoney(currency),
				CostOfGoodsSold: ZeroMoney(currency),
				Profit:          ZeroMoney(currency),
			}
			byProduct[lot.ProductID] = p
		}
		p.QuantityPurchased += lot.Quantity
		p.QuantityRemaining += lot.RemainingQuantity
	}

	for _, sale := range sales {
		p, ok := byProduct[sale.ProductID]
		if !ok {
			continue
		}
		for _, alloc := range sale.AllocationsForRun(purchaseRunID) {
			revenue, err := p.Revenue.Add(sale.UnitPrice.MultiplyInt(alloc.Quantity))
			if err != nil {
				return nil, fmt.Errorf("sale %s line %s: %w", sale.SaleID, sale.LineID, err)
			}
			cost, err := p.CostOfGoodsSold.Add(alloc.CostPrice.MultiplyInt(alloc.Quantity))
			if err != nil {
				return nil, fmt.Errorf("sale %s line %s: %w", sale.SaleID, sale.LineID, err)
			}
			p.Revenue = revenue
			p.CostOfGoodsSold = cost
		}
	}

	result := make([]ProductProgress, 0, len(byProduct))
	for _, p := range byProduct {
		p.QuantitySold = p.QuantityPurchased - p.QuantityRemaining
		if p.QuantityPurchased > 0 {
			p.ProgressPercent = float64(p.QuantitySold) / float64(p.QuantityPurchased) * 100
		}
		profit, err := p.Revenue.Subtract(p.CostOfGoodsSold)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.ProductID, err)
		}
		p.Profit = profit
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProductID < result[j].ProductID })
	return result, nil
}

// expectedRevenueForRun prices each lot at the run item's intended selling
// price when one was recorded, otherwise at cost.
func expectedRevenueForRun(lots Lots, run *PurchaseRun, currency string) (Money, bool, error) {
	intended := make(map[string]*Money)
	if run != nil {
		for _, item := range run.Items {
			if item.IntendedSellingPrice != nil {
				price := *item.IntendedSellingPrice
				intended[item.ProductID] = &price
			}
		}
	}

	expected := ZeroMoney(currency)
	complete := true
	for _, lot := range lots {
		price := lot.CostPrice
		if p, ok := intended[lot.ProductID]; ok {
			price = *p
		} else {
			complete = false
		}
		sum, err := expected.Add(price.MultiplyInt(lot.Quantity))
		if err != nil {
			return Money{}, false, err
		}
		expected = sum
	}
	return expected, complete, nil
}

func buildTimeSummary(purchaseDate time.Time, sales []*SaleLine, purchaseRunID string, sold, remaining int, now time.Time) TimeSummary {
	summary := TimeSummary{
		PurchaseDate:      purchaseDate,
		DaysSincePurchase: daysBetween(purchaseDate, now),
	}

	var first, last *time.Time
	var weightedDays float64
	var weightedQty int
	for _, sale := range sales {
		allocs := sale.AllocationsForRun(purchaseRunID)
		if len(allocs) == 0 {
			continue
		}
		soldAt := sale.SoldAt
		if first == nil || soldAt.Before(*first) {
			t := soldAt
			first = &t
		}
		if last == nil || soldAt.After(*last) {
			t := soldAt
			last = &t
		}
		qty := 0
		for _, a := range allocs {
			qty += a.Quantity
		}
		weightedDays += float64(daysBetween(purchaseDate, soldAt)) * float64(qty)
		weightedQty += qty
	}

	summary.FirstSaleDate = first
	summary.LastSaleDate = last
	if first != nil {
		d := daysBetween(purchaseDate, *first)
		summary.DaysToFirstSale = &d
	}
	if weightedQty > 0 {
		avg := weightedDays / float64(weightedQty)
		summary.AverageDaysToSell = &avg
	}
	if remaining == 0 && last != nil {
		d := daysBetween(purchaseDate, *last)
		summary.DaysToTurnover = &d
	}

	elapsed := summary.DaysSincePurchase
	if elapsed < 1 {
		elapsed = 1
	}
	summary.TurnoverRatePerDay = float64(sold) / float64(elapsed)
	if summary.TurnoverRatePerDay > 0 {
		// zero for a depleted run
		d := int(math.Ceil(float64(remaining) / summary.TurnoverRatePerDay))
		summary.DaysOfInventoryRemaining = &d
	}
	return summary
}

func daysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(math.Floor(to.Sub(from).Hours() / 24))
}
