package domain

import "fmt"

// AllocationRecord is one draw against a lot. A sale line item carries one
// record per lot it straddled; the quantities always sum to the sold quantity.
type AllocationRecord struct {
	LotID         string `bson:"lotId" json:"lotId"`
	PurchaseRunID string `bson:"purchaseRunId" json:"purchaseRunId"`
	Quantity      int    `bson:"quantity" json:"quantity"`
	CostPrice     Money  `bson:"costPrice" json:"costPrice"`
}

// LotDraw pairs a lot snapshot with the quantity the plan takes from it
type LotDraw struct {
	Lot      *InventoryLot
	Quantity int
}

// DrawPlan is a fully validated, in-memory allocation: which lots to draw
// from and how much. Building the plan performs no writes; the store is only
// touched once the whole request is known to be satisfiable.
type DrawPlan struct {
	ProductID string
	Requested int
	Draws     []LotDraw
}

// BuildDrawPlan walks the available lots in FIFO order and plans draws until
// the request is covered. The input slice is not mutated.
//
// Returns ErrInvalidQuantity for a non-positive request and
// ErrInsufficientInventory when the candidate lots cannot cover it; in both
// cases no plan is produced and nothing has been written anywhere.
func BuildDrawPlan(productID string, quantity int, available []*InventoryLot) (*DrawPlan, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	candidates := make([]*InventoryLot, 0, len(available))
	for _, lot := range available {
		if lot.RemainingQuantity > 0 {
			candidates = append(candidates, lot)
		}
	}
	SortFIFO(candidates)

	plan := &DrawPlan{
		ProductID: productID,
		Requested: quantity,
	}

	stillNeeded := quantity
	for _, lot := range candidates {
		if stillNeeded == 0 {
			break
		}

		draw := lot.RemainingQuantity
		if draw > stillNeeded {
			draw = stillNeeded
		}

		plan.Draws = append(plan.Draws, LotDraw{Lot: lot, Quantity: draw})
		stillNeeded -= draw
	}

	if stillNeeded > 0 {
		available := quantity - stillNeeded
		return nil, fmt.Errorf("%w: requested %d, available %d for product %s",
			ErrInsufficientInventory, quantity, available, productID)
	}

	return plan, nil
}

// Records converts the plan into the allocation records the caller persists
// onto the sale line item.
func (p *DrawPlan) Records() []AllocationRecord {
	records := make([]AllocationRecord, 0, len(p.Draws))
	for _, draw := range p.Draws {
		records = append(records, AllocationRecord{
			LotID:         draw.Lot.ID,
			PurchaseRunID: draw.Lot.PurchaseRunID,
			Quantity:      draw.Quantity,
			CostPrice:     draw.Lot.CostPrice,
		})
	}
	return records
}

// TotalQuantity returns the units the plan draws; equals Requested for any
// plan returned by BuildDrawPlan.
func (p *DrawPlan) TotalQuantity() int {
	total := 0
	for _, draw := range p.Draws {
		total += draw.Quantity
	}
	return total
}

// TotalCost returns the cost basis of the planned draw
func (p *DrawPlan) TotalCost() (Money, error) {
	if len(p.Draws) == 0 {
		return Money{}, ErrInvalidQuantity
	}

	total := ZeroMoney(p.Draws[0].Lot.CostPrice.Currency())
	for _, draw := range p.Draws {
		var err error
		total, err = total.Add(draw.Lot.CostPrice.MultiplyInt(draw.Quantity))
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
