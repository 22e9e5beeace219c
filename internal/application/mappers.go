package application

import (
	"github.com/shopspring/decimal"

	"github.com/retail-platform/inventory-engine/internal/domain"
)

// ToMoney converts a wire amount into a domain Money value. A zero or
// missing exchange rate means the amount is in the base currency.
func ToMoney(dto MoneyDTO) (domain.Money, error) {
	rate := decimal.NewFromFloat(dto.ExchangeRate)
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	return domain.NewMoneyWithRate(decimal.NewFromFloat(dto.Amount), dto.Currency, rate)
}

// ToMoneyDTO converts a domain Money value into its wire representation
func ToMoneyDTO(m domain.Money) MoneyDTO {
	return MoneyDTO{
		Amount:       m.Amount().InexactFloat64(),
		Currency:     m.Currency(),
		ExchangeRate: m.ExchangeRate().InexactFloat64(),
	}
}

// ToPurchaseItem converts one wire line item into its domain form
func ToPurchaseItem(input PurchaseItemInput) (domain.PurchaseItem, error) {
	cost, err := ToMoney(input.CostPrice)
	if err != nil {
		return domain.PurchaseItem{}, err
	}

	item := domain.PurchaseItem{
		ProductID:   input.ProductID,
		ProductName: input.ProductName,
		ProductCode: input.ProductCode,
		Quantity:    input.Quantity,
		CostPrice:   cost,
	}
	if input.IntendedSellingPrice != nil {
		price, err := ToMoney(*input.IntendedSellingPrice)
		if err != nil {
			return domain.PurchaseItem{}, err
		}
		item.IntendedSellingPrice = &price
	}
	return item, nil
}

// ToInventoryLotDTO converts a domain lot into its API representation
func ToInventoryLotDTO(lot *domain.InventoryLot) InventoryLotDTO {
	return InventoryLotDTO{
		ID:                lot.ID,
		ProductID:         lot.ProductID,
		ProductName:       lot.ProductName,
		ProductCode:       lot.ProductCode,
		PurchaseRunID:     lot.PurchaseRunID,
		PurchaseTimestamp: lot.PurchaseTimestamp,
		Quantity:          lot.Quantity,
		RemainingQuantity: lot.RemainingQuantity,
		CostPrice:         ToMoneyDTO(lot.CostPrice),
		Supplier:          lot.Supplier,
		CreatedAt:         lot.CreatedAt,
		UpdatedAt:         lot.UpdatedAt,
	}
}

// ToInventoryLotDTOs converts a lot collection, preserving order
func ToInventoryLotDTOs(lots domain.Lots) []InventoryLotDTO {
	dtos := make([]InventoryLotDTO, 0, len(lots))
	for _, lot := range lots {
		dtos = append(dtos, ToInventoryLotDTO(lot))
	}
	return dtos
}

// ToAllocationRecordDTOs converts allocation records, preserving FIFO order
func ToAllocationRecordDTOs(records []domain.AllocationRecord) []AllocationRecordDTO {
	dtos := make([]AllocationRecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, AllocationRecordDTO{
			LotID:         rec.LotID,
			PurchaseRunID: rec.PurchaseRunID,
			Quantity:      rec.Quantity,
			CostPrice:     ToMoneyDTO(rec.CostPrice),
		})
	}
	return dtos
}
