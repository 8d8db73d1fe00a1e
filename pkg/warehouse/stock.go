package warehouse

import (
	"context"
	"errors"
	"strings"
)

var errSKUNotFound = errors.New("SKU not found")

// StockRow is the wire shape of warehouse.getStock.
type StockRow struct {
	SKU string  `json:"sku"`
	Qty float64 `json:"qty"`
}

// GetStock reports the current stock level for one catalogue item:
// everything received and on the shelf minus everything delivered out
// through contracts.
func (s *Service) GetStock(ctx context.Context, userID, sku string) (*StockRow, error) {
	name := strings.TrimSpace(sku)
	if name == "" {
		return nil, errSKUNotFound
	}
	item, err := s.repo.GetWarehouseItemByName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errSKUNotFound
	}

	qty, err := s.repo.SumInStockIncomes(ctx, userID, item.Name)
	if err != nil {
		return nil, err
	}
	contracts, err := s.repo.ListContracts(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, row := range deriveExpenses(contracts) {
		if row.Item == item.Name {
			qty -= row.Qty
		}
	}
	return &StockRow{SKU: item.Name, Qty: qty}, nil
}
