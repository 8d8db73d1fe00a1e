package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/norm"
)

var errIncomeNotFound = errors.New("Income not found")

// IncomeRow is the wire shape of one income row.
type IncomeRow struct {
	ID            string  `json:"id"`
	Item          string  `json:"item"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Date          string  `json:"date"`
	Qty           float64 `json:"qty"`
	Unit          string  `json:"unit"`
	InStock       bool    `json:"inStock"`
}

// IncomeInput carries createIncome/updateIncome params.
type IncomeInput struct {
	ID            string        `json:"id"`
	Item          string        `json:"item"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Date          norm.Date     `json:"date"`
	Qty           norm.Quantity `json:"qty"`
	InStock       norm.Flag     `json:"inStock"`
}

// ListIncomes returns all income rows. The unit shown follows the
// catalogue entry when the item still exists, so renaming a unit in
// the catalogue updates every row at once.
func (s *Service) ListIncomes(ctx context.Context, userID string) ([]IncomeRow, error) {
	incomes, err := s.repo.ListWarehouseIncomes(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListWarehouseItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	units := make(map[string]string, len(items))
	for _, it := range items {
		units[it.Name] = it.Unit
	}
	rows := make([]IncomeRow, 0, len(incomes))
	for _, in := range incomes {
		unit := in.Unit
		if u, ok := units[in.Item]; ok {
			unit = u
		}
		rows = append(rows, IncomeRow{
			ID:            in.ID,
			Item:          in.Item,
			InvoiceNumber: in.InvoiceNumber,
			Date:          norm.FormatDate(in.Date),
			Qty:           in.Qty,
			Unit:          unit,
			InStock:       in.InStock,
		})
	}
	return rows, nil
}

// GetIncome returns one income row, or nil when the user has no such
// income. The single-row view reports the unit stored on the income.
func (s *Service) GetIncome(ctx context.Context, userID, id string) (*IncomeRow, error) {
	in, err := s.repo.GetWarehouseIncome(ctx, userID, id)
	if err != nil || in == nil {
		return nil, err
	}
	return &IncomeRow{
		ID:            in.ID,
		Item:          in.Item,
		InvoiceNumber: in.InvoiceNumber,
		Date:          norm.FormatDate(in.Date),
		Qty:           in.Qty,
		Unit:          in.Unit,
		InStock:       in.InStock,
	}, nil
}

// CreateIncome adds an income row. The item must exist in the
// catalogue; the row stores the catalogue unit at creation time.
func (s *Service) CreateIncome(ctx context.Context, userID string, in IncomeInput) error {
	item, err := s.ensureExistingItem(ctx, userID, in.Item)
	if err != nil {
		return err
	}
	_, err = s.repo.CreateWarehouseIncome(ctx, userID, db.WarehouseIncomeData{
		Item:          item.Name,
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
		Date:          in.Date.Time(),
		Qty:           in.Qty.Float64(),
		Unit:          item.Unit,
		InStock:       in.InStock.Or(true),
	})
	return err
}

// UpdateIncome replaces an income row's fields, revalidating the item
// against the catalogue.
func (s *Service) UpdateIncome(ctx context.Context, userID string, in IncomeInput) error {
	if in.ID == "" {
		return errors.New("id is required for updateIncome")
	}
	current, err := s.repo.GetWarehouseIncome(ctx, userID, in.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return errIncomeNotFound
	}
	item, err := s.ensureExistingItem(ctx, userID, in.Item)
	if err != nil {
		return err
	}
	updated, err := s.repo.UpdateWarehouseIncome(ctx, userID, in.ID, db.WarehouseIncomeData{
		Item:          item.Name,
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
		Date:          in.Date.Time(),
		Qty:           in.Qty.Float64(),
		Unit:          item.Unit,
		InStock:       in.InStock.Or(true),
	})
	if err != nil {
		return err
	}
	if updated == nil {
		return errIncomeNotFound
	}
	return nil
}

// DeleteIncome removes an income row.
func (s *Service) DeleteIncome(ctx context.Context, userID, id string) error {
	if id == "" {
		return errors.New("id is required for deleteIncome")
	}
	deleted, err := s.repo.DeleteWarehouseIncome(ctx, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errIncomeNotFound
	}
	return nil
}

// ensureExistingItem resolves a raw item name against the catalogue.
func (s *Service) ensureExistingItem(ctx context.Context, userID, rawName string) (*db.WarehouseItem, error) {
	name := strings.TrimSpace(rawName)
	if name == "" {
		return nil, errors.New("Item is required")
	}
	item, err := s.repo.GetWarehouseItemByName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("Item %q not found in warehouse items.", name)
	}
	return item, nil
}
