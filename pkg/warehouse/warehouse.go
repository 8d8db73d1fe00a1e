// Package warehouse implements the warehouse actions: the item
// catalogue, incomes, expenses derived from contract deliveries, and
// the stock reports built on top of them.
//
// Validation errors carry the exact strings the legacy backend
// produced; the old frontend matches on them, so they are part of the
// wire contract and bypass the usual error wrapping.
package warehouse

import (
	"context"
	"encoding/json"

	"github.com/xotizwf-create/Uchet/pkg/action"
	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/session"
)

// Service exposes warehouse state as backend actions. All reads and
// writes are scoped to the calling user.
type Service struct {
	repo *db.Repository
}

// NewService creates a warehouse service over the repository.
func NewService(repo *db.Repository) *Service {
	return &Service{repo: repo}
}

// Register adds every warehouse action to the registry.
func (s *Service) Register(reg *action.Registry) error {
	specs := map[string]action.Spec{
		"warehouse.getStock":       {Handler: s.getStock, Doc: "current stock level for one item"},
		"warehouse.listItems":      {Handler: s.listItems, Doc: "item catalogue"},
		"warehouse.getItemById":    {Handler: s.getItemByID, Doc: "one catalogue item, null when missing"},
		"warehouse.createItem":     {Handler: s.createItem, Mutating: true, Doc: "add a catalogue item, returns the refreshed catalogue"},
		"warehouse.updateItem":     {Handler: s.updateItem, Mutating: true, Doc: "update a catalogue item, returns the refreshed catalogue"},
		"warehouse.deleteItem":     {Handler: s.deleteItem, Mutating: true, Doc: "delete a catalogue item, returns the refreshed catalogue"},
		"warehouse.listIncomes":    {Handler: s.listIncomes, Doc: "income rows"},
		"warehouse.getIncomeById":  {Handler: s.getIncomeByID, Doc: "one income row, null when missing"},
		"warehouse.createIncome":   {Handler: s.createIncome, Mutating: true, Doc: "add an income, returns the refreshed income list"},
		"warehouse.updateIncome":   {Handler: s.updateIncome, Mutating: true, Doc: "update an income, returns the refreshed income list"},
		"warehouse.deleteIncome":   {Handler: s.deleteIncome, Mutating: true, Doc: "delete an income, returns the refreshed income list"},
		"warehouse.listExpenses":   {Handler: s.listExpenses, Doc: "expense rows derived from contract deliveries"},
		"warehouse.deleteExpense":  {Handler: s.deleteExpense, Mutating: true, Doc: "clear a contract delivery, returns the refreshed expense list"},
		"warehouse.balancesByDate": {Handler: s.balancesByDate, Doc: "per-item stock levels at the end of a day"},
		"warehouse.listMoves":      {Handler: s.listMoves, Doc: "incomes and expenses as one movement journal"},
	}
	for name, spec := range specs {
		if err := reg.Register(name, spec); err != nil {
			return err
		}
	}
	return nil
}

// idParams is the {id} document most delete/get actions receive.
type idParams struct {
	ID string `json:"id"`
}

func decodeID(raw json.RawMessage) (string, error) {
	var p idParams
	if err := action.DecodeParams(raw, &p); err != nil {
		return "", err
	}
	return p.ID, nil
}

func (s *Service) listItems(ctx context.Context, caller session.Identity, _ json.RawMessage) (interface{}, error) {
	return s.ListItems(ctx, caller.UserID)
}

func (s *Service) getItemByID(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, caller.UserID, id)
}

func (s *Service) createItem(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var in ItemInput
	if err := action.DecodeParams(raw, &in); err != nil {
		return nil, err
	}
	if err := s.CreateItem(ctx, caller.UserID, in); err != nil {
		return nil, err
	}
	return s.ListItems(ctx, caller.UserID)
}

func (s *Service) updateItem(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var in ItemInput
	if err := action.DecodeParams(raw, &in); err != nil {
		return nil, err
	}
	if err := s.UpdateItem(ctx, caller.UserID, in); err != nil {
		return nil, err
	}
	return s.ListItems(ctx, caller.UserID)
}

func (s *Service) deleteItem(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	if err := s.DeleteItem(ctx, caller.UserID, id); err != nil {
		return nil, err
	}
	return s.ListItems(ctx, caller.UserID)
}

func (s *Service) listIncomes(ctx context.Context, caller session.Identity, _ json.RawMessage) (interface{}, error) {
	return s.ListIncomes(ctx, caller.UserID)
}

func (s *Service) getIncomeByID(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	return s.GetIncome(ctx, caller.UserID, id)
}

func (s *Service) createIncome(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var in IncomeInput
	if err := action.DecodeParams(raw, &in); err != nil {
		return nil, err
	}
	if err := s.CreateIncome(ctx, caller.UserID, in); err != nil {
		return nil, err
	}
	return s.ListIncomes(ctx, caller.UserID)
}

func (s *Service) updateIncome(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var in IncomeInput
	if err := action.DecodeParams(raw, &in); err != nil {
		return nil, err
	}
	if err := s.UpdateIncome(ctx, caller.UserID, in); err != nil {
		return nil, err
	}
	return s.ListIncomes(ctx, caller.UserID)
}

func (s *Service) deleteIncome(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	if err := s.DeleteIncome(ctx, caller.UserID, id); err != nil {
		return nil, err
	}
	return s.ListIncomes(ctx, caller.UserID)
}

func (s *Service) listExpenses(ctx context.Context, caller session.Identity, _ json.RawMessage) (interface{}, error) {
	return s.ListExpenses(ctx, caller.UserID)
}

func (s *Service) deleteExpense(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	if err := s.DeleteExpense(ctx, caller.UserID, id); err != nil {
		return nil, err
	}
	return s.ListExpenses(ctx, caller.UserID)
}

func (s *Service) getStock(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		SKU string `json:"sku"`
	}
	if err := action.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	return s.GetStock(ctx, caller.UserID, p.SKU)
}

func (s *Service) balancesByDate(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Date string `json:"date"`
	}
	if err := action.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	return s.BalancesByDate(ctx, caller.UserID, p.Date)
}

func (s *Service) listMoves(ctx context.Context, caller session.Identity, _ json.RawMessage) (interface{}, error) {
	return s.ListMoves(ctx, caller.UserID)
}
