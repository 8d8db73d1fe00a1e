package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/norm"
)

// Deliveries before this date belong to the spreadsheet era and are
// tracked outside the app.
var expensesCutoff = time.Date(2025, time.December, 6, 0, 0, 0, 0, time.UTC)

// ExpenseRow is the wire shape of one expense row. Expenses are not
// stored: every delivered contract position at or past the cutoff is
// one expense, identified by its contract id.
type ExpenseRow struct {
	ID             string  `json:"id"`
	Org            string  `json:"org"`
	Date           string  `json:"date"`
	Item           string  `json:"item"`
	Qty            float64 `json:"qty"`
	ContractNumber string  `json:"contractNumber"`
}

// contractPositions returns the contract's positions, or one pseudo
// position built from the scalar fields for rows that predate
// multi-position contracts.
func contractPositions(c db.Contract) []db.ContractItem {
	if len(c.Items) > 0 {
		return c.Items
	}
	return []db.ContractItem{{
		Item:      c.Item,
		Qty:       c.Qty,
		PlanQty:   c.PlanQty,
		PlanDate:  c.PlanDate,
		DateFact:  c.DateFact,
		Delivered: c.Delivered,
	}}
}

// deriveExpenses flattens delivered contract positions into expense
// rows. A position missing its item name or delivery date falls back
// to the contract scalars; rows still missing either are skipped, as
// are deliveries before the cutoff. A position delivered in part
// counts at the delivered quantity, a position marked delivered with
// no quantity counts at the ordered quantity.
func deriveExpenses(contracts []db.Contract) []ExpenseRow {
	rows := []ExpenseRow{}
	for _, c := range contracts {
		for _, pos := range contractPositions(c) {
			name := pos.Item
			if name == "" {
				name = c.Item
			}
			name = strings.TrimSpace(name)
			dateFact := pos.DateFact
			if dateFact == nil {
				dateFact = c.DateFact
			}
			if name == "" || dateFact == nil {
				continue
			}
			if dateFact.Before(expensesCutoff) {
				continue
			}
			qty := pos.Delivered
			if qty == 0 {
				qty = pos.Qty
			}
			rows = append(rows, ExpenseRow{
				ID:             c.ID,
				Org:            c.Org,
				Date:           norm.FormatDate(dateFact),
				Item:           name,
				Qty:            qty,
				ContractNumber: c.Number,
			})
		}
	}
	return rows
}

// ListExpenses derives the expense rows from the user's contracts, in
// contract row order.
func (s *Service) ListExpenses(ctx context.Context, userID string) ([]ExpenseRow, error) {
	contracts, err := s.repo.ListContracts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return deriveExpenses(contracts), nil
}

// DeleteExpense undoes a delivery by clearing the delivery fields on
// the contract the expense row points at. The contract itself stays.
func (s *Service) DeleteExpense(ctx context.Context, userID, id string) error {
	if id == "" {
		return errors.New("id is required for deleteExpense")
	}
	cleared, err := s.repo.ClearContractDelivery(ctx, userID, id)
	if err != nil {
		return err
	}
	if !cleared {
		return fmt.Errorf("Contract not found for expense %s", id)
	}
	return nil
}
