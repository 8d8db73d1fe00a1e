package warehouse

import (
	"context"
	"sort"
	"time"

	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/norm"
)

// BalanceRow is the wire shape of one balance line: the stock level of
// one catalogue item at the end of the requested day.
type BalanceRow struct {
	Date string  `json:"date"`
	Item string  `json:"item"`
	Qty  float64 `json:"qty"`
}

// MoveRow is the wire shape of one stock movement. Incomes and derived
// expenses share the journal, told apart by OperationType.
type MoveRow struct {
	Date           string  `json:"date"`
	ContractNumber string  `json:"contractNumber"`
	Item           string  `json:"item"`
	OperationType  string  `json:"operationType"`
	Qty            float64 `json:"qty"`
}

// BalancesByDate reports per-item stock levels as of the end of the
// given day. An empty or unreadable date means today. Every catalogue
// item gets a line, zero balances included.
func (s *Service) BalancesByDate(ctx context.Context, userID, dateStr string) ([]BalanceRow, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if parsed, err := norm.ParseDate(dateStr); err == nil {
		end = parsed
	}

	items, err := s.repo.ListWarehouseItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	incomes, err := s.repo.ListWarehouseIncomes(ctx, userID)
	if err != nil {
		return nil, err
	}
	contracts, err := s.repo.ListContracts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return balanceRows(items, incomes, deriveExpenses(contracts), end), nil
}

// balanceRows nets incomes against expenses up to and including end.
// Undated incomes and incomes still on order are left out.
func balanceRows(items []db.WarehouseItem, incomes []db.WarehouseIncome, expenses []ExpenseRow, end time.Time) []BalanceRow {
	balances := make(map[string]float64)
	for _, in := range incomes {
		if in.Date == nil || in.Date.After(end) {
			continue
		}
		if !in.InStock {
			continue
		}
		balances[in.Item] += in.Qty
	}
	for _, row := range expenses {
		d, err := norm.ParseDate(row.Date)
		if err != nil || d.After(end) {
			continue
		}
		balances[row.Item] -= row.Qty
	}

	date := norm.FormatDate(&end)
	rows := make([]BalanceRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, BalanceRow{Date: date, Item: it.Name, Qty: balances[it.Name]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Item < rows[j].Item })
	return rows
}

// ListMoves merges incomes and derived expenses into one journal
// ordered by date.
func (s *Service) ListMoves(ctx context.Context, userID string) ([]MoveRow, error) {
	incomes, err := s.repo.ListWarehouseIncomes(ctx, userID)
	if err != nil {
		return nil, err
	}
	contracts, err := s.repo.ListContracts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return moveRows(incomes, deriveExpenses(contracts)), nil
}

// moveRows builds the journal. Incomes report their invoice number in
// the contract number column. Rows without a date sort first; rows on
// the same day keep incomes before expenses.
func moveRows(incomes []db.WarehouseIncome, expenses []ExpenseRow) []MoveRow {
	moves := make([]MoveRow, 0, len(incomes)+len(expenses))
	for _, in := range incomes {
		moves = append(moves, MoveRow{
			Date:           norm.FormatDate(in.Date),
			ContractNumber: in.InvoiceNumber,
			Item:           in.Item,
			OperationType:  "Income",
			Qty:            in.Qty,
		})
	}
	for _, row := range expenses {
		moves = append(moves, MoveRow{
			Date:           row.Date,
			ContractNumber: row.ContractNumber,
			Item:           row.Item,
			OperationType:  "Expense",
			Qty:            row.Qty,
		})
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return moveSortKey(moves[i].Date).Before(moveSortKey(moves[j].Date))
	})
	return moves
}

// moveSortKey orders moves by day; an unreadable date sorts as the
// zero time.
func moveSortKey(date string) time.Time {
	d, err := norm.ParseDate(date)
	if err != nil {
		return time.Time{}
	}
	return d
}
