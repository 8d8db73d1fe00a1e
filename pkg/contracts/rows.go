package contracts

import (
	"context"

	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/norm"
)

// PositionRow is the wire shape of one contract position.
type PositionRow struct {
	Item      string  `json:"item"`
	Qty       float64 `json:"qty"`
	PlanQty   float64 `json:"planQty"`
	PlanDate  string  `json:"planDate"`
	DateFact  string  `json:"dateFact"`
	Delivered float64 `json:"delivered"`
}

// ContractRow is the wire shape of one contract. The flat item fields
// mirror the first position so grid rows that predate multi-position
// contracts render the same as new ones.
type ContractRow struct {
	ID        string        `json:"id"`
	RowNumber int           `json:"rowNumber"`
	ForceDone bool          `json:"forceDone"`
	Date      string        `json:"date"`
	Deadline  string        `json:"deadline"`
	Supplier  string        `json:"supplier"`
	Org       string        `json:"org"`
	DateFact  string        `json:"dateFact"`
	DocsSent  bool          `json:"docsSent"`
	Number    string        `json:"number"`
	LinkURL   string        `json:"linkUrl"`
	Item      string        `json:"item"`
	Qty       float64       `json:"qty"`
	PlanQty   float64       `json:"planQty"`
	PlanDate  string        `json:"planDate"`
	Delivered float64       `json:"delivered"`
	Items     []PositionRow `json:"items"`
}

// contractRow converts a stored contract to its wire shape. When
// positions exist the flat fields report the first position, falling
// back to the stored scalars field by field.
func contractRow(c db.Contract) ContractRow {
	items := make([]PositionRow, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, PositionRow{
			Item:      it.Item,
			Qty:       it.Qty,
			PlanQty:   it.PlanQty,
			PlanDate:  norm.FormatDate(it.PlanDate),
			DateFact:  norm.FormatDate(it.DateFact),
			Delivered: it.Delivered,
		})
	}

	row := ContractRow{
		ID:        c.ID,
		RowNumber: c.OrderIndex,
		ForceDone: c.ForceDone,
		Date:      norm.FormatDate(c.Date),
		Deadline:  norm.FormatDate(c.Deadline),
		Supplier:  c.Supplier,
		Org:       c.Org,
		DateFact:  norm.FormatDate(c.DateFact),
		DocsSent:  c.DocsSent,
		Number:    c.Number,
		LinkURL:   c.LinkURL,
		Item:      c.Item,
		Qty:       c.Qty,
		PlanQty:   c.PlanQty,
		PlanDate:  norm.FormatDate(c.PlanDate),
		Delivered: c.Delivered,
		Items:     items,
	}
	if len(items) > 0 {
		first := items[0]
		if first.DateFact != "" {
			row.DateFact = first.DateFact
		}
		if first.Item != "" {
			row.Item = first.Item
		}
		if first.PlanDate != "" {
			row.PlanDate = first.PlanDate
		}
		row.Qty = first.Qty
		row.PlanQty = first.PlanQty
		row.Delivered = first.Delivered
	}
	return row
}

// List returns all contracts in row order.
func (s *Service) List(ctx context.Context, userID string) ([]ContractRow, error) {
	contracts, err := s.repo.ListContracts(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows := make([]ContractRow, 0, len(contracts))
	for _, c := range contracts {
		rows = append(rows, contractRow(c))
	}
	return rows, nil
}

// Get returns one contract, or nil when the user has no such contract.
func (s *Service) Get(ctx context.Context, userID, id string) (*ContractRow, error) {
	c, err := s.repo.GetContract(ctx, userID, id)
	if err != nil || c == nil {
		return nil, err
	}
	row := contractRow(*c)
	return &row, nil
}
