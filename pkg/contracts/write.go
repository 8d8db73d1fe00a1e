package contracts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/norm"
)

// ContractInput carries create/update params. The flat item fields and
// the positions list are both accepted; older clients send only the
// flat fields.
type ContractInput struct {
	ID            string          `json:"id"`
	InsertAfterID string          `json:"insertAfterId"`
	ForceDone     norm.Flag       `json:"forceDone"`
	Date          norm.Date       `json:"date"`
	Deadline      norm.Date       `json:"deadline"`
	Supplier      string          `json:"supplier"`
	Org           string          `json:"org"`
	DateFact      norm.Date       `json:"dateFact"`
	DocsSent      norm.Flag       `json:"docsSent"`
	Number        string          `json:"number"`
	LinkURL       string          `json:"linkUrl"`
	Item          string          `json:"item"`
	Qty           norm.Quantity   `json:"qty"`
	PlanQty       norm.Quantity   `json:"planQty"`
	PlanDate      norm.Date       `json:"planDate"`
	Delivered     norm.Quantity   `json:"delivered"`
	Items         []PositionInput `json:"items"`
}

// PositionInput carries one position of a contract write.
type PositionInput struct {
	Item      string        `json:"item"`
	Qty       norm.Quantity `json:"qty"`
	PlanQty   norm.Quantity `json:"planQty"`
	PlanDate  norm.Date     `json:"planDate"`
	DateFact  norm.Date     `json:"dateFact"`
	Delivered norm.Quantity `json:"delivered"`
}

// CreateManyInput carries contracts.createMany params: a block of
// contract payloads placed below afterId.
type CreateManyInput struct {
	AfterID string          `json:"afterId"`
	Items   []ContractInput `json:"items"`
}

// normalizeItems turns the request positions into storable rows. With
// no positions the flat fields form one pseudo position. Positions
// with nothing in them are dropped.
func normalizeItems(in ContractInput) []db.ContractItemData {
	positions := in.Items
	if len(positions) == 0 {
		positions = []PositionInput{{
			Item:      in.Item,
			Qty:       in.Qty,
			PlanQty:   in.PlanQty,
			PlanDate:  in.PlanDate,
			DateFact:  in.DateFact,
			Delivered: in.Delivered,
		}}
	}

	rows := make([]db.ContractItemData, 0, len(positions))
	for _, p := range positions {
		row := db.ContractItemData{
			Item:      strings.TrimSpace(p.Item),
			Qty:       p.Qty.Float64(),
			PlanQty:   p.PlanQty.Float64(),
			PlanDate:  p.PlanDate.Time(),
			DateFact:  p.DateFact.Time(),
			Delivered: p.Delivered.Float64(),
		}
		if row.Item == "" && row.Qty == 0 && row.PlanQty == 0 &&
			row.PlanDate == nil && row.DateFact == nil && row.Delivered == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// contractData builds the stored contract state. The scalar mirror
// fields prefer the first position and fall back field by field to the
// flat fields the client sent.
func contractData(in ContractInput, items []db.ContractItemData) db.ContractData {
	data := db.ContractData{
		ForceDone: in.ForceDone.Or(false),
		Date:      in.Date.Time(),
		Deadline:  in.Deadline.Time(),
		Supplier:  strings.TrimSpace(in.Supplier),
		Org:       strings.TrimSpace(in.Org),
		DateFact:  in.DateFact.Time(),
		DocsSent:  in.DocsSent.Or(false),
		Number:    strings.TrimSpace(in.Number),
		LinkURL:   strings.TrimSpace(in.LinkURL),
		Item:      strings.TrimSpace(in.Item),
		Qty:       in.Qty.Float64(),
		PlanQty:   in.PlanQty.Float64(),
		PlanDate:  in.PlanDate.Time(),
		Delivered: in.Delivered.Float64(),
		Items:     items,
	}
	if len(items) > 0 {
		first := items[0]
		if first.Item != "" {
			data.Item = first.Item
		}
		if first.Qty != 0 {
			data.Qty = first.Qty
		}
		if first.PlanQty != 0 {
			data.PlanQty = first.PlanQty
		}
		if first.PlanDate != nil {
			data.PlanDate = first.PlanDate
		}
		if first.DateFact != nil {
			data.DateFact = first.DateFact
		}
		if first.Delivered != 0 {
			data.Delivered = first.Delivered
		}
	}
	return data
}

// Create inserts a contract, below the insertAfterId row when given,
// and returns the stored row.
func (s *Service) Create(ctx context.Context, userID string, in ContractInput) (*ContractRow, error) {
	items := normalizeItems(in)
	created, err := s.repo.CreateContract(ctx, db.CreateContractParams{
		UserID:        userID,
		InsertAfterID: in.InsertAfterID,
		Data:          contractData(in, items),
	})
	if err != nil {
		return nil, err
	}
	row := contractRow(*created)
	return &row, nil
}

// CreateMany inserts a block of contracts below the afterId row and
// returns the stored rows in insertion order. An empty block is a
// no-op.
func (s *Service) CreateMany(ctx context.Context, userID string, in CreateManyInput) ([]ContractRow, error) {
	if len(in.Items) == 0 {
		return []ContractRow{}, nil
	}
	rows := make([]db.ContractData, 0, len(in.Items))
	for _, item := range in.Items {
		rows = append(rows, contractData(item, normalizeItems(item)))
	}
	created, err := s.repo.CreateContracts(ctx, db.CreateContractsParams{
		UserID:  userID,
		AfterID: in.AfterID,
		Rows:    rows,
	})
	if err != nil {
		return nil, err
	}
	out := make([]ContractRow, 0, len(created))
	for _, c := range created {
		out = append(out, contractRow(c))
	}
	return out, nil
}

// Update replaces a contract's fields and positions and returns the
// stored row. The row keeps its place in the grid.
func (s *Service) Update(ctx context.Context, userID string, in ContractInput) (*ContractRow, error) {
	if in.ID == "" {
		return nil, errors.New("id is required for update")
	}
	items := normalizeItems(in)
	updated, err := s.repo.UpdateContract(ctx, db.UpdateContractParams{
		UserID: userID,
		ID:     in.ID,
		Data:   contractData(in, items),
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("Contract with id %s not found", in.ID)
	}
	row := contractRow(*updated)
	return &row, nil
}

// Delete removes one contract.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if id == "" {
		return errors.New("id is required for delete")
	}
	deleted, err := s.repo.DeleteContract(ctx, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("Contract with id %s not found", id)
	}
	return nil
}

// DeleteMany removes a set of contracts. Ids the user does not own are
// ignored, matching how the grid's bulk delete always behaved.
func (s *Service) DeleteMany(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.repo.DeleteContracts(ctx, userID, ids)
	return err
}
