package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/norm"
)

var (
	errItemNameRequired = errors.New("Item name is required")
	errItemNotFound     = errors.New("Item not found")
)

// ItemInput carries createItem/updateItem params.
type ItemInput struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Unit   string    `json:"unit"`
	Active norm.Flag `json:"active"`
}

// ListItems returns the item catalogue ordered by name.
func (s *Service) ListItems(ctx context.Context, userID string) ([]db.WarehouseItem, error) {
	items, err := s.repo.ListWarehouseItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		// an empty catalogue serializes as [], not null
		items = []db.WarehouseItem{}
	}
	return items, nil
}

// GetItem returns one catalogue item, or nil when the user has no such
// item.
func (s *Service) GetItem(ctx context.Context, userID, id string) (*db.WarehouseItem, error) {
	return s.repo.GetWarehouseItem(ctx, userID, id)
}

// CreateItem adds a catalogue item. Names are unique per user; the
// duplicate check runs here so callers get a readable error instead of
// a constraint violation.
func (s *Service) CreateItem(ctx context.Context, userID string, in ItemInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return errItemNameRequired
	}
	existing, err := s.repo.GetWarehouseItemByName(ctx, userID, name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("Item %q already exists", name)
	}
	_, err = s.repo.CreateWarehouseItem(ctx, db.CreateWarehouseItemParams{
		UserID: userID,
		Name:   name,
		Unit:   strings.TrimSpace(in.Unit),
	})
	return err
}

// UpdateItem renames or re-units a catalogue item. An absent active
// flag keeps the item active.
func (s *Service) UpdateItem(ctx context.Context, userID string, in ItemInput) error {
	if in.ID == "" {
		return errors.New("id is required for updateItem")
	}
	current, err := s.repo.GetWarehouseItem(ctx, userID, in.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return errItemNotFound
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return errItemNameRequired
	}
	if name != current.Name {
		dup, err := s.repo.GetWarehouseItemByName(ctx, userID, name)
		if err != nil {
			return err
		}
		if dup != nil {
			return fmt.Errorf("Item %q already exists", name)
		}
	}
	updated, err := s.repo.UpdateWarehouseItem(ctx, db.UpdateWarehouseItemParams{
		UserID: userID,
		ID:     in.ID,
		Name:   name,
		Unit:   strings.TrimSpace(in.Unit),
		Active: in.Active.Or(true),
	})
	if err != nil {
		return err
	}
	if updated == nil {
		return errItemNotFound
	}
	return nil
}

// DeleteItem removes a catalogue item. Incomes keep their stored item
// name, so history survives the deletion.
func (s *Service) DeleteItem(ctx context.Context, userID, id string) error {
	if id == "" {
		return errors.New("id is required for deleteItem")
	}
	deleted, err := s.repo.DeleteWarehouseItem(ctx, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errItemNotFound
	}
	return nil
}
