// Package pricelist serves the read-only price list. Rows are loaded
// by imports or demo seeding; the API never writes them.
package pricelist

import (
	"context"
	"encoding/json"

	"github.com/xotizwf-create/Uchet/pkg/action"
	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/session"
)

// Service exposes the price list as backend actions.
type Service struct {
	repo *db.Repository
}

// NewService creates a pricelist service over the repository.
func NewService(repo *db.Repository) *Service {
	return &Service{repo: repo}
}

// Register adds the pricelist actions to the registry.
func (s *Service) Register(reg *action.Registry) error {
	return reg.Register("pricelist.list", action.Spec{
		Handler: s.list,
		Doc:     "price list rows",
	})
}

// List returns the user's price rows in stored order.
func (s *Service) List(ctx context.Context, userID string) ([]db.PriceItem, error) {
	rows, err := s.repo.ListPriceItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		// an empty price list serializes as [], not null
		rows = []db.PriceItem{}
	}
	return rows, nil
}

func (s *Service) list(ctx context.Context, caller session.Identity, _ json.RawMessage) (interface{}, error) {
	return s.List(ctx, caller.UserID)
}
