// Package contracts implements the contract register actions: the
// ordered contract list the frontend renders as a grid, plus the org
// and supplier reference lists its pickers use.
//
// Validation errors carry the exact strings the legacy backend
// produced; the old frontend matches on them, so they are part of the
// wire contract and bypass the usual error wrapping.
package contracts

import (
	"context"
	"encoding/json"

	"github.com/xotizwf-create/Uchet/pkg/action"
	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/session"
)

// Service exposes the contract register as backend actions. All reads
// and writes are scoped to the calling user.
type Service struct {
	repo *db.Repository
}

// NewService creates a contracts service over the repository.
func NewService(repo *db.Repository) *Service {
	return &Service{repo: repo}
}

// Register adds every contracts action to the registry.
func (s *Service) Register(reg *action.Registry) error {
	specs := map[string]action.Spec{
		"contracts.list":       {Handler: s.list, Doc: "all contracts in row order"},
		"contracts.get":        {Handler: s.get, Doc: "one contract, null when missing"},
		"contracts.refs":       {Handler: s.refs, Doc: "org and supplier picker lists"},
		"contracts.create":     {Handler: s.create, Mutating: true, Doc: "insert a contract, optionally below an existing row"},
		"contracts.createMany": {Handler: s.createMany, Mutating: true, Doc: "insert a block of contracts in one go"},
		"contracts.update":     {Handler: s.update, Mutating: true, Doc: "replace a contract's fields and positions"},
		"contracts.delete":     {Handler: s.delete, Mutating: true, Doc: "delete one contract"},
		"contracts.deleteMany": {Handler: s.deleteMany, Mutating: true, Doc: "delete a set of contracts"},
	}
	for name, spec := range specs {
		if err := reg.Register(name, spec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) list(ctx context.Context, caller session.Identity, _ json.RawMessage) (interface{}, error) {
	return s.List(ctx, caller.UserID)
}

func (s *Service) get(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := action.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	return s.Get(ctx, caller.UserID, p.ID)
}

func (s *Service) refs(ctx context.Context, caller session.Identity, _ json.RawMessage) (interface{}, error) {
	return s.Refs(ctx, caller.UserID)
}

func (s *Service) create(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var in ContractInput
	if err := action.DecodeParams(raw, &in); err != nil {
		return nil, err
	}
	return s.Create(ctx, caller.UserID, in)
}

func (s *Service) createMany(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var in CreateManyInput
	if err := action.DecodeParams(raw, &in); err != nil {
		return nil, err
	}
	return s.CreateMany(ctx, caller.UserID, in)
}

func (s *Service) update(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var in ContractInput
	if err := action.DecodeParams(raw, &in); err != nil {
		return nil, err
	}
	return s.Update(ctx, caller.UserID, in)
}

func (s *Service) delete(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := action.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	// Deletes acknowledge with a bare success envelope.
	return nil, s.Delete(ctx, caller.UserID, p.ID)
}

func (s *Service) deleteMany(ctx context.Context, caller session.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		IDs []string `json:"ids"`
	}
	if err := action.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	return nil, s.DeleteMany(ctx, caller.UserID, p.IDs)
}
