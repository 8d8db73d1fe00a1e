package contracts

import (
	"context"
	"strings"

	"github.com/xotizwf-create/Uchet/pkg/norm"
)

// Refs is the wire shape of contracts.refs. OrgsS mirrors Orgs: the
// old spreadsheet had two org pickers and the frontend still reads
// both keys.
type Refs struct {
	Orgs      []string `json:"orgs"`
	OrgsS     []string `json:"orgsS"`
	Suppliers []string `json:"suppliers"`
}

// Refs returns the org and supplier picker lists, deduplicated
// case-insensitively with the first spelling kept.
func (s *Service) Refs(ctx context.Context, userID string) (*Refs, error) {
	orgs, err := s.repo.ContractOrgs(ctx, userID)
	if err != nil {
		return nil, err
	}
	suppliers, err := s.repo.ContractSuppliers(ctx, userID)
	if err != nil {
		return nil, err
	}
	refs := buildRefs(orgs, suppliers)
	return &refs, nil
}

// buildRefs cleans the raw org and supplier columns into picker lists.
// Org cells that are just a number are spreadsheet-import leftovers
// and are dropped.
func buildRefs(orgs, suppliers []string) Refs {
	kept := make([]string, 0, len(orgs))
	for _, org := range orgs {
		org = strings.TrimSpace(org)
		if org == "" || isNumericArtifact(org) {
			continue
		}
		kept = append(kept, org)
	}
	uniqueOrgs := norm.UniqueFold(kept)
	return Refs{
		Orgs:      uniqueOrgs,
		OrgsS:     uniqueOrgs,
		Suppliers: norm.UniqueFold(suppliers),
	}
}

// isNumericArtifact reports whether a cell holds only digits and dots,
// like "308" or "12.5".
func isNumericArtifact(s string) bool {
	stripped := strings.ReplaceAll(s, ".", "")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
