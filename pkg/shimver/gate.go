// Package shimver gates backend requests on the client shim version.
// Clients report their shim build via the X-Uchet-Shim header; deployments
// that need to fence off stale front-end bundles configure a SemVer
// constraint the reported version must satisfy.
package shimver

import (
	"errors"
	"fmt"
	"log/slog"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "shimver:gate"

// ErrUnsupported is returned (wrapped with the offending version) when a
// reported shim version fails the configured constraint.
var ErrUnsupported = errors.New("unsupported shim version")

// Gate checks reported shim versions against a SemVer constraint.
// A nil *Gate accepts everything, so callers can hold one unconditionally.
type Gate struct {
	constraint *masterminds.Constraints
	raw        string
}

// NewGate builds a Gate from a SemVer constraint string such as
// ">=1.2.0 <2.0.0" or "^1.4". An empty constraint returns a nil Gate,
// which accepts all versions.
func NewGate(constraint string) (*Gate, error) {
	if constraint == "" {
		return nil, nil
	}
	c, err := masterminds.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid shim constraint %q: %w", logPrefix, constraint, err)
	}
	slog.Info(fmt.Sprintf("%s - Shim version constraint: %s", logPrefix, constraint))
	return &Gate{constraint: c, raw: constraint}, nil
}

// Constraint returns the configured constraint string, empty for a nil Gate.
func (g *Gate) Constraint() string {
	if g == nil {
		return ""
	}
	return g.raw
}

// Check validates a reported version. An empty version always passes:
// clients that predate the header are served, the gate only fences
// versions known to be incompatible. Unparseable versions fail.
func (g *Gate) Check(version string) error {
	if g == nil || version == "" {
		return nil
	}
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupported, version)
	}
	if !g.constraint.Check(v) {
		return fmt.Errorf("%w: %s", ErrUnsupported, version)
	}
	return nil
}
