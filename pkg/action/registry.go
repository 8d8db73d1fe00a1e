// Package action holds the static registry mapping dotted action names
// (e.g. "warehouse.getStock") to their handlers.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/xotizwf-create/Uchet/pkg/session"
)

const logPrefix = "action:registry"

// Handler is the uniform signature for backend actions. The caller
// identity arrives as an argument; params are the raw JSON document the
// client sent, interpreted only by the handler itself.
type Handler func(ctx context.Context, caller session.Identity, params json.RawMessage) (interface{}, error)

// Spec describes a registered action.
type Spec struct {
	Handler Handler
	// Mutating marks actions that change state; the dispatcher publishes
	// an audit event for them.
	Mutating bool
	// Doc is a one-line description surfaced by system.actions.
	Doc string
}

// actionNameRegex matches "module.action" names: a lowercase module, one
// dot, and a camelCase action.
var actionNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-zA-Z][a-zA-Z0-9_]*$`)

// Registry is the static action table. Register all actions during
// startup wiring; Register is not safe for concurrent use. Lookup and
// Names are safe once registration is done.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds an action under a dotted name. Duplicate names, names
// that do not match module.action, and nil handlers are rejected so
// wiring mistakes fail at startup rather than per request.
func (r *Registry) Register(name string, spec Spec) error {
	if !actionNameRegex.MatchString(name) {
		return fmt.Errorf("%s - invalid action name: %q", logPrefix, name)
	}
	if spec.Handler == nil {
		return fmt.Errorf("%s - nil handler for action %q", logPrefix, name)
	}
	if _, exists := r.specs[name]; exists {
		return fmt.Errorf("%s - duplicate action: %q", logPrefix, name)
	}
	r.specs[name] = spec
	return nil
}

// MustRegister is Register that panics on error. Intended for startup
// wiring where a bad registration is a programming error.
func (r *Registry) MustRegister(name string, spec Spec) {
	if err := r.Register(name, spec); err != nil {
		panic(err)
	}
}

// Lookup finds the Spec registered under name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns all registered action names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many actions are registered.
func (r *Registry) Len() int {
	return len(r.specs)
}
