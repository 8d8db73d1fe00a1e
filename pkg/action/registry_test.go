package action

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/xotizwf-create/Uchet/pkg/session"
)

func noopHandler(_ context.Context, _ session.Identity, _ json.RawMessage) (interface{}, error) {
	return nil, nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("warehouse.getStock", Spec{Handler: noopHandler, Doc: "stock for one item"}); err != nil {
		t.Fatalf("action:registry_test - register failed: %v", err)
	}

	spec, ok := reg.Lookup("warehouse.getStock")
	if !ok {
		t.Fatal("action:registry_test - expected action to be found")
	}
	if spec.Doc != "stock for one item" {
		t.Errorf("action:registry_test - expected doc to round-trip, got %q", spec.Doc)
	}
	if spec.Mutating {
		t.Error("action:registry_test - expected non-mutating action")
	}

	if _, ok := reg.Lookup("warehouse.noSuchThing"); ok {
		t.Error("action:registry_test - expected unknown action to be absent")
	}
}

func TestRegistry_RejectsBadRegistrations(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("contracts.create", Spec{Handler: noopHandler, Mutating: true}); err != nil {
		t.Fatalf("action:registry_test - register failed: %v", err)
	}

	tests := []struct {
		name    string
		action  string
		spec    Spec
		wantErr string
	}{
		{"duplicate", "contracts.create", Spec{Handler: noopHandler}, "duplicate action"},
		{"no dot", "contracts", Spec{Handler: noopHandler}, "invalid action name"},
		{"empty module", ".create", Spec{Handler: noopHandler}, "invalid action name"},
		{"empty action", "contracts.", Spec{Handler: noopHandler}, "invalid action name"},
		{"two dots", "a.b.c", Spec{Handler: noopHandler}, "invalid action name"},
		{"uppercase module", "Contracts.create", Spec{Handler: noopHandler}, "invalid action name"},
		{"nil handler", "contracts.update", Spec{}, "nil handler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.action, tt.spec)
			if err == nil {
				t.Fatalf("action:registry_test - expected error for %q", tt.action)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("action:registry_test - expected %q in error, got %v", tt.wantErr, err)
			}
		})
	}

	if reg.Len() != 1 {
		t.Errorf("action:registry_test - expected 1 registered action, got %d", reg.Len())
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"warehouse.listItems", "contracts.list", "pricelist.list", "system.health"} {
		if err := reg.Register(name, Spec{Handler: noopHandler}); err != nil {
			t.Fatalf("action:registry_test - register %s failed: %v", name, err)
		}
	}

	names := reg.Names()
	want := []string{"contracts.list", "pricelist.list", "system.health", "warehouse.listItems"}
	if len(names) != len(want) {
		t.Fatalf("action:registry_test - expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("action:registry_test - expected %s at %d, got %s", want[i], i, names[i])
		}
	}
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("system.health", Spec{Handler: noopHandler})

	defer func() {
		if recover() == nil {
			t.Error("action:registry_test - expected panic on duplicate MustRegister")
		}
	}()
	reg.MustRegister("system.health", Spec{Handler: noopHandler})
}
