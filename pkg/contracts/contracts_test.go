package contracts

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xotizwf-create/Uchet/pkg/action"
	"github.com/xotizwf-create/Uchet/pkg/session"
)

func dayPtr(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("contracts:contracts_test - bad test date %q: %v", s, err)
	}
	return &d
}

func TestRegister_WiresAllActions(t *testing.T) {
	reg := action.NewRegistry()
	s := NewService(nil)
	if err := s.Register(reg); err != nil {
		t.Fatalf("contracts:contracts_test - Register failed: %v", err)
	}

	want := []string{
		"contracts.create",
		"contracts.createMany",
		"contracts.delete",
		"contracts.deleteMany",
		"contracts.get",
		"contracts.list",
		"contracts.refs",
		"contracts.update",
	}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("contracts:contracts_test - registered %d actions, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("contracts:contracts_test - action[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for _, name := range []string{"contracts.create", "contracts.createMany", "contracts.update", "contracts.delete", "contracts.deleteMany"} {
		spec, ok := reg.Lookup(name)
		if !ok || !spec.Mutating {
			t.Errorf("contracts:contracts_test - expected %s to be mutating", name)
		}
	}
	for _, name := range []string{"contracts.list", "contracts.get", "contracts.refs"} {
		spec, ok := reg.Lookup(name)
		if !ok || spec.Mutating {
			t.Errorf("contracts:contracts_test - expected %s to be read-only", name)
		}
	}
}

func TestHandlers_RejectMalformedParams(t *testing.T) {
	s := NewService(nil)
	ctx := context.Background()
	caller := session.Identity{UserID: "u1"}

	handlers := map[string]action.Handler{
		"create":     s.create,
		"createMany": s.createMany,
		"update":     s.update,
		"delete":     s.delete,
		"deleteMany": s.deleteMany,
		"get":        s.get,
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			_, err := h(ctx, caller, json.RawMessage(`{"broken":`))
			if err == nil || !strings.Contains(err.Error(), "invalid params") {
				t.Errorf("contracts:contracts_test - error = %v, want invalid params", err)
			}
		})
	}
}
