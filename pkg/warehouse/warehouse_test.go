package warehouse

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
		t.Fatalf("warehouse:warehouse_test - bad test date %q: %v", s, err)
	}
	return &d
}

func TestRegister_WiresAllActions(t *testing.T) {
	reg := action.NewRegistry()
	s := NewService(nil)
	if err := s.Register(reg); err != nil {
		t.Fatalf("warehouse:warehouse_test - Register failed: %v", err)
	}

	want := []string{
		"warehouse.balancesByDate",
		"warehouse.createIncome",
		"warehouse.createItem",
		"warehouse.deleteExpense",
		"warehouse.deleteIncome",
		"warehouse.deleteItem",
		"warehouse.getIncomeById",
		"warehouse.getItemById",
		"warehouse.getStock",
		"warehouse.listExpenses",
		"warehouse.listIncomes",
		"warehouse.listItems",
		"warehouse.listMoves",
		"warehouse.updateIncome",
		"warehouse.updateItem",
	}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("warehouse:warehouse_test - registered %d actions, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("warehouse:warehouse_test - action[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	mutating := []string{
		"warehouse.createItem", "warehouse.updateItem", "warehouse.deleteItem",
		"warehouse.createIncome", "warehouse.updateIncome", "warehouse.deleteIncome",
		"warehouse.deleteExpense",
	}
	for _, name := range mutating {
		spec, ok := reg.Lookup(name)
		if !ok || !spec.Mutating {
			t.Errorf("warehouse:warehouse_test - expected %s to be mutating", name)
		}
	}
	for _, name := range []string{"warehouse.getStock", "warehouse.listItems", "warehouse.balancesByDate"} {
		spec, ok := reg.Lookup(name)
		if !ok || spec.Mutating {
			t.Errorf("warehouse:warehouse_test - expected %s to be read-only", name)
		}
	}
}

// The id-required errors fire before any storage access, so a nil
// repository is safe here. Their wording is what the old frontend
// matches on.
func TestMutations_RequireID(t *testing.T) {
	s := NewService(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"updateItem", func() error { return s.UpdateItem(ctx, "u1", ItemInput{Name: "X1"}) }, "id is required for updateItem"},
		{"deleteItem", func() error { return s.DeleteItem(ctx, "u1", "") }, "id is required for deleteItem"},
		{"updateIncome", func() error { return s.UpdateIncome(ctx, "u1", IncomeInput{Item: "X1"}) }, "id is required for updateIncome"},
		{"deleteIncome", func() error { return s.DeleteIncome(ctx, "u1", "") }, "id is required for deleteIncome"},
		{"deleteExpense", func() error { return s.DeleteExpense(ctx, "u1", "") }, "id is required for deleteExpense"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil || err.Error() != tt.want {
				t.Errorf("warehouse:warehouse_test - error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestHandlers_RejectMalformedParams(t *testing.T) {
	s := NewService(nil)
	ctx := context.Background()
	caller := session.Identity{UserID: "u1"}

	handlers := map[string]action.Handler{
		"createItem":     s.createItem,
		"updateIncome":   s.updateIncome,
		"deleteExpense":  s.deleteExpense,
		"getStock":       s.getStock,
		"balancesByDate": s.balancesByDate,
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			_, err := h(ctx, caller, json.RawMessage(`{"broken":`))
			if err == nil || !strings.Contains(err.Error(), "invalid params") {
				t.Errorf("warehouse:warehouse_test - error = %v, want invalid params", err)
			}
		})
	}
}
