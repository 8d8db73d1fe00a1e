package contracts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/xotizwf-create/Uchet/pkg/norm"
)

func TestNormalizeItems_FlatFieldsBecomeOnePosition(t *testing.T) {
	var in ContractInput
	payload := `{"item":" X1 ","qty":"12,5","planQty":10,"planDate":"15.01.2026"}`
	if err := json.Unmarshal([]byte(payload), &in); err != nil {
		t.Fatalf("contracts:write_test - unmarshal failed: %v", err)
	}

	items := normalizeItems(in)
	if len(items) != 1 {
		t.Fatalf("contracts:write_test - expected 1 pseudo position, got %d", len(items))
	}
	it := items[0]
	if it.Item != "X1" || it.Qty != 12.5 || it.PlanQty != 10 {
		t.Errorf("contracts:write_test - position = %+v", it)
	}
	if it.PlanDate == nil || it.PlanDate.Format("2006-01-02") != "2026-01-15" {
		t.Errorf("contracts:write_test - plan date = %v", it.PlanDate)
	}
}

func TestNormalizeItems_DropsEmptyPositions(t *testing.T) {
	in := ContractInput{
		Items: []PositionInput{
			{Item: "X1", Qty: norm.Quantity(10)},
			{},
			{Item: "   "},
			{Delivered: norm.Quantity(3)},
		},
	}

	items := normalizeItems(in)
	if len(items) != 2 {
		t.Fatalf("contracts:write_test - expected 2 positions, got %d: %+v", len(items), items)
	}
	if items[0].Item != "X1" || items[1].Delivered != 3 {
		t.Errorf("contracts:write_test - positions = %+v", items)
	}
}

func TestNormalizeItems_EmptyInputIsEmpty(t *testing.T) {
	if items := normalizeItems(ContractInput{}); len(items) != 0 {
		t.Errorf("contracts:write_test - expected no positions for an empty payload, got %+v", items)
	}
}

func TestContractData_FirstPositionWinsFieldByField(t *testing.T) {
	var in ContractInput
	payload := `{
		"org": " Orion Build LLC ",
		"number": "D-2026/03",
		"item": "flat item",
		"qty": 99,
		"dateFact": "2026-05-01",
		"items": [
			{"item": "Cable tray", "qty": 60},
			{"item": "Anchor bolt M12", "qty": 200}
		]
	}`
	if err := json.Unmarshal([]byte(payload), &in); err != nil {
		t.Fatalf("contracts:write_test - unmarshal failed: %v", err)
	}

	data := contractData(in, normalizeItems(in))
	if data.Org != "Orion Build LLC" || data.Number != "D-2026/03" {
		t.Errorf("contracts:write_test - header fields = %+v", data)
	}
	if data.Item != "Cable tray" || data.Qty != 60 {
		t.Errorf("contracts:write_test - scalar mirror = %q/%v, want the first position", data.Item, data.Qty)
	}
	// The first position has no delivery date, so the flat field holds.
	if data.DateFact == nil || data.DateFact.Format("2006-01-02") != "2026-05-01" {
		t.Errorf("contracts:write_test - date fact = %v, want the flat field", data.DateFact)
	}
	if len(data.Items) != 2 {
		t.Errorf("contracts:write_test - stored positions = %+v", data.Items)
	}
}

func TestUpdate_RequiresID(t *testing.T) {
	s := NewService(nil)
	_, err := s.Update(context.Background(), "u1", ContractInput{Number: "D-1"})
	if err == nil || err.Error() != "id is required for update" {
		t.Errorf("contracts:write_test - error = %v, want id is required for update", err)
	}
}

func TestDelete_RequiresID(t *testing.T) {
	s := NewService(nil)
	err := s.Delete(context.Background(), "u1", "")
	if err == nil || err.Error() != "id is required for delete" {
		t.Errorf("contracts:write_test - error = %v, want id is required for delete", err)
	}
}

func TestDeleteMany_EmptyIDsIsNoOp(t *testing.T) {
	// No ids means nothing to do; the nil repository must never be hit.
	s := NewService(nil)
	if err := s.DeleteMany(context.Background(), "u1", nil); err != nil {
		t.Errorf("contracts:write_test - error = %v, want nil", err)
	}
}
