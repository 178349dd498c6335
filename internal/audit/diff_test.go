package audit

import (
	"encoding/json"
	"testing"
)

func TestDiffOmitsUnchangedFields(t *testing.T) {
	old := map[string]any{"status": "inactive", "name": "payroll"}
	new := map[string]any{"status": "active", "name": "payroll"}

	changes := Diff(old, new)
	if len(changes) != 1 {
		t.Fatalf("expected exactly one change, got %d: %v", len(changes), changes)
	}
	change, ok := changes["status"]
	if !ok {
		t.Fatal("status change missing")
	}
	if change.Old != "inactive" || change.New != "active" {
		t.Fatalf("unexpected change values: %+v", change)
	}
	if _, ok := changes["name"]; ok {
		t.Fatal("unchanged field must be omitted")
	}
}

func TestDiffHandlesAddedAndRemovedFields(t *testing.T) {
	changes := Diff(
		map[string]any{"gone": 1},
		map[string]any{"added": 2},
	)
	if len(changes) != 2 {
		t.Fatalf("expected two changes, got %v", changes)
	}
	if changes["gone"].New != nil || changes["gone"].Old != 1 {
		t.Fatalf("removed field diff wrong: %+v", changes["gone"])
	}
	if changes["added"].Old != nil || changes["added"].New != 2 {
		t.Fatalf("added field diff wrong: %+v", changes["added"])
	}
}

func TestDiffIdenticalMapsIsNil(t *testing.T) {
	m := map[string]any{"a": "x", "n": 3}
	if changes := Diff(m, map[string]any{"a": "x", "n": 3}); changes != nil {
		t.Fatalf("expected nil diff, got %v", changes)
	}
}

func TestUpdateDetailWireFormat(t *testing.T) {
	detail, err := UpdateDetail(map[string]FieldChange{
		"status": {Old: "inactive", New: "active"},
	})
	if err != nil {
		t.Fatalf("UpdateDetail: %v", err)
	}
	var decoded map[string]map[string]any
	if err := json.Unmarshal(detail, &decoded); err != nil {
		t.Fatalf("detail not valid JSON: %v", err)
	}
	status := decoded["status"]
	if status["old"] != "inactive" || status["new"] != "active" {
		t.Fatalf("unexpected wire format: %s", detail)
	}
	if _, ok := decoded["name"]; ok {
		t.Fatal("name must not appear in detail")
	}
}
