package audit

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// FieldChange is the UPDATE detail payload for one changed field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff returns the fields whose values differ between the old and next
// snapshots. Unchanged fields are omitted. Fields absent from one side diff
// against nil.
func Diff(old, next map[string]any) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	for field, oldVal := range old {
		nextVal, ok := next[field]
		if !ok {
			changes[field] = FieldChange{Old: oldVal, New: nil}
			continue
		}
		if !reflect.DeepEqual(oldVal, nextVal) {
			changes[field] = FieldChange{Old: oldVal, New: nextVal}
		}
	}
	for field, nextVal := range next {
		if _, ok := old[field]; !ok {
			changes[field] = FieldChange{Old: nil, New: nextVal}
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}

// CreateDetail encodes a flat field map for a CREATE entry.
func CreateDetail(fields map[string]any) (json.RawMessage, error) {
	return marshalDetail(fields)
}

// UpdateDetail encodes per-field old/new pairs for an UPDATE entry.
func UpdateDetail(changes map[string]FieldChange) (json.RawMessage, error) {
	return marshalDetail(changes)
}

// DeleteDetail encodes the pre-removal snapshot for a DELETE entry.
func DeleteDetail(snapshot map[string]any) (json.RawMessage, error) {
	return marshalDetail(snapshot)
}

func marshalDetail(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("audit: encode detail: %w", err)
	}
	return data, nil
}
