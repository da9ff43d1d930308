// internal/app/system/auditlog/logger_test.go
package auditlog

import (
	"testing"
)

func TestDiff(t *testing.T) {
	before := map[string]string{
		"name":        "Sales",
		"description": "old",
		"archived":    "false",
	}
	after := map[string]string{
		"name":        "Global Sales",
		"description": "old",
		"archived":    "false",
	}

	cb, ca := Diff(before, after)

	if len(cb) != 1 || cb["name"] != "Sales" {
		t.Errorf("before diff: got %v, want only the old name", cb)
	}
	if len(ca) != 1 || ca["name"] != "Global Sales" {
		t.Errorf("after diff: got %v, want only the new name", ca)
	}
}

func TestDiff_FieldAddedAndRemoved(t *testing.T) {
	before := map[string]string{"supervisor_id": "abc"}
	after := map[string]string{"parent_id": "def"}

	cb, ca := Diff(before, after)

	if cb["supervisor_id"] != "abc" {
		t.Errorf("expected removed field in before diff, got %v", cb)
	}
	if ca["parent_id"] != "def" {
		t.Errorf("expected added field in after diff, got %v", ca)
	}
}

func TestDiff_NoChanges(t *testing.T) {
	m := map[string]string{"name": "Same"}

	cb, ca := Diff(m, map[string]string{"name": "Same"})
	if cb != nil || ca != nil {
		t.Errorf("expected nil diffs for identical maps, got %v / %v", cb, ca)
	}
}

func TestDiff_NilInputs(t *testing.T) {
	cb, ca := Diff(nil, map[string]string{"name": "New"})
	if cb != nil {
		t.Errorf("expected nil before diff, got %v", cb)
	}
	if ca["name"] != "New" {
		t.Errorf("expected creation diff, got %v", ca)
	}

	cb, ca = Diff(nil, nil)
	if cb != nil || ca != nil {
		t.Errorf("expected nil diffs for nil inputs, got %v / %v", cb, ca)
	}
}
