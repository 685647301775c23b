package source

import (
	"encoding/json"
	"testing"
)

func TestTableValid(t *testing.T) {
	for _, table := range Tables {
		if !table.Valid() {
			t.Errorf("Table(%q).Valid() = false", table)
		}
	}
	for _, bad := range []Table{"", "customers", "Orders"} {
		if bad.Valid() {
			t.Errorf("Table(%q).Valid() = true", bad)
		}
	}
}

func TestChangedIDsJSON(t *testing.T) {
	var ids ChangedIDs
	if err := json.Unmarshal([]byte(`{"orders": [1, 2], "reviews": [9]}`), &ids); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(ids[TableOrders]) != 2 || ids[TableOrders][0] != 1 {
		t.Errorf("orders ids = %v", ids[TableOrders])
	}
	if len(ids[TableReviews]) != 1 {
		t.Errorf("reviews ids = %v", ids[TableReviews])
	}
}

func TestSnapshotEmptyAndLen(t *testing.T) {
	var snap Snapshot
	if !snap.Empty() || snap.Len() != 0 {
		t.Errorf("zero snapshot: Empty()=%v Len()=%d", snap.Empty(), snap.Len())
	}

	snap.Orders = []Order{{ID: 1}}
	snap.Reviews = []Review{{ID: 1}, {ID: 2}}
	if snap.Empty() {
		t.Error("non-empty snapshot reported Empty()")
	}
	if snap.Len() != 3 {
		t.Errorf("Len() = %d, want 3", snap.Len())
	}
}
