package main

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// storeSnapshot captures the full observable state of a CellStore for
// before/after comparison.
type storeSnapshot struct {
	Cells map[CellRef]Cell
	Rows  int
	Cols  int
}

func snapshotStore(cs *CellStore) storeSnapshot {
	snap := storeSnapshot{
		Cells: make(map[CellRef]Cell),
		Rows:  cs.Rows(),
		Cols:  cs.Cols(),
	}
	for r, rowData := range cs.data {
		for c, cell := range rowData {
			snap.Cells[CellRef{Row: r, Col: c}] = *cell
		}
	}
	return snap
}

func TestSetValueRoundTrip(t *testing.T) {
	cs := NewCellStore(5, 5)

	tests := []struct {
		name  string
		row   int
		col   int
		value CellValue
	}{
		{"string", 0, 0, StringValue("hello")},
		{"number", 1, 2, NumberValue(3.14)},
		{"bool", 2, 3, BoolValue(true)},
		{"date", 4, 4, DateValue(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))},
		{"empty", 3, 0, CellValue{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := cs.SetValue(tc.row, tc.col, tc.value, ""); err != nil {
				t.Fatalf("SetValue: %v", err)
			}
			got, err := cs.Get(tc.row, tc.col)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if diff := cmp.Diff(tc.value, got.Value); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetDoesNotMaterialize(t *testing.T) {
	cs := NewCellStore(10, 10)

	for r := 0; r < 10; r++ {
		for c := 0; c < 10; c++ {
			if _, err := cs.Get(r, c); err != nil {
				t.Fatalf("Get(%d,%d): %v", r, c, err)
			}
		}
	}
	if got := cs.Len(); got != 0 {
		t.Errorf("store grew to %d cells from reads alone", got)
	}

	// Range reads must not materialize either.
	cs.GetRange(0, 0, 9, 9)
	if got := cs.Len(); got != 0 {
		t.Errorf("store grew to %d cells from a range read", got)
	}
}

func TestGetOrCreateMaterializes(t *testing.T) {
	cs := NewCellStore(5, 5)

	cell, err := cs.GetOrCreate(1, 1)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if cs.Len() != 1 {
		t.Fatalf("Len = %d, want 1", cs.Len())
	}
	cell.Value = StringValue("via pointer")

	got, _ := cs.Get(1, 1)
	if got.Value.Str != "via pointer" {
		t.Errorf("write through returned pointer not visible: %+v", got)
	}

	// Second touch returns the same cell.
	again, _ := cs.GetOrCreate(1, 1)
	if again != cell {
		t.Error("GetOrCreate returned a different pointer on second touch")
	}
}

func TestOutOfBoundsErrors(t *testing.T) {
	cs := NewCellStore(5, 5)

	coords := [][2]int{
		{-1, 0}, {0, -1}, {maxRows, 0}, {0, maxCols},
	}
	for _, rc := range coords {
		if _, err := cs.Get(rc[0], rc[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Get(%d,%d) err = %v, want ErrOutOfBounds", rc[0], rc[1], err)
		}
		if _, err := cs.GetOrCreate(rc[0], rc[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("GetOrCreate(%d,%d) err = %v, want ErrOutOfBounds", rc[0], rc[1], err)
		}
		if err := cs.SetValue(rc[0], rc[1], StringValue("x"), ""); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("SetValue(%d,%d) err = %v, want ErrOutOfBounds", rc[0], rc[1], err)
		}
		if err := cs.SetStyle(rc[0], rc[1], CellStyle{Bold: true}); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("SetStyle(%d,%d) err = %v, want ErrOutOfBounds", rc[0], rc[1], err)
		}
	}
	if cs.Len() != 0 {
		t.Errorf("rejected writes materialized %d cells", cs.Len())
	}
}

func TestSetStylePreservesValue(t *testing.T) {
	cs := NewCellStore(5, 5)
	if err := cs.SetValue(2, 2, NumberValue(42), "=6*7"); err != nil {
		t.Fatal(err)
	}
	if err := cs.SetStyle(2, 2, CellStyle{Background: "#ff0", Bold: true}); err != nil {
		t.Fatal(err)
	}
	got, _ := cs.Get(2, 2)
	if got.Value.Num != 42 || got.Formula != "=6*7" {
		t.Errorf("style write clobbered value/formula: %+v", got)
	}
	if !got.Style.Bold || got.Style.Background != "#ff0" {
		t.Errorf("style not applied: %+v", got.Style)
	}
}

func TestGetRangeRowMajor(t *testing.T) {
	cs := NewCellStore(5, 5)
	cs.SetValue(1, 1, StringValue("a"), "")
	cs.SetValue(1, 2, StringValue("b"), "")
	cs.SetValue(2, 1, StringValue("c"), "")

	// Corners given in reversed order; consumers normalize.
	got := cs.GetRange(2, 2, 1, 1)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	want := []string{"a", "b", "c", ""}
	for i, cell := range got {
		if cell.Value.Str != want[i] {
			t.Errorf("cell %d = %q, want %q", i, cell.Value.Str, want[i])
		}
	}
}

func TestGetRangeClips(t *testing.T) {
	cs := NewCellStore(5, 5)
	cs.SetValue(0, 0, StringValue("corner"), "")

	got := cs.GetRange(-3, -3, 0, 0)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 after clipping", len(got))
	}
	if got[0].Value.Str != "corner" {
		t.Errorf("clipped range lost the corner cell: %+v", got[0])
	}
	if cs.GetRange(-5, -5, -1, -1) != nil {
		t.Error("fully out-of-bounds range should be empty")
	}
}

// The displacement scenario: a populated cell below the insertion point
// moves down one row, the vacated coordinate reads as default, and the
// paired removal restores everything.
func TestInsertRemoveRowDisplacement(t *testing.T) {
	cs := NewCellStore(5, 5)
	if err := cs.SetValue(2, 0, StringValue("X"), ""); err != nil {
		t.Fatal(err)
	}

	if !cs.InsertRow(2) {
		t.Fatal("InsertRow(2) rejected")
	}
	if got, _ := cs.Get(3, 0); got.Value.Str != "X" {
		t.Errorf("after insert, (3,0) = %+v, want X", got.Value)
	}
	if got, _ := cs.Get(2, 0); got.Value.Kind != ValueEmpty {
		t.Errorf("after insert, (2,0) = %+v, want default", got.Value)
	}
	if cs.Rows() != 6 {
		t.Errorf("Rows = %d, want 6", cs.Rows())
	}

	if !cs.RemoveRow(2) {
		t.Fatal("RemoveRow(2) rejected")
	}
	if got, _ := cs.Get(2, 0); got.Value.Str != "X" {
		t.Errorf("after remove, (2,0) = %+v, want X", got.Value)
	}
	if cs.Rows() != 5 {
		t.Errorf("Rows = %d, want 5", cs.Rows())
	}
}

func TestInsertRemoveRowInverse(t *testing.T) {
	cs := NewCellStore(8, 8)
	cs.SetValue(0, 0, StringValue("top"), "")
	cs.SetValue(3, 3, NumberValue(1), "")
	cs.SetValue(7, 7, StringValue("bottom"), "")

	before := snapshotStore(cs)
	for k := 0; k <= 8; k++ {
		if !cs.InsertRow(k) {
			t.Fatalf("InsertRow(%d) rejected", k)
		}
		if !cs.RemoveRow(k) {
			t.Fatalf("RemoveRow(%d) rejected", k)
		}
		if diff := cmp.Diff(before, snapshotStore(cs)); diff != "" {
			t.Fatalf("insert/remove at %d not inverse (-want +got):\n%s", k, diff)
		}
	}
}

func TestInsertRemoveColumnInverse(t *testing.T) {
	cs := NewCellStore(8, 8)
	cs.SetValue(0, 0, StringValue("left"), "")
	cs.SetValue(3, 3, NumberValue(1), "")
	cs.SetValue(7, 7, StringValue("right"), "")

	before := snapshotStore(cs)
	for k := 0; k <= 8; k++ {
		if !cs.InsertColumn(k) {
			t.Fatalf("InsertColumn(%d) rejected", k)
		}
		if !cs.RemoveColumn(k) {
			t.Fatalf("RemoveColumn(%d) rejected", k)
		}
		if diff := cmp.Diff(before, snapshotStore(cs)); diff != "" {
			t.Fatalf("insert/remove at %d not inverse (-want +got):\n%s", k, diff)
		}
	}
}

func TestColumnDisplacement(t *testing.T) {
	cs := NewCellStore(5, 5)
	cs.SetValue(0, 2, StringValue("C"), "")
	cs.SetValue(0, 1, StringValue("B"), "")

	if !cs.InsertColumn(2) {
		t.Fatal("InsertColumn rejected")
	}
	if got, _ := cs.Get(0, 3); got.Value.Str != "C" {
		t.Errorf("(0,3) = %+v, want C", got.Value)
	}
	if got, _ := cs.Get(0, 1); got.Value.Str != "B" {
		t.Errorf("(0,1) = %+v, want B untouched", got.Value)
	}

	if !cs.RemoveColumn(1) {
		t.Fatal("RemoveColumn rejected")
	}
	// B dropped, C shifts back to 2.
	if got, _ := cs.Get(0, 2); got.Value.Str != "C" {
		t.Errorf("(0,2) = %+v, want C", got.Value)
	}
	if got, _ := cs.Get(0, 1); got.Value.Kind != ValueEmpty {
		t.Errorf("(0,1) = %+v, want default after removal", got.Value)
	}
}

func TestStructuralRejection(t *testing.T) {
	cs := NewCellStore(3, 3)
	cs.SetValue(1, 1, StringValue("keep"), "")
	before := snapshotStore(cs)

	tests := []struct {
		name string
		op   func() bool
	}{
		{"insert row negative", func() bool { return cs.InsertRow(-1) }},
		{"insert row past extent", func() bool { return cs.InsertRow(4) }},
		{"remove row negative", func() bool { return cs.RemoveRow(-1) }},
		{"remove row at extent", func() bool { return cs.RemoveRow(3) }},
		{"insert col negative", func() bool { return cs.InsertColumn(-1) }},
		{"insert col past extent", func() bool { return cs.InsertColumn(4) }},
		{"remove col at extent", func() bool { return cs.RemoveColumn(3) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.op() {
				t.Fatal("operation accepted, want rejection")
			}
			if diff := cmp.Diff(before, snapshotStore(cs)); diff != "" {
				t.Errorf("rejected op mutated store (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRemoveLastRowRejected(t *testing.T) {
	cs := NewCellStore(1, 1)
	if cs.RemoveRow(0) {
		t.Error("removing the only row must be rejected")
	}
	if cs.RemoveColumn(0) {
		t.Error("removing the only column must be rejected")
	}
}

func TestClear(t *testing.T) {
	cs := NewCellStore(5, 5)
	cs.SetValue(0, 0, StringValue("a"), "")
	cs.SetValue(4, 4, StringValue("b"), "")

	cs.Clear()
	if cs.Len() != 0 {
		t.Errorf("Len = %d after Clear", cs.Len())
	}
	// Extents survive a clear.
	if cs.Rows() != 5 || cs.Cols() != 5 {
		t.Errorf("extent changed: %dx%d", cs.Rows(), cs.Cols())
	}
}
