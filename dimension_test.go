package main

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sizesOf(dt *DimensionTable) []float64 {
	out := make([]float64, dt.Count())
	for i := range out {
		out[i] = dt.GetSize(i)
	}
	return out
}

func TestSetSizeClampsToMinimum(t *testing.T) {
	rows := NewRowTable(5, 0)
	rows.SetSize(2, 3)
	if got := rows.GetSize(2); got != minRowHeight {
		t.Errorf("row size = %v, want clamp to %v", got, minRowHeight)
	}

	cols := NewColTable(5, 0)
	cols.SetSize(0, 10)
	if got := cols.GetSize(0); got != minColWidth {
		t.Errorf("col size = %v, want clamp to %v", got, minColWidth)
	}

	// Out-of-range writes are ignored.
	rows.SetSize(-1, 99)
	rows.SetSize(5, 99)
	if got := sizesOf(rows); got[0] != defaultRowHeight || got[4] != defaultRowHeight {
		t.Errorf("out-of-range SetSize leaked: %v", got)
	}
}

func TestGetPositionIncludesHeaderOffset(t *testing.T) {
	dt := NewDimensionTable(4, 20, 10, 30, 100)
	want := []float64{30, 50, 70, 90, 110}
	for i, w := range want {
		if got := dt.GetPosition(i); got != w {
			t.Errorf("GetPosition(%d) = %v, want %v", i, got, w)
		}
	}
	if got := dt.TotalExtent(); got != 80 {
		t.Errorf("TotalExtent = %v, want 80", got)
	}
}

func TestPositionCacheInvalidation(t *testing.T) {
	dt := NewDimensionTable(3, 20, 10, 0, 100)
	if got := dt.GetPosition(2); got != 40 {
		t.Fatalf("GetPosition(2) = %v, want 40", got)
	}

	dt.SetSize(0, 50)
	if got := dt.GetPosition(2); got != 70 {
		t.Errorf("after resize, GetPosition(2) = %v, want 70", got)
	}

	dt.InsertAt(1)
	if got := dt.GetPosition(3); got != 90 {
		t.Errorf("after insert, GetPosition(3) = %v, want 90", got)
	}

	dt.RemoveAt(0)
	if got := dt.GetPosition(0); got != 0 {
		t.Errorf("after remove, GetPosition(0) = %v, want 0", got)
	}
}

func TestInsertRemoveShift(t *testing.T) {
	dt := NewDimensionTable(3, 20, 10, 0, 100)
	dt.SetSize(0, 11)
	dt.SetSize(1, 12)
	dt.SetSize(2, 13)

	if !dt.InsertAt(1) {
		t.Fatal("InsertAt(1) rejected")
	}
	// New entry takes the axis default, not a neighbor's size.
	if diff := cmp.Diff([]float64{11, 20, 12, 13}, sizesOf(dt)); diff != "" {
		t.Errorf("after insert (-want +got):\n%s", diff)
	}

	if !dt.RemoveAt(1) {
		t.Fatal("RemoveAt(1) rejected")
	}
	if diff := cmp.Diff([]float64{11, 12, 13}, sizesOf(dt)); diff != "" {
		t.Errorf("after remove (-want +got):\n%s", diff)
	}

	if dt.InsertAt(-1) || dt.InsertAt(4) {
		t.Error("out-of-range insert accepted")
	}
	if dt.RemoveAt(-1) || dt.RemoveAt(3) {
		t.Error("out-of-range remove accepted")
	}
}

func TestRemoveLastEntryRejected(t *testing.T) {
	dt := NewDimensionTable(1, 20, 10, 0, 100)
	if dt.RemoveAt(0) {
		t.Error("removing the only entry must be rejected")
	}
}

func TestFindIndexAtPixelBoundary(t *testing.T) {
	dt := NewDimensionTable(4, 25, 10, 0, 100)

	tests := []struct {
		pixel  float64
		zoom   float64
		scroll float64
		want   int
	}{
		{0, 1, 0, 0},
		{24, 1, 0, 0},
		{25, 1, 0, 1}, // exact shared edge belongs to the next index
		{50, 1, 0, 2},
		{99, 1, 0, 3},
		{100, 1, 0, 3}, // past the end clamps to the last index
		{-5, 1, 0, 0},  // before the start clamps to the first
		{50, 2, 0, 1},  // zoomed: device 50 is content 25
		{0, 1, 60, 2},  // scrolled: content 60 is inside index 2
		{15, 1, 60, 3}, // scrolled onto the exact 75 edge
	}
	for _, tc := range tests {
		if got := dt.FindIndexAtPixel(tc.pixel, tc.zoom, tc.scroll); got != tc.want {
			t.Errorf("FindIndexAtPixel(%v, zoom=%v, scroll=%v) = %d, want %d",
				tc.pixel, tc.zoom, tc.scroll, got, tc.want)
		}
	}
}

// referenceIndexScan is the linear-time oracle for FindIndexAtPixel.
func referenceIndexScan(sizes []float64, content float64) int {
	if content < 0 {
		return 0
	}
	acc := 0.0
	for i, sz := range sizes {
		if content < acc+sz {
			return i
		}
		acc += sz
	}
	return len(sizes) - 1
}

func TestFindIndexAtPixelRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 10000; iter++ {
		n := 1 + rng.Intn(40)
		dt := NewDimensionTable(n, 25, 5, 0, maxRows)
		for i := 0; i < n; i++ {
			dt.SetSize(i, 5+float64(rng.Intn(60)))
		}
		sizes := sizesOf(dt)

		zoom := 0.25 + rng.Float64()*2.75
		scroll := rng.Float64() * 200
		pixel := -10 + rng.Float64()*2000

		content := pixel/zoom + scroll
		want := referenceIndexScan(sizes, content)
		if got := dt.FindIndexAtPixel(pixel, zoom, scroll); got != want {
			t.Fatalf("iter %d: sizes=%v pixel=%v zoom=%v scroll=%v: got %d, want %d",
				iter, sizes, pixel, zoom, scroll, got, want)
		}

		// Exercise the exact-boundary convention too: each interior edge
		// resolves to the index after it.
		edge := 0.0
		for i := 0; i < n-1; i++ {
			edge += sizes[i]
			if got := dt.FindIndexAtPixel(edge, 1, 0); got != i+1 {
				t.Fatalf("iter %d: edge %v after index %d resolved to %d, want %d",
					iter, edge, i, got, i+1)
			}
		}
	}
}

func TestFindBoundaryAtPixel(t *testing.T) {
	dt := NewDimensionTable(4, 25, 10, 0, 100)

	tests := []struct {
		name   string
		pixel  float64
		zoom   float64
		scroll float64
		tol    float64
		want   int
		ok     bool
	}{
		{"on first interior edge", 25, 1, 0, 3, 0, true},
		{"just before edge", 23, 1, 0, 3, 0, true},
		{"just after edge", 27, 1, 0, 3, 0, true},
		{"mid cell", 37, 1, 0, 3, 0, false},
		{"trailing edge of last", 100, 1, 0, 3, 3, true},
		{"zoomed edge", 50, 2, 0, 3, 0, true}, // content 25
		{"scrolled edge", 15, 1, 10, 3, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := dt.FindBoundaryAtPixel(tc.pixel, tc.zoom, tc.scroll, tc.tol)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("boundary = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestFindIndexAgreesWithPositions(t *testing.T) {
	// The hit-test and the position table must agree: every index
	// contains its own leading edge plus any offset short of the next.
	dt := NewDimensionTable(6, 25, 10, 40, 100)
	dt.SetSize(2, 90)
	dt.SetSize(4, 33)
	for i := 0; i < dt.Count(); i++ {
		lead := dt.GetPosition(i) - dt.HeaderOffset()
		if got := dt.FindIndexAtPixel(lead, 1, 0); got != i {
			t.Errorf("leading edge of %d resolved to %d", i, got)
		}
		mid := lead + dt.GetSize(i)/2
		if got := dt.FindIndexAtPixel(mid, 1, 0); got != i {
			t.Errorf("midpoint of %d resolved to %d", i, got)
		}
	}
}
