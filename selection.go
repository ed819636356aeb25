package main

// CellRef names one logical cell coordinate.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// SelectionRange is a rectangular region of logical indices. The start
// and end fields are drag anchors in gesture order, not sorted; every
// consumer normalizes through NormalizedBounds. Whole-row and
// whole-column selections are just ranges whose opposite axis spans
// [0, extent-1]; callers build them with Start/Extend like any other.
type SelectionRange struct {
	startRow, startCol int
	endRow, endCol     int
	active             bool
}

func NewSelectionRange() *SelectionRange {
	return &SelectionRange{}
}

// Start sets both anchors to the same point and activates the range.
func (sr *SelectionRange) Start(row, col int) {
	sr.startRow, sr.startCol = row, col
	sr.endRow, sr.endCol = row, col
	sr.active = true
}

// Extend moves only the end anchor, leaving the start anchor where the
// drag began.
func (sr *SelectionRange) Extend(row, col int) {
	sr.endRow, sr.endCol = row, col
}

// Clear deactivates the range. The anchor values are left in place so a
// subsequent query of the last selection is still possible.
func (sr *SelectionRange) Clear() {
	sr.active = false
}

func (sr *SelectionRange) IsActive() bool { return sr.active }

// Anchors returns the raw drag anchors in gesture order.
func (sr *SelectionRange) Anchors() (startRow, startCol, endRow, endCol int) {
	return sr.startRow, sr.startCol, sr.endRow, sr.endCol
}

// NormalizedBounds returns the sorted rectangle spanned by the anchors.
func (sr *SelectionRange) NormalizedBounds() (minRow, maxRow, minCol, maxCol int) {
	minRow, maxRow = minMax(sr.startRow, sr.endRow)
	minCol, maxCol = minMax(sr.startCol, sr.endCol)
	return minRow, maxRow, minCol, maxCol
}

// Contains reports whether the coordinate lies inside the active range,
// bounds inclusive. Always false while inactive.
func (sr *SelectionRange) Contains(row, col int) bool {
	if !sr.active {
		return false
	}
	minRow, maxRow, minCol, maxCol := sr.NormalizedBounds()
	return row >= minRow && row <= maxRow && col >= minCol && col <= maxCol
}

// Enumerate lists every coordinate of the active range row-major. The
// result length is exactly (maxRow-minRow+1) * (maxCol-minCol+1); an
// inactive range enumerates to nothing.
func (sr *SelectionRange) Enumerate() []CellRef {
	if !sr.active {
		return nil
	}
	minRow, maxRow, minCol, maxCol := sr.NormalizedBounds()
	out := make([]CellRef, 0, (maxRow-minRow+1)*(maxCol-minCol+1))
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			out = append(out, CellRef{Row: r, Col: c})
		}
	}
	return out
}
