package main

import (
	"errors"
	"time"
)

// Grid capacity. These match common spreadsheet limits; the store is
// sparse, so capacity costs nothing until cells are written.
const (
	maxRows = 1048576
	maxCols = 16384
)

// ErrOutOfBounds is returned by single-cell accessors when the coordinate
// falls outside [0, maxRows) x [0, maxCols). Range queries clip instead.
var ErrOutOfBounds = errors.New("cell coordinate out of bounds")

type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueDate
)

// CellValue is the tagged cell content variant. Only the field matching
// Kind is meaningful.
type CellValue struct {
	Kind ValueKind `json:"kind"`
	Str  string    `json:"str,omitempty"`
	Num  float64   `json:"num,omitempty"`
	Bool bool      `json:"bool,omitempty"`
	Date time.Time `json:"date,omitzero"`
}

func StringValue(s string) CellValue  { return CellValue{Kind: ValueString, Str: s} }
func NumberValue(n float64) CellValue { return CellValue{Kind: ValueNumber, Num: n} }
func BoolValue(b bool) CellValue      { return CellValue{Kind: ValueBool, Bool: b} }
func DateValue(t time.Time) CellValue { return CellValue{Kind: ValueDate, Date: t} }

// CellStyle is carried through the engine opaquely; the renderer owns its
// interpretation.
type CellStyle struct {
	Background string `json:"background,omitempty"`
	Color      string `json:"color,omitempty"`
	FontSize   int    `json:"font_size,omitempty"`
	Bold       bool   `json:"bold,omitempty"`
	Italic     bool   `json:"italic,omitempty"`
	Align      string `json:"align,omitempty"`
}

type Cell struct {
	Value   CellValue `json:"value"`
	Style   CellStyle `json:"style,omitempty"`
	Formula string    `json:"formula,omitempty"` // stored verbatim, never evaluated
}

// CellStore is the sparse cell map, keyed row -> col -> Cell. Keeping the
// row as the outer key means a row shift only re-keys the outer map and a
// column shift only visits rows that actually hold data.
type CellStore struct {
	data map[int]map[int]*Cell
	rows int // current row extent, <= maxRows
	cols int // current column extent, <= maxCols
}

func NewCellStore(rows, cols int) *CellStore {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if rows > maxRows {
		rows = maxRows
	}
	if cols > maxCols {
		cols = maxCols
	}
	return &CellStore{
		data: make(map[int]map[int]*Cell),
		rows: rows,
		cols: cols,
	}
}

func (cs *CellStore) Rows() int { return cs.rows }
func (cs *CellStore) Cols() int { return cs.cols }

// Len returns the number of materialized cells.
func (cs *CellStore) Len() int {
	n := 0
	for _, rowData := range cs.data {
		n += len(rowData)
	}
	return n
}

func inBounds(row, col int) bool {
	return row >= 0 && row < maxRows && col >= 0 && col < maxCols
}

// InExtent reports whether the coordinate lies inside the store's current
// extent, as opposed to the full addressable capacity. Snapshots and
// exports only walk the extent, so hosts must not accept writes beyond it.
func (cs *CellStore) InExtent(row, col int) bool {
	return row >= 0 && row < cs.rows && col >= 0 && col < cs.cols
}

// Get returns a read-only view of the cell. Unmaterialized coordinates
// read as the zero Cell; Get never writes to the store, so pure rendering
// passes cannot grow it.
func (cs *CellStore) Get(row, col int) (Cell, error) {
	if !inBounds(row, col) {
		return Cell{}, ErrOutOfBounds
	}
	if rowData, ok := cs.data[row]; ok {
		if cell, ok := rowData[col]; ok {
			return *cell, nil
		}
	}
	return Cell{}, nil
}

// GetOrCreate materializes a default cell on first touch and returns a
// pointer into the store. Write paths only.
func (cs *CellStore) GetOrCreate(row, col int) (*Cell, error) {
	if !inBounds(row, col) {
		return nil, ErrOutOfBounds
	}
	rowData := cs.data[row]
	if rowData == nil {
		rowData = make(map[int]*Cell)
		cs.data[row] = rowData
	}
	cell, ok := rowData[col]
	if !ok {
		cell = &Cell{}
		rowData[col] = cell
	}
	return cell, nil
}

// SetValue writes value and formula source for a cell, preserving its
// style.
func (cs *CellStore) SetValue(row, col int, value CellValue, formula string) error {
	cell, err := cs.GetOrCreate(row, col)
	if err != nil {
		return err
	}
	cell.Value = value
	cell.Formula = formula
	return nil
}

// SetStyle replaces the style of a cell, preserving value and formula.
func (cs *CellStore) SetStyle(row, col int, style CellStyle) error {
	cell, err := cs.GetOrCreate(row, col)
	if err != nil {
		return err
	}
	cell.Style = style
	return nil
}

// put materializes the full cell record at a coordinate. Callers are
// expected to have bounds-checked.
func (cs *CellStore) put(row, col int, cell Cell) {
	rowData := cs.data[row]
	if rowData == nil {
		rowData = make(map[int]*Cell)
		cs.data[row] = rowData
	}
	c := cell
	rowData[col] = &c
}

// delete removes a materialized cell, pruning the row map when it empties.
func (cs *CellStore) delete(row, col int) {
	if rowData, ok := cs.data[row]; ok {
		delete(rowData, col)
		if len(rowData) == 0 {
			delete(cs.data, row)
		}
	}
}

// materialized reports whether an explicit cell exists at the coordinate.
func (cs *CellStore) materialized(row, col int) bool {
	_, ok := cs.data[row][col]
	return ok
}

// Clear empties the store. Dimension tables are untouched.
func (cs *CellStore) Clear() {
	cs.data = make(map[int]map[int]*Cell)
}

// GetRange enumerates cells row-major over the rectangle spanned by the
// two corners (either order), clipped to the addressable space.
// Unmaterialized coordinates yield default cells.
func (cs *CellStore) GetRange(rowA, colA, rowB, colB int) []Cell {
	minRow, maxRow := minMax(rowA, rowB)
	minCol, maxCol := minMax(colA, colB)
	if minRow < 0 {
		minRow = 0
	}
	if minCol < 0 {
		minCol = 0
	}
	if maxRow >= maxRows {
		maxRow = maxRows - 1
	}
	if maxCol >= maxCols {
		maxCol = maxCols - 1
	}
	if minRow > maxRow || minCol > maxCol {
		return nil
	}
	out := make([]Cell, 0, (maxRow-minRow+1)*(maxCol-minCol+1))
	for r := minRow; r <= maxRow; r++ {
		rowData := cs.data[r]
		for c := minCol; c <= maxCol; c++ {
			if cell, ok := rowData[c]; ok {
				out = append(out, *cell)
			} else {
				out = append(out, Cell{})
			}
		}
	}
	return out
}

// InsertRow shifts every materialized cell with row >= at up one key and
// grows the extent. Returns false, leaving the store untouched, when the
// index is outside [0, rows] or the capacity is exhausted.
func (cs *CellStore) InsertRow(at int) bool {
	if at < 0 || at > cs.rows || cs.rows >= maxRows {
		return false
	}
	shifted := make(map[int]map[int]*Cell, len(cs.data))
	for r, rowData := range cs.data {
		if r >= at {
			shifted[r+1] = rowData
		} else {
			shifted[r] = rowData
		}
	}
	cs.data = shifted
	cs.rows++
	return true
}

// RemoveRow drops row at and re-keys everything below it up one. Returns
// false when the index is outside the current extent or this is the last
// row.
func (cs *CellStore) RemoveRow(at int) bool {
	if at < 0 || at >= cs.rows || cs.rows <= 1 {
		return false
	}
	shifted := make(map[int]map[int]*Cell, len(cs.data))
	for r, rowData := range cs.data {
		switch {
		case r == at:
			// dropped
		case r > at:
			shifted[r-1] = rowData
		default:
			shifted[r] = rowData
		}
	}
	cs.data = shifted
	cs.rows--
	return true
}

// InsertColumn is the column-axis mirror of InsertRow. Only rows that
// hold data are visited.
func (cs *CellStore) InsertColumn(at int) bool {
	if at < 0 || at > cs.cols || cs.cols >= maxCols {
		return false
	}
	for r, rowData := range cs.data {
		shifted := make(map[int]*Cell, len(rowData))
		for c, cell := range rowData {
			if c >= at {
				shifted[c+1] = cell
			} else {
				shifted[c] = cell
			}
		}
		cs.data[r] = shifted
	}
	cs.cols++
	return true
}

// RemoveColumn is the column-axis mirror of RemoveRow.
func (cs *CellStore) RemoveColumn(at int) bool {
	if at < 0 || at >= cs.cols || cs.cols <= 1 {
		return false
	}
	for r, rowData := range cs.data {
		shifted := make(map[int]*Cell, len(rowData))
		for c, cell := range rowData {
			switch {
			case c == at:
				// dropped
			case c > at:
				shifted[c-1] = cell
			default:
				shifted[c] = cell
			}
		}
		if len(shifted) == 0 {
			delete(cs.data, r)
		} else {
			cs.data[r] = shifted
		}
	}
	cs.cols--
	return true
}

// rowCells snapshots the materialized cells of one row, keyed by column.
func (cs *CellStore) rowCells(row int) map[int]Cell {
	out := make(map[int]Cell)
	for c, cell := range cs.data[row] {
		out[c] = *cell
	}
	return out
}

// colCells snapshots the materialized cells of one column, keyed by row.
func (cs *CellStore) colCells(col int) map[int]Cell {
	out := make(map[int]Cell)
	for r, rowData := range cs.data {
		if cell, ok := rowData[col]; ok {
			out[r] = *cell
		}
	}
	return out
}

func minMax(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
