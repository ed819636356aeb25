package main

import "sort"

// Axis defaults. Rows and columns are independent instances of the same
// table; only these constants differ between the two.
const (
	defaultRowHeight = 25.0
	minRowHeight     = 15.0
	defaultColWidth  = 80.0
	minColWidth      = 50.0
)

// DimensionTable holds per-index sizes for one axis plus a lazily rebuilt
// prefix-sum cache of cumulative positions. Positions are measured in
// content-space units from the sheet edge and include the fixed header
// band offset.
type DimensionTable struct {
	sizes        []float64
	defaultSize  float64
	minSize      float64
	headerOffset float64
	maxCount     int

	positions []float64 // positions[i] = headerOffset + sum(sizes[0..i)); len = len(sizes)+1
	dirty     bool
}

func NewDimensionTable(count int, defaultSize, minSize, headerOffset float64, maxCount int) *DimensionTable {
	if count < 1 {
		count = 1
	}
	if count > maxCount {
		count = maxCount
	}
	if defaultSize < minSize {
		defaultSize = minSize
	}
	sizes := make([]float64, count)
	for i := range sizes {
		sizes[i] = defaultSize
	}
	return &DimensionTable{
		sizes:        sizes,
		defaultSize:  defaultSize,
		minSize:      minSize,
		headerOffset: headerOffset,
		maxCount:     maxCount,
		dirty:        true,
	}
}

// NewRowTable builds the row-axis table with the given header band height.
func NewRowTable(count int, headerHeight float64) *DimensionTable {
	return NewDimensionTable(count, defaultRowHeight, minRowHeight, headerHeight, maxRows)
}

// NewColTable builds the column-axis table with the given header band width.
func NewColTable(count int, headerWidth float64) *DimensionTable {
	return NewDimensionTable(count, defaultColWidth, minColWidth, headerWidth, maxCols)
}

func (dt *DimensionTable) Count() int            { return len(dt.sizes) }
func (dt *DimensionTable) DefaultSize() float64  { return dt.defaultSize }
func (dt *DimensionTable) MinSize() float64      { return dt.minSize }
func (dt *DimensionTable) HeaderOffset() float64 { return dt.headerOffset }

func (dt *DimensionTable) GetSize(index int) float64 {
	if index < 0 || index >= len(dt.sizes) {
		return 0
	}
	return dt.sizes[index]
}

// SetSize writes a size, clamped to the axis minimum. Out-of-range
// indices are ignored.
func (dt *DimensionTable) SetSize(index int, size float64) {
	if index < 0 || index >= len(dt.sizes) {
		return
	}
	if size < dt.minSize {
		size = dt.minSize
	}
	dt.sizes[index] = size
	dt.dirty = true
}

// GetPosition returns the cumulative content-space offset of the leading
// edge of index, including the header band. index == Count() yields the
// position one past the last entry.
func (dt *DimensionTable) GetPosition(index int) float64 {
	dt.ensurePositions()
	if index < 0 {
		return dt.headerOffset
	}
	if index >= len(dt.positions) {
		index = len(dt.positions) - 1
	}
	return dt.positions[index]
}

// TotalExtent is the summed size of all entries, excluding the header.
func (dt *DimensionTable) TotalExtent() float64 {
	dt.ensurePositions()
	return dt.positions[len(dt.positions)-1] - dt.headerOffset
}

func (dt *DimensionTable) ensurePositions() {
	if !dt.dirty && dt.positions != nil {
		return
	}
	dt.positions = make([]float64, len(dt.sizes)+1)
	pos := dt.headerOffset
	for i, sz := range dt.sizes {
		dt.positions[i] = pos
		pos += sz
	}
	dt.positions[len(dt.sizes)] = pos
	dt.dirty = false
}

// InsertAt shifts sizes at and after index down by one and gives the new
// entry the axis default size. Mirrors CellStore.InsertRow/InsertColumn
// index semantics.
func (dt *DimensionTable) InsertAt(index int) bool {
	if index < 0 || index > len(dt.sizes) || len(dt.sizes) >= dt.maxCount {
		return false
	}
	dt.sizes = append(dt.sizes, 0)
	copy(dt.sizes[index+1:], dt.sizes[index:])
	dt.sizes[index] = dt.defaultSize
	dt.dirty = true
	return true
}

// RemoveAt drops the size at index, shifting the rest up by one.
func (dt *DimensionTable) RemoveAt(index int) bool {
	if index < 0 || index >= len(dt.sizes) || len(dt.sizes) <= 1 {
		return false
	}
	dt.sizes = append(dt.sizes[:index], dt.sizes[index+1:]...)
	dt.dirty = true
	return true
}

// indexAtContent maps a content-space offset (header excluded) to the
// index whose span contains it. An offset exactly on the shared edge
// between i and i+1 belongs to i+1; results clamp to [0, Count()-1].
func (dt *DimensionTable) indexAtContent(offset float64) int {
	dt.ensurePositions()
	if offset < 0 {
		return 0
	}
	n := len(dt.sizes)
	// Smallest i whose trailing edge lies strictly beyond the offset.
	idx := sort.Search(n, func(i int) bool {
		return offset < dt.positions[i+1]-dt.headerOffset
	})
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// FindIndexAtPixel maps a device pixel offset, already adjusted for the
// header band, to a logical index under the given zoom and scroll.
func (dt *DimensionTable) FindIndexAtPixel(pixel, zoom, scroll float64) int {
	if zoom <= 0 {
		zoom = 1
	}
	return dt.indexAtContent(pixel/zoom + scroll)
}

// FindBoundaryAtPixel hit-tests resize handles: it reports the index
// whose trailing edge lies within tolerance device pixels of the given
// pixel offset. The edge-ownership convention matches FindIndexAtPixel:
// a pixel exactly on the edge between i and i+1 resolves to i+1 first,
// so its leading edge (the same boundary) is checked before the trailing
// one.
func (dt *DimensionTable) FindBoundaryAtPixel(pixel, zoom, scroll, tolerance float64) (int, bool) {
	if zoom <= 0 {
		zoom = 1
	}
	idx := dt.FindIndexAtPixel(pixel, zoom, scroll)
	dt.ensurePositions()
	edgeDevice := func(i int) float64 {
		// Device position of the boundary after index i-1 / before index i.
		return (dt.positions[i] - dt.headerOffset - scroll) * zoom
	}
	if idx > 0 && abs(edgeDevice(idx)-pixel) <= tolerance {
		return idx - 1, true
	}
	if abs(edgeDevice(idx+1)-pixel) <= tolerance {
		return idx, true
	}
	return 0, false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
