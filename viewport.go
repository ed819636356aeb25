package main

// Zoom limits and fixed header band extents, in device-independent pixels.
const (
	minZoom = 0.25
	maxZoom = 3.0

	defaultHeaderWidth  = 50.0
	defaultHeaderHeight = 24.0
)

// ViewportMapper translates between device pixels and logical grid
// indices under the current scroll and zoom. Scroll is kept in
// content-space units, so it is stable across zoom changes.
type ViewportMapper struct {
	rowTable *DimensionTable
	colTable *DimensionTable

	scrollX, scrollY float64
	zoom             float64

	viewportWidth  float64
	viewportHeight float64
	headerWidth    float64
	headerHeight   float64
}

func NewViewportMapper(rowTable, colTable *DimensionTable, viewportWidth, viewportHeight float64) *ViewportMapper {
	return &ViewportMapper{
		rowTable:       rowTable,
		colTable:       colTable,
		zoom:           1.0,
		viewportWidth:  viewportWidth,
		viewportHeight: viewportHeight,
		headerWidth:    colTable.HeaderOffset(),
		headerHeight:   rowTable.HeaderOffset(),
	}
}

func (vm *ViewportMapper) Zoom() float64              { return vm.zoom }
func (vm *ViewportMapper) Scroll() (float64, float64) { return vm.scrollX, vm.scrollY }

// SetViewportSize records the device extent of the drawing surface and
// re-clamps scroll against the new bounds.
func (vm *ViewportMapper) SetViewportSize(width, height float64) {
	vm.viewportWidth = width
	vm.viewportHeight = height
	vm.SetScroll(vm.scrollX, vm.scrollY)
}

// contentSpan returns the content-space extent covered by the viewport's
// content area (header bands excluded) on each axis.
func (vm *ViewportMapper) contentSpan() (w, h float64) {
	w = (vm.viewportWidth - vm.headerWidth) / vm.zoom
	h = (vm.viewportHeight - vm.headerHeight) / vm.zoom
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return w, h
}

// SetScroll clamps to [0, maxScroll] per axis, where maxScroll is the
// total content extent minus the visible span.
func (vm *ViewportMapper) SetScroll(x, y float64) {
	spanW, spanH := vm.contentSpan()
	maxX := vm.colTable.TotalExtent() - spanW
	maxY := vm.rowTable.TotalExtent() - spanH
	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}
	vm.scrollX = clamp(x, 0, maxX)
	vm.scrollY = clamp(y, 0, maxY)
}

// SetZoom clamps to [minZoom, maxZoom] and recomputes scroll so the
// content point at the viewport center stays centered after rescaling.
func (vm *ViewportMapper) SetZoom(zoom float64) {
	zoom = clamp(zoom, minZoom, maxZoom)
	if zoom == vm.zoom {
		return
	}
	// Content point currently under the viewport center.
	centerX := vm.scrollX + (vm.viewportWidth/2-vm.headerWidth)/vm.zoom
	centerY := vm.scrollY + (vm.viewportHeight/2-vm.headerHeight)/vm.zoom

	vm.zoom = zoom
	x := centerX - (vm.viewportWidth/2-vm.headerWidth)/zoom
	y := centerY - (vm.viewportHeight/2-vm.headerHeight)/zoom
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	vm.scrollX = x
	vm.scrollY = y
}

// VisibleRowRange returns the smallest contiguous index interval covering
// every row intersecting the viewport content area. The row containing
// the scroll offset is included even if it only partially precedes the
// viewport start; an index whose leading edge sits exactly on the
// viewport end has no visible pixels and is excluded.
func (vm *ViewportMapper) VisibleRowRange() (int, int) {
	_, spanH := vm.contentSpan()
	return visibleRange(vm.rowTable, vm.scrollY, spanH)
}

// VisibleColRange is the column-axis mirror of VisibleRowRange.
func (vm *ViewportMapper) VisibleColRange() (int, int) {
	spanW, _ := vm.contentSpan()
	return visibleRange(vm.colTable, vm.scrollX, spanW)
}

func visibleRange(dt *DimensionTable, scroll, span float64) (int, int) {
	start := dt.indexAtContent(scroll)
	end := dt.indexAtContent(scroll + span)
	if end > start && dt.GetPosition(end)-dt.HeaderOffset() == scroll+span {
		end--
	}
	return start, end
}

// CellAtPixel resolves a device pixel to the logical cell beneath it.
// Pixels inside either header band resolve to nothing.
func (vm *ViewportMapper) CellAtPixel(x, y float64) (row, col int, ok bool) {
	if x < vm.headerWidth || y < vm.headerHeight {
		return 0, 0, false
	}
	row = vm.rowTable.FindIndexAtPixel(y-vm.headerHeight, vm.zoom, vm.scrollY)
	col = vm.colTable.FindIndexAtPixel(x-vm.headerWidth, vm.zoom, vm.scrollX)
	return row, col, true
}

// CellOrigin returns the device pixel of a cell's top-left corner under
// the current scroll and zoom. The renderer uses this to place cell
// rectangles and text.
func (vm *ViewportMapper) CellOrigin(row, col int) (x, y float64) {
	x = vm.headerWidth + (vm.colTable.GetPosition(col)-vm.colTable.HeaderOffset()-vm.scrollX)*vm.zoom
	y = vm.headerHeight + (vm.rowTable.GetPosition(row)-vm.rowTable.HeaderOffset()-vm.scrollY)*vm.zoom
	return x, y
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
