package main

// Command is a reversible grid mutation. Execute applies the captured
// post-state and reports whether the mutation took effect; a false return
// guarantees nothing changed. Undo restores the captured pre-state and is
// only called after a successful Execute.
type Command interface {
	Execute() bool
	Undo()
}

// defaultHistoryLimit bounds the undo ledger; the oldest entry is evicted
// once it overflows.
const defaultHistoryLimit = 100

// CommandStack is the two-stack undo/redo ledger. Every mutation of the
// grid flows through Execute; direct mutation of the store or dimension
// tables from the host would break replay.
type CommandStack struct {
	undo     []Command
	redo     []Command
	capacity int
}

func NewCommandStack(capacity int) *CommandStack {
	if capacity <= 0 {
		capacity = defaultHistoryLimit
	}
	return &CommandStack{capacity: capacity}
}

// Execute runs the command, records it for undo, and clears the redo
// stack. Commands rejected by the grid (structural no-ops) are not
// recorded and leave the ledger untouched.
func (st *CommandStack) Execute(cmd Command) bool {
	if !cmd.Execute() {
		return false
	}
	st.undo = append(st.undo, cmd)
	if len(st.undo) > st.capacity {
		// Evict oldest; shift rather than re-slice so the backing
		// array does not pin evicted commands.
		copy(st.undo, st.undo[1:])
		st.undo[len(st.undo)-1] = nil
		st.undo = st.undo[:len(st.undo)-1]
	}
	st.redo = st.redo[:0]
	return true
}

// Undo reverses the most recent command. Returns false on an empty
// history.
func (st *CommandStack) Undo() bool {
	if len(st.undo) == 0 {
		return false
	}
	cmd := st.undo[len(st.undo)-1]
	st.undo = st.undo[:len(st.undo)-1]
	cmd.Undo()
	st.redo = append(st.redo, cmd)
	return true
}

// Redo re-applies the most recently undone command.
func (st *CommandStack) Redo() bool {
	if len(st.redo) == 0 {
		return false
	}
	cmd := st.redo[len(st.redo)-1]
	st.redo = st.redo[:len(st.redo)-1]
	cmd.Execute()
	st.undo = append(st.undo, cmd)
	return true
}

func (st *CommandStack) CanUndo() bool { return len(st.undo) > 0 }
func (st *CommandStack) CanRedo() bool { return len(st.redo) > 0 }
func (st *CommandStack) UndoDepth() int { return len(st.undo) }
func (st *CommandStack) RedoDepth() int { return len(st.redo) }

// Clear resets both stacks. Only an explicit session reset calls this.
func (st *CommandStack) Clear() {
	st.undo = nil
	st.redo = nil
}

// CompositeCommand groups commands into one atomic history entry.
// Execute runs children in list order; Undo runs them in reverse. A
// child failing mid-way rolls back the children already executed, so the
// composite is all-or-nothing like every other command.
type CompositeCommand struct {
	commands []Command
}

func NewCompositeCommand(commands ...Command) *CompositeCommand {
	return &CompositeCommand{commands: commands}
}

func (cc *CompositeCommand) Add(cmd Command) { cc.commands = append(cc.commands, cmd) }

// Count reports the number of children. Callers must not push an empty
// composite onto the stack.
func (cc *CompositeCommand) Count() int { return len(cc.commands) }

func (cc *CompositeCommand) Execute() bool {
	for i, cmd := range cc.commands {
		if !cmd.Execute() {
			for j := i - 1; j >= 0; j-- {
				cc.commands[j].Undo()
			}
			return false
		}
	}
	return true
}

func (cc *CompositeCommand) Undo() {
	for i := len(cc.commands) - 1; i >= 0; i-- {
		cc.commands[i].Undo()
	}
}

// EditCellCommand replaces one cell's full record (value, style, formula).
// The pre-state is captured at construction; undo removes the cell again
// if it was never materialized before the edit.
type EditCellCommand struct {
	store    *CellStore
	row, col int
	oldCell  Cell
	newCell  Cell
	existed  bool
}

func NewEditCellCommand(store *CellStore, row, col int, newCell Cell) (*EditCellCommand, error) {
	oldCell, err := store.Get(row, col)
	if err != nil {
		return nil, err
	}
	return &EditCellCommand{
		store:   store,
		row:     row,
		col:     col,
		oldCell: oldCell,
		newCell: newCell,
		existed: store.materialized(row, col),
	}, nil
}

func (c *EditCellCommand) Execute() bool {
	if !inBounds(c.row, c.col) {
		return false
	}
	c.store.put(c.row, c.col, c.newCell)
	return true
}

func (c *EditCellCommand) Undo() {
	if c.existed {
		c.store.put(c.row, c.col, c.oldCell)
	} else {
		c.store.delete(c.row, c.col)
	}
}

// InsertRowCommand inserts an empty row, shifting cells and row heights
// together. Undo removes the same row again; nothing else needs
// capturing because an inserted row starts empty with the default size.
type InsertRowCommand struct {
	store *CellStore
	dims  *DimensionTable
	at    int
}

func NewInsertRowCommand(store *CellStore, dims *DimensionTable, at int) *InsertRowCommand {
	return &InsertRowCommand{store: store, dims: dims, at: at}
}

func (c *InsertRowCommand) Execute() bool {
	if !c.store.InsertRow(c.at) {
		return false
	}
	if !c.dims.InsertAt(c.at) {
		c.store.RemoveRow(c.at)
		return false
	}
	return true
}

func (c *InsertRowCommand) Undo() {
	c.store.RemoveRow(c.at)
	c.dims.RemoveAt(c.at)
}

// RemoveRowCommand removes a row, capturing its cells and height at
// construction so undo can reinstate both structure and content.
type RemoveRowCommand struct {
	store *CellStore
	dims  *DimensionTable
	at    int
	cells map[int]Cell
	size  float64
}

func NewRemoveRowCommand(store *CellStore, dims *DimensionTable, at int) *RemoveRowCommand {
	return &RemoveRowCommand{
		store: store,
		dims:  dims,
		at:    at,
		cells: store.rowCells(at),
		size:  dims.GetSize(at),
	}
}

func (c *RemoveRowCommand) Execute() bool {
	if !c.store.RemoveRow(c.at) {
		return false
	}
	if !c.dims.RemoveAt(c.at) {
		c.store.InsertRow(c.at)
		for col, cell := range c.cells {
			c.store.put(c.at, col, cell)
		}
		return false
	}
	return true
}

func (c *RemoveRowCommand) Undo() {
	c.store.InsertRow(c.at)
	c.dims.InsertAt(c.at)
	c.dims.SetSize(c.at, c.size)
	for col, cell := range c.cells {
		c.store.put(c.at, col, cell)
	}
}

// InsertColumnCommand is the column-axis mirror of InsertRowCommand.
type InsertColumnCommand struct {
	store *CellStore
	dims  *DimensionTable
	at    int
}

func NewInsertColumnCommand(store *CellStore, dims *DimensionTable, at int) *InsertColumnCommand {
	return &InsertColumnCommand{store: store, dims: dims, at: at}
}

func (c *InsertColumnCommand) Execute() bool {
	if !c.store.InsertColumn(c.at) {
		return false
	}
	if !c.dims.InsertAt(c.at) {
		c.store.RemoveColumn(c.at)
		return false
	}
	return true
}

func (c *InsertColumnCommand) Undo() {
	c.store.RemoveColumn(c.at)
	c.dims.RemoveAt(c.at)
}

// RemoveColumnCommand is the column-axis mirror of RemoveRowCommand.
type RemoveColumnCommand struct {
	store *CellStore
	dims  *DimensionTable
	at    int
	cells map[int]Cell
	size  float64
}

func NewRemoveColumnCommand(store *CellStore, dims *DimensionTable, at int) *RemoveColumnCommand {
	return &RemoveColumnCommand{
		store: store,
		dims:  dims,
		at:    at,
		cells: store.colCells(at),
		size:  dims.GetSize(at),
	}
}

func (c *RemoveColumnCommand) Execute() bool {
	if !c.store.RemoveColumn(c.at) {
		return false
	}
	if !c.dims.RemoveAt(c.at) {
		c.store.InsertColumn(c.at)
		for row, cell := range c.cells {
			c.store.put(row, c.at, cell)
		}
		return false
	}
	return true
}

func (c *RemoveColumnCommand) Undo() {
	c.store.InsertColumn(c.at)
	c.dims.InsertAt(c.at)
	c.dims.SetSize(c.at, c.size)
	for row, cell := range c.cells {
		c.store.put(row, c.at, cell)
	}
}

// ResizeCommand changes one row height or column width. The axis is
// whichever table it was built against; old size is captured at
// construction.
type ResizeCommand struct {
	dims    *DimensionTable
	index   int
	oldSize float64
	newSize float64
}

func NewResizeCommand(dims *DimensionTable, index int, newSize float64) *ResizeCommand {
	return &ResizeCommand{
		dims:    dims,
		index:   index,
		oldSize: dims.GetSize(index),
		newSize: newSize,
	}
}

func (c *ResizeCommand) Execute() bool {
	if c.index < 0 || c.index >= c.dims.Count() {
		return false
	}
	c.dims.SetSize(c.index, c.newSize)
	return true
}

func (c *ResizeCommand) Undo() {
	c.dims.SetSize(c.index, c.oldSize)
}
