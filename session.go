package main

import (
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Action    string    `json:"action"` // e.g., "EDIT_CELL", "INSERT_ROW"
	Details   string    `json:"details"`
}

// ClipboardCopy is the last-copied range snapshot. It lives on the
// session rather than in a process global so two sessions cannot trample
// each other's copy state.
type ClipboardCopy struct {
	Row      int       `json:"row"` // source top-left
	Col      int       `json:"col"`
	RowCount int       `json:"row_count"`
	ColCount int       `json:"col_count"`
	Cells    []Cell    `json:"cells"` // row-major, len = RowCount*ColCount
	User     string    `json:"user"`
	CopiedAt time.Time `json:"copied_at"`
}

// EditSession owns one grid: the cell store, both dimension tables, the
// viewport, the selection, and the undo history. All engine state is
// single-threaded; the mutex serializes the host entry points (hub run
// loop, export handler) and is never taken by the engine itself.
type EditSession struct {
	ID    string
	Name  string
	Owner string

	Store     *CellStore
	RowTable  *DimensionTable
	ColTable  *DimensionTable
	View      *ViewportMapper
	Selection *SelectionRange
	History   *CommandStack

	AuditLog []AuditEntry

	clipboard *ClipboardCopy
	pasteGen  uint64

	mu sync.Mutex
}

func NewEditSession(id, name, owner string, rows, cols int) *EditSession {
	store := NewCellStore(rows, cols)
	rowTable := NewRowTable(store.Rows(), defaultHeaderHeight)
	colTable := NewColTable(store.Cols(), defaultHeaderWidth)
	return &EditSession{
		ID:        id,
		Name:      name,
		Owner:     owner,
		Store:     store,
		RowTable:  rowTable,
		ColTable:  colTable,
		View:      NewViewportMapper(rowTable, colTable, 1024, 768),
		Selection: NewSelectionRange(),
		History:   NewCommandStack(defaultHistoryLimit),
		AuditLog:  []AuditEntry{},
	}
}

// Lock serializes host access to the session. The engine underneath
// assumes a single logical thread; see the concurrency notes in DESIGN.md.
func (s *EditSession) Lock()   { s.mu.Lock() }
func (s *EditSession) Unlock() { s.mu.Unlock() }

func (s *EditSession) Audit(user, action, details string) {
	s.AuditLog = append(s.AuditLog, AuditEntry{
		Timestamp: time.Now(),
		User:      user,
		Action:    action,
		Details:   details,
	})
}

// CopySelection snapshots the active selection into the session
// clipboard. Returns false when nothing is selected.
func (s *EditSession) CopySelection(user string) bool {
	if !s.Selection.IsActive() {
		return false
	}
	minRow, maxRow, minCol, maxCol := s.Selection.NormalizedBounds()
	s.clipboard = &ClipboardCopy{
		Row:      minRow,
		Col:      minCol,
		RowCount: maxRow - minRow + 1,
		ColCount: maxCol - minCol + 1,
		Cells:    s.Store.GetRange(minRow, minCol, maxRow, maxCol),
		User:     user,
		CopiedAt: time.Now(),
	}
	return true
}

func (s *EditSession) Clipboard() *ClipboardCopy { return s.clipboard }

// BeginPaste bumps the paste generation and returns the token the
// eventual resolution must present. A second paste started before the
// first resolves supersedes it; the stale resolution is dropped.
func (s *EditSession) BeginPaste() uint64 {
	return atomic.AddUint64(&s.pasteGen, 1)
}

// BuildPasteCommand builds the composite edit for pasting content at the
// target coordinate, against the grid's coordinate state at resolve time.
// Cells landing beyond the current extent are clipped off; returns nil
// when the generation is stale, the content is empty, or the whole paste
// clips away.
func (s *EditSession) BuildPasteCommand(gen uint64, row, col int, content *ClipboardCopy) Command {
	if gen != atomic.LoadUint64(&s.pasteGen) {
		return nil
	}
	if content == nil || content.RowCount <= 0 || content.ColCount <= 0 {
		return nil
	}
	composite := NewCompositeCommand()
	for i := 0; i < content.RowCount; i++ {
		for j := 0; j < content.ColCount; j++ {
			r, c := row+i, col+j
			if !s.Store.InExtent(r, c) {
				continue
			}
			idx := i*content.ColCount + j
			if idx >= len(content.Cells) {
				continue
			}
			cmd, err := NewEditCellCommand(s.Store, r, c, content.Cells[idx])
			if err != nil {
				continue
			}
			composite.Add(cmd)
		}
	}
	if composite.Count() == 0 {
		return nil
	}
	return composite
}

// MarshalJSON produces the full-state snapshot broadcast to clients on
// join and after structural changes.
func (s *EditSession) MarshalJSON() ([]byte, error) {
	type wireCell struct {
		Row  int  `json:"row"`
		Col  int  `json:"col"`
		Cell Cell `json:"cell"`
	}
	cells := make([]wireCell, 0, s.Store.Len())
	for r := 0; r < s.Store.Rows(); r++ {
		rowData := s.Store.data[r]
		for c, cell := range rowData {
			cells = append(cells, wireCell{Row: r, Col: c, Cell: *cell})
		}
	}
	rowHeights := make([]float64, s.RowTable.Count())
	for i := range rowHeights {
		rowHeights[i] = s.RowTable.GetSize(i)
	}
	colWidths := make([]float64, s.ColTable.Count())
	for i := range colWidths {
		colWidths[i] = s.ColTable.GetSize(i)
	}
	scrollX, scrollY := s.View.Scroll()
	return json.Marshal(struct {
		ID         string     `json:"id"`
		Name       string     `json:"name"`
		Owner      string     `json:"owner"`
		Rows       int        `json:"rows"`
		Cols       int        `json:"cols"`
		Cells      []wireCell `json:"cells"`
		RowHeights []float64  `json:"row_heights"`
		ColWidths  []float64  `json:"col_widths"`
		Zoom       float64    `json:"zoom"`
		ScrollX    float64    `json:"scroll_x"`
		ScrollY    float64    `json:"scroll_y"`
	}{
		ID:         s.ID,
		Name:       s.Name,
		Owner:      s.Owner,
		Rows:       s.Store.Rows(),
		Cols:       s.Store.Cols(),
		Cells:      cells,
		RowHeights: rowHeights,
		ColWidths:  colWidths,
		Zoom:       s.View.Zoom(),
		ScrollX:    scrollX,
		ScrollY:    scrollY,
	})
}

// SessionManager is the in-memory registry of editing sessions.
type SessionManager struct {
	sessions map[string]*EditSession
	mu       sync.RWMutex
	lastID   int64
}

var globalSessionManager = &SessionManager{
	sessions: make(map[string]*EditSession),
}

// generateID builds a timestamp-based id with a counter suffix so two
// sessions created within the same second stay distinct.
func (sm *SessionManager) generateID() string {
	n := atomic.AddInt64(&sm.lastID, 1)
	return time.Now().Format("20060102150405") + "-" + strconv.FormatInt(n, 10)
}

func (sm *SessionManager) CreateSession(name, owner string, rows, cols int) *EditSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session := NewEditSession(sm.generateID(), name, owner, rows, cols)
	session.Audit(owner, "CREATE_GRID", "Created grid "+name)
	sm.sessions[session.ID] = session
	return session
}

func (sm *SessionManager) GetSession(id string) *EditSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

func (sm *SessionManager) ListSessions() []*EditSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	list := make([]*EditSession, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		list = append(list, s)
	}
	return list
}

func (sm *SessionManager) DeleteSession(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.sessions[id]; !ok {
		return false
	}
	delete(sm.sessions, id)
	return true
}

// Register adds an externally built session (xlsx import path).
func (sm *SessionManager) Register(session *EditSession) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[session.ID] = session
}
