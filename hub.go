package main

import (
	"encoding/json"
	"log"
	"strconv"
)

// Message defines the structure of data exchanged via WebSocket.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
	User      string          `json:"user,omitempty"` // Username of the sender
}

// inbound pairs a client message with the connection it came from, so
// read-query replies can go back to the asker alone.
type inbound struct {
	client *Client
	msg    *Message
}

// Hub maintains the set of active clients and broadcasts messages to the
// clients of each grid session. The run loop is the single writer for
// every session's engine state: all commands execute here, one at a
// time, so the engine needs no internal locking.
type Hub struct {
	// Registered clients per session.
	rooms map[string]map[*Client]bool

	// Inbound messages from the clients.
	broadcast chan *inbound

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client
}

func newHub() *Hub {
	return &Hub{
		broadcast:  make(chan *inbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			if h.rooms[client.sessionID] == nil {
				h.rooms[client.sessionID] = make(map[*Client]bool)
			}
			h.rooms[client.sessionID][client] = true
			log.Printf("Client registered to session %s: %s", client.sessionID, client.userID)

			// Send current state to the new client.
			session := globalSessionManager.GetSession(client.sessionID)
			if session != nil {
				session.Lock()
				payload, _ := json.Marshal(session)
				session.Unlock()
				client.send <- msgToBytes(&Message{
					Type:    "INIT",
					Payload: payload,
					User:    "system",
				})
			}

		case client := <-h.unregister:
			if clients, ok := h.rooms[client.sessionID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.sessionID)
					}
					log.Printf("Client unregistered from session %s", client.sessionID)
				}
			}

		case in := <-h.broadcast:
			message := in.msg
			session := globalSessionManager.GetSession(message.SessionID)
			if session == nil {
				log.Printf("Message for unknown session %s", message.SessionID)
				continue
			}
			session.Lock()
			reply := h.dispatch(session, message)
			session.Unlock()
			if reply == nil {
				continue
			}
			// Pure read queries answer the asking client only; everyone
			// else already has the state the reply describes.
			if message.Type == "VIEW_RANGE" {
				select {
				case in.client.send <- msgToBytes(reply):
				default:
				}
				continue
			}
			if clients, ok := h.rooms[message.SessionID]; ok {
				for client := range clients {
					select {
					case client.send <- msgToBytes(reply):
					default:
						close(client.send)
						delete(clients, client)
					}
				}
			}
		}
	}
}

// dispatch translates an inbound message into engine calls. Grid
// mutations go through the session's command stack so they stay
// undoable; view and selection changes mutate directly. The returned
// message, if any, is broadcast to the session's room.
func (h *Hub) dispatch(s *EditSession, msg *Message) *Message {
	switch msg.Type {
	case "EDIT_CELL":
		var edit struct {
			Row     int       `json:"row"`
			Col     int       `json:"col"`
			Value   CellValue `json:"value"`
			Formula string    `json:"formula"`
			Style   CellStyle `json:"style"`
		}
		if err := json.Unmarshal(msg.Payload, &edit); err != nil {
			log.Printf("Error unmarshalling EDIT_CELL payload: %v", err)
			return nil
		}
		// Edits beyond the current extent would execute fine but never
		// appear in snapshots or exports, which only walk the extent.
		if !s.Store.InExtent(edit.Row, edit.Col) {
			payload, _ := json.Marshal(struct {
				Op  string `json:"op"`
				Row int    `json:"row"`
				Col int    `json:"col"`
			}{msg.Type, edit.Row, edit.Col})
			return &Message{Type: "OP_REJECTED", SessionID: s.ID, Payload: payload, User: msg.User}
		}
		cmd, err := NewEditCellCommand(s.Store, edit.Row, edit.Col, Cell{
			Value:   edit.Value,
			Style:   edit.Style,
			Formula: edit.Formula,
		})
		if err != nil {
			log.Printf("EDIT_CELL rejected: %v", err)
			return nil
		}
		if !s.History.Execute(cmd) {
			return nil
		}
		s.Audit(msg.User, "EDIT_CELL", "Edited cell "+cellRefString(edit.Row, edit.Col))
		payload, _ := json.Marshal(struct {
			Row  int  `json:"row"`
			Col  int  `json:"col"`
			Cell Cell `json:"cell"`
		}{edit.Row, edit.Col, mustGet(s.Store, edit.Row, edit.Col)})
		return &Message{Type: "CELL_UPDATED", SessionID: s.ID, Payload: payload, User: msg.User}

	case "INSERT_ROW", "REMOVE_ROW", "INSERT_COL", "REMOVE_COL":
		var op struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal(msg.Payload, &op); err != nil {
			log.Printf("Error unmarshalling %s payload: %v", msg.Type, err)
			return nil
		}
		var cmd Command
		switch msg.Type {
		case "INSERT_ROW":
			cmd = NewInsertRowCommand(s.Store, s.RowTable, op.Index)
		case "REMOVE_ROW":
			cmd = NewRemoveRowCommand(s.Store, s.RowTable, op.Index)
		case "INSERT_COL":
			cmd = NewInsertColumnCommand(s.Store, s.ColTable, op.Index)
		case "REMOVE_COL":
			cmd = NewRemoveColumnCommand(s.Store, s.ColTable, op.Index)
		}
		if !s.History.Execute(cmd) {
			// Structural rejection is non-fatal user feedback, not an error.
			payload, _ := json.Marshal(struct {
				Op    string `json:"op"`
				Index int    `json:"index"`
			}{msg.Type, op.Index})
			return &Message{Type: "OP_REJECTED", SessionID: s.ID, Payload: payload, User: msg.User}
		}
		s.Audit(msg.User, msg.Type, msg.Type+" at "+strconv.Itoa(op.Index))
		return h.snapshotMessage(s, msg.User)

	case "RESIZE_ROW", "RESIZE_COL":
		var rs struct {
			Index int     `json:"index"`
			Size  float64 `json:"size"`
		}
		if err := json.Unmarshal(msg.Payload, &rs); err != nil {
			log.Printf("Error unmarshalling %s payload: %v", msg.Type, err)
			return nil
		}
		dims := s.RowTable
		if msg.Type == "RESIZE_COL" {
			dims = s.ColTable
		}
		if !s.History.Execute(NewResizeCommand(dims, rs.Index, rs.Size)) {
			return nil
		}
		s.Audit(msg.User, msg.Type, msg.Type+" "+strconv.Itoa(rs.Index))
		return h.snapshotMessage(s, msg.User)

	case "COPY":
		if !s.CopySelection(msg.User) {
			return nil
		}
		s.Audit(msg.User, "COPY", "Copied selection")
		return nil

	case "PASTE":
		var p struct {
			Row int `json:"row"`
			Col int `json:"col"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			log.Printf("Error unmarshalling PASTE payload: %v", err)
			return nil
		}
		// The clipboard read is synchronous here (the copy already lives
		// on the session); the generation token still guards against a
		// paste resolved after a newer one started.
		gen := s.BeginPaste()
		cmd := s.BuildPasteCommand(gen, p.Row, p.Col, s.Clipboard())
		if cmd == nil || !s.History.Execute(cmd) {
			return nil
		}
		s.Audit(msg.User, "PASTE", "Pasted at "+cellRefString(p.Row, p.Col))
		return h.snapshotMessage(s, msg.User)

	case "UNDO":
		if !s.History.Undo() {
			return nil
		}
		s.Audit(msg.User, "UNDO", "Undid last command")
		return h.snapshotMessage(s, msg.User)

	case "REDO":
		if !s.History.Redo() {
			return nil
		}
		s.Audit(msg.User, "REDO", "Redid last command")
		return h.snapshotMessage(s, msg.User)

	case "SET_ZOOM":
		var z struct {
			Zoom float64 `json:"zoom"`
		}
		if err := json.Unmarshal(msg.Payload, &z); err != nil {
			log.Printf("Error unmarshalling SET_ZOOM payload: %v", err)
			return nil
		}
		s.View.SetZoom(z.Zoom)
		return h.viewMessage(s, msg.User)

	case "SET_SCROLL":
		var sc struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		}
		if err := json.Unmarshal(msg.Payload, &sc); err != nil {
			log.Printf("Error unmarshalling SET_SCROLL payload: %v", err)
			return nil
		}
		s.View.SetScroll(sc.X, sc.Y)
		return h.viewMessage(s, msg.User)

	case "SELECT_START", "SELECT_EXTEND":
		var sel struct {
			Row int `json:"row"`
			Col int `json:"col"`
		}
		if err := json.Unmarshal(msg.Payload, &sel); err != nil {
			log.Printf("Error unmarshalling %s payload: %v", msg.Type, err)
			return nil
		}
		if msg.Type == "SELECT_START" {
			s.Selection.Start(sel.Row, sel.Col)
		} else {
			s.Selection.Extend(sel.Row, sel.Col)
		}
		minRow, maxRow, minCol, maxCol := s.Selection.NormalizedBounds()
		payload, _ := json.Marshal(struct {
			MinRow int `json:"min_row"`
			MaxRow int `json:"max_row"`
			MinCol int `json:"min_col"`
			MaxCol int `json:"max_col"`
		}{minRow, maxRow, minCol, maxCol})
		return &Message{Type: "SELECTION_CHANGED", SessionID: s.ID, Payload: payload, User: msg.User}

	case "SELECT_CLEAR":
		s.Selection.Clear()
		return &Message{Type: "SELECTION_CHANGED", SessionID: s.ID, Payload: json.RawMessage(`{}`), User: msg.User}

	case "VIEW_RANGE":
		// Pure read: the renderer asks which indices are visible and
		// fetches the cells for that window.
		startRow, endRow := s.View.VisibleRowRange()
		startCol, endCol := s.View.VisibleColRange()
		payload, _ := json.Marshal(struct {
			StartRow int    `json:"start_row"`
			EndRow   int    `json:"end_row"`
			StartCol int    `json:"start_col"`
			EndCol   int    `json:"end_col"`
			Cells    []Cell `json:"cells"`
		}{startRow, endRow, startCol, endCol, s.Store.GetRange(startRow, startCol, endRow, endCol)})
		return &Message{Type: "VIEW_RANGE", SessionID: s.ID, Payload: payload, User: msg.User}

	default:
		log.Printf("Unknown message type %q from %s", msg.Type, msg.User)
		return nil
	}
}

// snapshotMessage marshals the full session state. Structural changes
// rebroadcast everything; partial re-key deltas are not worth the
// bookkeeping.
func (h *Hub) snapshotMessage(s *EditSession, user string) *Message {
	payload, _ := json.Marshal(s)
	return &Message{Type: "GRID_UPDATED", SessionID: s.ID, Payload: payload, User: user}
}

func (h *Hub) viewMessage(s *EditSession, user string) *Message {
	scrollX, scrollY := s.View.Scroll()
	payload, _ := json.Marshal(struct {
		Zoom    float64 `json:"zoom"`
		ScrollX float64 `json:"scroll_x"`
		ScrollY float64 `json:"scroll_y"`
	}{s.View.Zoom(), scrollX, scrollY})
	return &Message{Type: "VIEW_CHANGED", SessionID: s.ID, Payload: payload, User: user}
}

func mustGet(store *CellStore, row, col int) Cell {
	cell, _ := store.Get(row, col)
	return cell
}

func cellRefString(row, col int) string {
	return strconv.Itoa(row) + "," + strconv.Itoa(col)
}

func msgToBytes(msg *Message) []byte {
	b, _ := json.Marshal(msg)
	return b
}
