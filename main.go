package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"strconv"
)

var addr = flag.String("addr", ":8080", "http service address")

func corsHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// authUser validates the Authorization token and writes a 401 on failure.
func authUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, err := globalUserManager.ValidateToken(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
		return "", false
	}
	return username, true
}

func main() {
	flag.Parse()

	hub := newHub()
	go hub.run()

	globalUserManager.Load()

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})

	http.HandleFunc("/api/register", func(w http.ResponseWriter, r *http.Request) {
		corsHeaders(w, "POST")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Password == "" {
			http.Error(w, "Username and password required", http.StatusBadRequest)
			return
		}
		if err := globalUserManager.Register(req.Username, req.Password); err != nil {
			status := http.StatusConflict
			if errors.Is(err, ErrReservedUsername) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	http.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		corsHeaders(w, "POST")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		token, err := globalUserManager.Login(req.Username, req.Password)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"token":    token,
			"username": req.Username,
		})
	})

	http.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		corsHeaders(w, "POST")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token := r.Header.Get("Authorization"); token != "" {
			globalUserManager.Logout(token)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
	})

	http.HandleFunc("/api/validate", func(w http.ResponseWriter, r *http.Request) {
		corsHeaders(w, "GET")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		username, ok := authUser(w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"username": username,
			"valid":    "true",
		})
	})

	http.HandleFunc("/api/grids", func(w http.ResponseWriter, r *http.Request) {
		corsHeaders(w, "GET, POST, DELETE")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		username, ok := authUser(w, r)
		if !ok {
			return
		}

		switch r.Method {
		case "GET":
			// Metadata only; full grid state flows over the websocket.
			type gridInfo struct {
				ID    string `json:"id"`
				Name  string `json:"name"`
				Owner string `json:"owner"`
			}
			sessions := globalSessionManager.ListSessions()
			list := make([]gridInfo, 0, len(sessions))
			for _, s := range sessions {
				list = append(list, gridInfo{ID: s.ID, Name: s.Name, Owner: s.Owner})
			}
			json.NewEncoder(w).Encode(list)

		case "POST":
			var req struct {
				Name string `json:"name"`
				Rows int    `json:"rows"`
				Cols int    `json:"cols"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if req.Rows <= 0 {
				req.Rows = 100
			}
			if req.Cols <= 0 {
				req.Cols = 26
			}
			session := globalSessionManager.CreateSession(req.Name, username, req.Rows, req.Cols)
			json.NewEncoder(w).Encode(map[string]string{
				"id":   session.ID,
				"name": session.Name,
			})

		case "DELETE":
			id := r.URL.Query().Get("id")
			if id == "" {
				http.Error(w, "Grid ID required", http.StatusBadRequest)
				return
			}
			if !globalSessionManager.DeleteSession(id) {
				http.Error(w, "Grid not found", http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"message": "Grid deleted"})

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/api/grids/import", func(w http.ResponseWriter, r *http.Request) {
		corsHeaders(w, "POST")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		username, ok := authUser(w, r)
		if !ok {
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "Imported grid"
		}
		session, err := ImportXLSX(r.Body, name, username)
		if err != nil {
			log.Printf("Error importing workbook: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		globalSessionManager.Register(session)
		json.NewEncoder(w).Encode(map[string]string{
			"id":   session.ID,
			"name": session.Name,
			"rows": strconv.Itoa(session.Store.Rows()),
			"cols": strconv.Itoa(session.Store.Cols()),
		})
	})

	http.HandleFunc("/api/grids/export", func(w http.ResponseWriter, r *http.Request) {
		corsHeaders(w, "GET")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if _, ok := authUser(w, r); !ok {
			return
		}
		session := globalSessionManager.GetSession(r.URL.Query().Get("id"))
		if session == nil {
			http.Error(w, "Grid not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+session.Name+`.xlsx"`)
		session.Lock()
		err := ExportXLSX(session, w)
		session.Unlock()
		if err != nil {
			log.Printf("Error exporting grid %s: %v", session.ID, err)
		}
	})

	// Simple health check
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	log.Printf("Server started on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}
