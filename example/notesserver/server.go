// Package notesserver is an in-memory server of example.Notes.
package notesserver

import (
	"crypto/rand"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/starius/restface/example"
	"github.com/starius/restface/internal/shared"
)

type NotesServer struct {
	mu     sync.Mutex
	notes  map[string]*example.Note
	lastID int
}

func NewNotesServer() *NotesServer {
	return &NotesServer{
		notes: make(map[string]*example.Note),
	}
}

func (s *NotesServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("1.0.0"))
	})
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("GET /notes", s.list)
	mux.HandleFunc("POST /notes", s.create)
	mux.HandleFunc("GET /notes/{id}", s.get)
	mux.HandleFunc("DELETE /notes/{id}", s.delete)
	mux.HandleFunc("PUT /notes/{id}/tags", s.tag)
	mux.HandleFunc("GET /export", s.export)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	if err := shared.WriteErrorMessage(w, code, shared.ErrorMessage{Error: msg}); err != nil {
		log.Printf("failed to write error: %v", err)
	}
}

func (s *NotesServer) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.PostForm.Get("user") == "" || r.PostForm.Get("password") != "secret password" {
		writeError(w, http.StatusUnauthorized, "bad credentials")
		return
	}
	token := make([]byte, 16)
	if _, err := rand.Read(token); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, example.Session{
		Token:   hex.EncodeToString(token),
		Expires: time.Now().Add(time.Hour).UTC(),
	})
}

func (s *NotesServer) sorted(tag string) []example.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []example.Note
	for _, n := range s.notes {
		if tag != "" && !hasTag(n, tag) {
			continue
		}
		result = append(result, *n)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

func hasTag(n *example.Note, tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (s *NotesServer) list(w http.ResponseWriter, r *http.Request) {
	notes := s.sorted(r.URL.Query().Get("tag"))
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit < len(notes) {
		notes = notes[:limit]
	}
	writeJSON(w, notes)
}

func (s *NotesServer) create(w http.ResponseWriter, r *http.Request) {
	var req example.NewNote
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.lastID++
	note := &example.Note{
		ID:      strconv.Itoa(s.lastID),
		Title:   req.Title,
		Text:    req.Text,
		Tags:    req.Tags,
		Created: time.Now().UTC(),
	}
	s.notes[note.ID] = note
	s.mu.Unlock()
	w.Header().Set("ETag", "1")
	writeJSON(w, note)
}

func (s *NotesServer) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	note, has := s.notes[r.PathValue("id")]
	s.mu.Unlock()
	if !has {
		writeError(w, http.StatusNotFound, "no such note")
		return
	}
	w.Header().Set("ETag", strconv.Itoa(len(note.Tags)+1))
	writeJSON(w, note)
}

func (s *NotesServer) delete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *NotesServer) tag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tags string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	note, has := s.notes[r.PathValue("id")]
	if !has {
		writeError(w, http.StatusNotFound, "no such note")
		return
	}
	note.Tags = append(note.Tags, req.Tags)
	w.WriteHeader(http.StatusNoContent)
}

func (s *NotesServer) export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	csvWriter := csv.NewWriter(w)
	_ = csvWriter.Write([]string{"id", "title"})
	tags := r.URL.Query()["tag"]
	if len(tags) == 0 {
		tags = []string{""}
	}
	seen := make(map[string]bool)
	for _, tag := range tags {
		for _, n := range s.sorted(tag) {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			_ = csvWriter.Write([]string{n.ID, n.Title})
		}
	}
	csvWriter.Flush()
}
