package http

import (
	"errors"
	"net/http"

	"github.com/roelfdiedericks/pagesmith/internal/history"
)

// ModelInfo describes one configured backend for GET /api/models.
type ModelInfo struct {
	Backend string `json:"backend"`
	Driver  string `json:"driver"`
	Model   string `json:"model,omitempty"`
	Default bool   `json:"default,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.models})
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	if s.skills == nil {
		writeJSON(w, http.StatusOK, map[string]any{"skills": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"skills": s.skills.All()})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	records, err := s.history.List(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list history: %v", err)
		return
	}
	if records == nil {
		records = []*history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"generations": records})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupHistory(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistoryHTML(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupHistory(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(rec.HTML))
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	id := r.PathValue("id")
	err := s.history.Delete(id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "generation %s not found", id)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) lookupHistory(w http.ResponseWriter, r *http.Request) (*history.Record, bool) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return nil, false
	}

	id := r.PathValue("id")
	rec, err := s.history.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "generation %s not found", id)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load generation: %v", err)
		return nil, false
	}
	return rec, true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	var n int
	for _, c := range v {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}
