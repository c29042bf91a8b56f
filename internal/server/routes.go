package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/ballast/internal/memory"
	"github.com/lazypower/ballast/internal/monitor"
	"github.com/lazypower/ballast/internal/transcript"
)

func (s *Server) handleSessionCreated(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Root bool `json:"root"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	// Recall hits the memory service; run it off the request path and let
	// the host pick the fragments up on its next context build.
	if s.recall != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.recall.OnSessionCreated(ctx, sessionID, req.Root)
		}()
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var ev monitor.MessageEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	ev.SessionID = sessionID

	s.monitor.HandleMessage(ev)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"in_progress": s.ledger.InProgress(sessionID),
	})
}

func (s *Server) handleSessionIdle(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		TranscriptPath string `json:"transcript_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	// Idle can tip a session over the threshold when the last message
	// stopped just under it.
	s.monitor.HandleSessionIdle(sessionID)

	if req.TranscriptPath == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	// Async extraction, return 202 immediately.
	if s.patterns != nil {
		go func() {
			msgs, err := transcript.ParseFile(req.TranscriptPath)
			if err != nil {
				log.Printf("server: parse transcript for %s: %v", sessionID, err)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			s.patterns.OnSessionIdle(ctx, sessionID, msgs)
		}()
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "extracting"})
}

func (s *Server) handleSessionDeleted(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s.monitor.HandleSessionDeleted(sessionID)
	s.queue.Cleanup(sessionID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDrainContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	frags := s.queue.Drain(sessionID)

	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(frags),
		"fragments": frags,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	out := map[string]any{
		"in_progress":      s.ledger.InProgress(sessionID),
		"pending_continue": s.ledger.HasPendingContinue(sessionID),
		"pending_context":  s.queue.Pending(sessionID),
	}
	if last, ok := s.ledger.LastCompaction(sessionID); ok {
		out["last_compaction"] = map[string]any{
			"timestamp":    last.Timestamp,
			"trigger":      last.Trigger,
			"ratio_before": last.UsageRatioBefore,
			"ratio_after":  last.UsageRatioAfter,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, `{"error":"q parameter required"}`, http.StatusBadRequest)
		return
	}
	if !s.mem.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "memory not configured"})
		return
	}

	scope := parseScope(r.URL.Query().Get("scope"))
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	results := s.mem.Search(r.Context(), query, scope)
	if len(results) > limit {
		results = results[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"scope":   scope.String(),
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleAddMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content  string `json:"content"`
		Scope    string `json:"scope"`
		Type     string `json:"type"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, `{"error":"content required"}`, http.StatusBadRequest)
		return
	}
	if !s.mem.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "memory not configured"})
		return
	}

	memType := req.Type
	if memType == "" {
		memType = "note"
	}
	id := s.mem.Add(r.Context(), req.Content, parseScope(req.Scope), memory.Metadata{
		Type:      memType,
		Category:  req.Category,
		Timestamp: time.Now(),
	})
	if id == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "content not stored"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	if !s.mem.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "memory not configured"})
		return
	}

	scope := parseScope(r.URL.Query().Get("scope"))
	id := r.URL.Query().Get("id")

	ok := s.mem.Forget(r.Context(), scope, id)

	writeJSON(w, http.StatusOK, map[string]any{"deleted": ok})
}

func parseScope(s string) memory.Scope {
	if s == "user" {
		return memory.ScopeUser
	}
	return memory.ScopeProject
}
