// Package server is the ballast HTTP API: host adapters post session
// lifecycle events here, and the host pulls pending context fragments back
// out. Event handlers do synchronous bookkeeping only; anything that talks
// to the memory service or the host control API runs in the background.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/ballast/internal/collect"
	"github.com/lazypower/ballast/internal/ledger"
	"github.com/lazypower/ballast/internal/memory"
	"github.com/lazypower/ballast/internal/monitor"
	"github.com/lazypower/ballast/internal/patterns"
	"github.com/lazypower/ballast/internal/recall"
)

// Server is the ballast HTTP API server.
type Server struct {
	router   chi.Router
	version  string
	started  time.Time
	ledger   *ledger.Ledger
	queue    *collect.Queue
	mem      *memory.Client
	monitor  *monitor.Monitor
	recall   *recall.Engine
	patterns *patterns.Engine
}

// New creates a Server wired to the given components. recall and patterns
// may be nil when memory is not configured; the matching events degrade to
// no-ops.
func New(version string, led *ledger.Ledger, queue *collect.Queue, mem *memory.Client, mon *monitor.Monitor, rec *recall.Engine, pat *patterns.Engine) *Server {
	s := &Server{
		version:  version,
		started:  time.Now(),
		ledger:   led,
		queue:    queue,
		mem:      mem,
		monitor:  mon,
		recall:   rec,
		patterns: pat,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/events/created", s.handleSessionCreated)
			r.Post("/events/message", s.handleMessage)
			r.Post("/events/idle", s.handleSessionIdle)
			r.Post("/events/deleted", s.handleSessionDeleted)
			r.Get("/context", s.handleDrainContext)
			r.Get("/status", s.handleStatus)
		})

		r.Get("/search", s.handleSearch)
		r.Post("/memories", s.handleAddMemory)
		r.Delete("/memories", s.handleForget)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"memory":  s.mem.Enabled(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// QueueNotifier surfaces compaction notices by registering them as low
// priority context fragments for the session.
type QueueNotifier struct {
	queue     *collect.Queue
	verbosity string
	newID     func() string
}

// NewQueueNotifier creates a notifier over the fragment queue. Verbosity
// "off" drops everything; "minimal" passes compaction notices only;
// "detailed" additionally surfaces usage milestones.
func NewQueueNotifier(queue *collect.Queue, verbosity string, newID func() string) *QueueNotifier {
	return &QueueNotifier{queue: queue, verbosity: verbosity, newID: newID}
}

// Notify registers the message as a notice fragment.
func (n *QueueNotifier) Notify(sessionID, message string) {
	if n.verbosity == "off" {
		return
	}
	n.register(sessionID, message)
}

// Milestone registers a usage-percentage notice at detailed verbosity.
func (n *QueueNotifier) Milestone(sessionID string, pct int) {
	if n.verbosity != "detailed" {
		return
	}
	n.register(sessionID, fmt.Sprintf("Context usage at %d%%.", pct))
}

func (n *QueueNotifier) register(sessionID, message string) {
	n.queue.Register(sessionID, collect.Fragment{
		ID:       n.newID(),
		Content:  message,
		Source:   "notice",
		Priority: 1,
	})
}
