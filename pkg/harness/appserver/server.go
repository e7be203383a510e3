// Package appserver provides the importable HTTP application server owned by
// a test session. It serves the page produced by a user-supplied builder,
// the helper-script module, and a liveness probe, and captures builder
// failures so the session controller can observe them from another
// goroutine.
package appserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/thesyncim/pagetest/pkg/harness/page"
)

// Builder produces the page content for one serve cycle. It runs on the
// server's request-handling goroutine, concurrently with the session
// controller; any error (or panic) it raises is captured into the cycle's
// error slot rather than crashing the server.
type Builder func(r *http.Request) (*page.Node, error)

// Config holds server configuration options.
type Config struct {
	Addr         string        // Listen address (e.g., "127.0.0.1:0" for a random port)
	ReadTimeout  time.Duration // HTTP read timeout
	WriteTimeout time.Duration // HTTP write timeout
	Logger       *zap.Logger   // Optional; defaults to a no-op logger
}

// DefaultConfig returns a configuration suitable for testing.
// Binds the loopback interface on a random available port.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// HealthPath is the liveness probe route. The session controller fetches it
// on start and reload to confirm the server is serving without consuming
// the cycle's single page request.
const HealthPath = "/healthz"

// cycle is the single-slot state for one serve cycle. The request handler
// writes it once; the session controller polls it. Guarded by Server.mu.
type cycle struct {
	served    bool  // page request already handled this cycle
	err       error // captured builder failure
	nodeCount int   // element count of the tree served this cycle
}

// Server is the HTTP application server bound to one session.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	build      Builder
	logger     *zap.Logger

	mu        sync.Mutex
	addr      string
	running   bool
	cycle     *cycle
	violation error
}

// NewServer creates a new server with the given configuration and page
// builder. The server is not started until Start() is called.
func NewServer(cfg Config, build Builder) (*Server, error) {
	if build == nil {
		return nil, fmt.Errorf("appserver: nil page builder")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		build:  build,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Get("/", s.servePage)
	r.Get(page.ScriptPath, serveScript)
	r.Get(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Start begins listening and serving HTTP requests.
// Returns the actual address the server is listening on (useful when the
// configured port is 0). Non-blocking; the server runs in a goroutine.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.addr, nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	s.listener = ln
	s.addr = ln.Addr().String()
	s.running = true

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("appserver serve loop exited", zap.Error(err))
		}
	}()

	return s.addr, nil
}

// Shutdown gracefully shuts down the server. Safe to call when not running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// Running reports whether the server is currently accepting requests.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the address the server is listening on.
// Returns empty string if the server was never started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// BeginCycle opens a fresh serve cycle: it clears the captured builder error
// and re-arms the single page request. The session controller calls it
// immediately before each navigation.
func (s *Server) BeginCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle = &cycle{}
}

// CycleErr returns the builder failure captured during the current serve
// cycle, or nil. Safe to poll from another goroutine.
func (s *Server) CycleErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycle == nil {
		return nil
	}
	return s.cycle.err
}

// NodeCount returns the number of element nodes served in the current
// cycle, or zero if the page has not been served yet.
func (s *Server) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycle == nil {
		return 0
	}
	return s.cycle.nodeCount
}

// Violation returns the first protocol violation observed, if any. A second
// page request within one serve cycle is a violation the harness must never
// produce; it is recorded here instead of silently rebuilding the page.
func (s *Server) Violation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violation
}

// servePage handles the one page request of the current serve cycle: it
// invokes the builder, captures any failure into the cycle slot, and serves
// the rendered document.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c := s.cycle
	if c == nil {
		s.mu.Unlock()
		http.Error(w, "no serve cycle open", http.StatusServiceUnavailable)
		return
	}
	if c.served {
		s.violation = fmt.Errorf("second page request within one serve cycle (remote %s)", r.RemoteAddr)
		s.logger.Error("serve cycle protocol violation", zap.String("remote", r.RemoteAddr))
		s.mu.Unlock()
		http.Error(w, "serve cycle already consumed", http.StatusConflict)
		return
	}
	c.served = true
	s.mu.Unlock()

	root, err := s.invokeBuilder(r)

	s.mu.Lock()
	if err != nil {
		c.err = err
		s.mu.Unlock()
		s.logger.Warn("page builder failed", zap.Error(err))
		http.Error(w, "page builder failed", http.StatusInternalServerError)
		return
	}
	c.nodeCount = root.CountNodes()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page.Render(root, page.ScriptPath)))
}

// invokeBuilder calls the page builder, converting a panic into an error so
// a throwing builder never takes down the server's request goroutine.
func (s *Server) invokeBuilder(r *http.Request) (root *page.Node, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", rec)
		}
	}()
	return s.build(r)
}

func serveScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(page.HelperScript))
}
