package harness

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thesyncim/pagetest/pkg/harness/appserver"
	"github.com/thesyncim/pagetest/pkg/harness/internal"
	"github.com/thesyncim/pagetest/pkg/harness/page"
)

// PageBuilder produces the page content for one serve cycle. It runs on the
// application server's request goroutine, concurrently with the test; an
// error or panic it raises is captured and surfaced to the waiting caller
// as a *HandlerError.
type PageBuilder func(s *Session, r *http.Request) (*page.Node, error)

// Session is the owned bundle of application server, browser shell window
// and readiness state representing one test's live page. Create it with
// NewSession, bring it up with Start, and always Close it, on every path.
type Session struct {
	cfg     Config
	id      string
	logger  *zap.Logger
	clock   internal.Clock
	builder PageBuilder

	server *appserver.Server
	shell  ShellDriver

	mu        sync.Mutex
	state     State
	endpoint  string
	bridge    ScriptBridge
	pageRoot  Handle
	scriptLib Handle
	closed    bool
	closeErr  error
}

// NewSession creates a session in the Created state. Nothing is bound or
// launched until Start.
func NewSession(cfg Config, build PageBuilder, opts ...Option) (*Session, error) {
	if build == nil {
		return nil, errors.New("harness: nil page builder")
	}
	def := DefaultConfig()
	if cfg.BindAddr == "" {
		cfg.BindAddr = def.BindAddr
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = def.ReadyTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}

	s := &Session{
		cfg:     cfg,
		id:      uuid.New().String(),
		logger:  zap.NewNop(),
		clock:   internal.MonotonicClock{},
		builder: build,
		state:   Created,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))

	if s.shell == nil {
		s.shell = NewRodShell(ShellConfig{
			Headless:  cfg.Headless,
			OpTimeout: cfg.ReadyTimeout,
		})
	}

	srvCfg := appserver.DefaultConfig()
	srvCfg.Addr = net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port))
	srvCfg.Logger = s.logger
	srv, err := appserver.NewServer(srvCfg, func(r *http.Request) (*page.Node, error) {
		return s.builder(s, r)
	})
	if err != nil {
		return nil, err
	}
	s.server = srv
	return s, nil
}

// ID returns the session's unique identifier, used in log correlation.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Endpoint returns the URL the application server is bound to. Empty before
// Start.
func (s *Session) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// PageRoot returns the handle to the root container of the current serve
// cycle. Valid only while the session is Ready; invalidated by Reload.
func (s *Session) PageRoot() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageRoot
}

// HelperModule returns the handle to the injected helper-script module.
// Valid only while the session is Ready; invalidated by Reload.
func (s *Session) HelperModule() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scriptLib
}

// ServedNodeCount returns the number of element nodes the builder produced
// in the current serve cycle.
func (s *Session) ServedNodeCount() int {
	return s.server.NodeCount()
}

// Start binds the application server, launches the browser shell, navigates
// it to the served page and blocks until the page signals readiness.
//
// On any failure the session is closed before the error is returned, so no
// server binding or shell process ever leaks. Possible failures: *BindError,
// *HandlerError, *PageInitError, *ReadyTimeoutError, ErrWindowClosed.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != Created {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("start: session already started (state %s)", st)
	}
	s.state = Starting
	s.mu.Unlock()

	s.logger.Debug("starting session")

	addr, err := s.server.Start()
	if err != nil {
		bindErr := &BindError{Addr: net.JoinHostPort(s.cfg.BindAddr, strconv.Itoa(s.cfg.Port)), Err: err}
		return s.failAndClose(bindErr)
	}

	s.mu.Lock()
	s.endpoint = "http://" + addr
	s.mu.Unlock()
	s.logger.Debug("application server bound", zap.String("endpoint", "http://"+addr))

	if err := s.shell.Launch(ctx); err != nil {
		return s.failAndClose(fmt.Errorf("launch browser shell: %w", err))
	}
	s.logger.Debug("browser shell launched")

	if err := s.serveCycle(ctx); err != nil {
		return s.failAndClose(err)
	}
	return nil
}

// Reload re-exercises page initialization without tearing down the shell
// process: it confirms the server is still serving, opens a fresh serve
// cycle, navigates the shell to the same URL again and re-runs the
// readiness wait. Previous page and helper-module handles are invalidated.
//
// Like Start, any failure closes the session before the error is returned.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != Ready {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("reload: session not ready (state %s)", st)
	}
	s.pageRoot = nil
	s.scriptLib = nil
	s.mu.Unlock()

	s.logger.Debug("reloading session")

	// Fresh probe before navigating: a dead server fails fast here instead
	// of surfacing as an opaque ready-timeout later.
	if err := s.probe(); err != nil {
		return s.failAndClose(fmt.Errorf("reload: application server no longer serving: %w", err))
	}

	if err := s.serveCycle(ctx); err != nil {
		return s.failAndClose(err)
	}
	return nil
}

// Close tears the session down: stop the application server, then close the
// browser shell. It is idempotent and safe to call in any state, including
// on a session that never started.
//
// Errors from stopping the server are logged and swallowed; a server that
// is already gone is not a regression. Errors from closing the shell are
// returned, since a lingering native process is a real leak the caller must
// know about.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		err := s.closeErr
		s.mu.Unlock()
		return err
	}
	s.closed = true
	s.state = Closed
	s.pageRoot = nil
	s.scriptLib = nil
	s.bridge = nil
	s.mu.Unlock()

	if s.server != nil && s.server.Running() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("stopping application server failed", zap.Error(err))
		}
		cancel()
	}

	var shellErr error
	if s.shell != nil {
		if err := s.shell.Close(); err != nil {
			s.logger.Error("closing browser shell failed", zap.Error(err))
			shellErr = fmt.Errorf("close browser shell: %w", err)
		}
	}

	s.mu.Lock()
	s.closeErr = shellErr
	s.mu.Unlock()

	s.logger.Debug("session closed")
	return shellErr
}

// failAndClose marks the session failed, tears it down, and returns cause.
// The close error, if any, is logged but never masks the original failure.
func (s *Session) failAndClose(cause error) error {
	s.mu.Lock()
	s.state = Failed
	s.mu.Unlock()
	s.logger.Warn("session failed, tearing down", zap.Error(cause))
	if err := s.Close(); err != nil {
		s.logger.Warn("teardown after failure reported an error", zap.Error(err))
	}
	return cause
}

// serveCycle runs one navigation: open a fresh cycle on the server, probe
// it, instruct the shell to load the endpoint, then wait for readiness and
// resolve the page handles.
func (s *Session) serveCycle(ctx context.Context) error {
	s.server.BeginCycle()

	if err := s.probe(); err != nil {
		return fmt.Errorf("application server not serving: %w", err)
	}

	s.mu.Lock()
	endpoint := s.endpoint
	s.state = AwaitingReady
	s.mu.Unlock()

	if err := s.shell.Load(endpoint); err != nil {
		return fmt.Errorf("navigate shell to %s: %w", endpoint, err)
	}

	if err := s.awaitReady(ctx); err != nil {
		return err
	}

	bridge := s.shell.Bridge()
	scriptLib, err := bridge.Resolve(`() => window.__harness`)
	if err != nil {
		return fmt.Errorf("resolve helper module: %w", err)
	}
	pageRoot, err := bridge.Resolve(`(id) => document.getElementById(id)`, page.RootID)
	if err != nil {
		return fmt.Errorf("resolve page root: %w", err)
	}

	s.mu.Lock()
	s.bridge = bridge
	s.scriptLib = scriptLib
	s.pageRoot = pageRoot
	s.state = Ready
	s.mu.Unlock()

	s.logger.Debug("session ready")
	return nil
}

// probe confirms the application server answers a plain HTTP GET with 200,
// without consuming the serve cycle's single page request.
func (s *Session) probe() error {
	s.mu.Lock()
	endpoint := s.endpoint
	s.mu.Unlock()

	resp, err := http.Get(endpoint + appserver.HealthPath)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected probe status %d", resp.StatusCode)
	}
	return nil
}

// readyProbeJS reads the helper module's readiness and init-error slots.
// It returns null until the helper script has loaded.
const readyProbeJS = `() => window.__harness
	? { ready: window.__harness.ready, initError: window.__harness.initError }
	: null`

// awaitReady polls until exactly one terminal condition occurs: the shell
// window disappeared, the builder failed, the page reported an init error,
// the readiness signal was set, or the timeout budget ran out.
//
// A single blocking wait cannot observe the window vanishing and the
// builder failing at the same time, which is why this polls.
func (s *Session) awaitReady(ctx context.Context) error {
	bridge := s.shell.Bridge()

	check := func() (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if !s.shell.Exists() {
			return false, ErrWindowClosed
		}
		if err := s.server.CycleErr(); err != nil {
			return false, &HandlerError{Cause: err}
		}
		v, err := bridge.Eval(readyProbeJS)
		if err != nil {
			// The page is still loading or mid-navigation; evaluation
			// failures here are expected, not terminal.
			return false, nil
		}
		if v.Nil() {
			return false, nil
		}
		if initErr := v.Get("initError"); !initErr.Nil() {
			return false, &PageInitError{Message: initErr.Str()}
		}
		return v.Get("ready").Bool(), nil
	}

	elapsed, err := internal.Poll(s.clock, s.cfg.PollInterval, s.cfg.ReadyTimeout, check)
	if errors.Is(err, internal.ErrPollTimeout) {
		return &ReadyTimeoutError{Elapsed: elapsed, Limit: s.cfg.ReadyTimeout}
	}
	return err
}

// readyBridge returns the script bridge, failing if the session is not in
// the Ready state.
func (s *Session) readyBridge() (ScriptBridge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready {
		return nil, fmt.Errorf("session not ready (state %s)", s.state)
	}
	return s.bridge, nil
}
