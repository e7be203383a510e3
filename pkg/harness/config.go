package harness

import (
	"time"

	"go.uber.org/zap"
)

// Config holds session configuration. Zero values are filled in from
// DefaultConfig by NewSession.
type Config struct {
	// BindAddr is the interface the application server binds.
	BindAddr string

	// Port is the application server port. 0 picks a random free port,
	// which is what test suites should use.
	Port int

	// ReadyTimeout bounds the wait for the page's readiness signal on
	// Start and Reload. Page script may need to download and compile, so
	// the default is deliberately generous.
	ReadyTimeout time.Duration

	// PollInterval is the readiness poll interval. The wait polls rather
	// than blocks so it stays responsive to the shell window disappearing
	// and to page-builder failures.
	PollInterval time.Duration

	// Headless controls whether the browser shell runs headless.
	Headless bool
}

// DefaultConfig returns the configuration used by test suites: loopback
// bind, random port, headless shell, 30 second readiness budget.
func DefaultConfig() Config {
	return Config{
		BindAddr:     "127.0.0.1",
		Port:         0,
		ReadyTimeout: 30 * time.Second,
		PollInterval: 50 * time.Millisecond,
		Headless:     true,
	}
}

// Option customizes a Session at construction time.
type Option func(*Session)

// WithLogger sets the session logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithShell replaces the rod-backed browser shell with a custom ShellDriver.
// Used by tests that exercise the lifecycle without a real browser.
func WithShell(shell ShellDriver) Option {
	return func(s *Session) {
		if shell != nil {
			s.shell = shell
		}
	}
}
