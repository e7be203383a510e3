package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ShellConfig configures the rod-backed browser shell.
type ShellConfig struct {
	Headless  bool          // Run in headless mode (default: true)
	OpTimeout time.Duration // Default navigation/operation timeout (default: 30s)
}

// DefaultShellConfig returns sensible defaults for test runs.
func DefaultShellConfig() ShellConfig {
	return ShellConfig{
		Headless:  true,
		OpTimeout: 30 * time.Second,
	}
}

// RodShell is the default ShellDriver: a Chrome process controlled over the
// DevTools protocol. Each shell launches its own browser with its own
// temporary profile, so two sessions in one process never share state.
type RodShell struct {
	cfg     ShellConfig
	browser *rod.Browser
	page    *rod.Page
}

// NewRodShell creates an unlaunched shell. Launch starts the process.
func NewRodShell(cfg ShellConfig) *RodShell {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 30 * time.Second
	}
	return &RodShell{cfg: cfg}
}

// Launch starts Chrome and opens a blank window.
// The browser is configured with no sandbox for container compatibility.
func (s *RodShell) Launch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := launcher.New().
		Headless(s.cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu")

	url, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch Chrome: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Chrome: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		s.browser = nil
		return fmt.Errorf("failed to open window: %w", err)
	}
	s.page = page
	return nil
}

// Load navigates the window to the URL with the configured timeout.
func (s *RodShell) Load(url string) error {
	if s.page == nil {
		return errors.New("no window open, call Launch first")
	}
	err := s.page.Timeout(s.cfg.OpTimeout).Navigate(url)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	// Cancel timeout so later operations and Close() work
	s.page.CancelTimeout()
	return nil
}

// Exists reports whether the window target is still alive.
func (s *RodShell) Exists() bool {
	if s.page == nil {
		return false
	}
	_, err := s.page.Info()
	return err == nil
}

// Bridge returns a script bridge into the current page.
func (s *RodShell) Bridge() ScriptBridge {
	return &rodBridge{page: s.page}
}

// Page exposes the underlying rod page for tests that need capabilities
// beyond the bridge, such as screenshots.
func (s *RodShell) Page() *rod.Page {
	return s.page
}

// Close shuts down the browser process.
// Always call this (via defer) to prevent orphaned Chrome processes.
func (s *RodShell) Close() error {
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}
