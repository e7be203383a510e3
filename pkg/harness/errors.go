package harness

import (
	"errors"
	"fmt"
	"time"
)

// ErrWindowClosed is returned when the browser shell window disappeared
// while the controller was waiting for the page to become ready.
var ErrWindowClosed = errors.New("browser shell window closed before the page became ready")

// ErrSessionClosed is returned when an operation is attempted on a closed
// Session. A fresh Session must be created instead.
var ErrSessionClosed = errors.New("session is closed")

// BindError means the application server could not bind its address,
// typically because the port is already in use. Fatal to Start; the caller
// should construct a fresh Session.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind application server on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// HandlerError means the page builder failed inside the application
// server's request handler. The original cause is preserved; it cannot
// propagate through a normal call stack because the handler runs on the
// server's own goroutine.
type HandlerError struct {
	Cause error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("page builder failed: %v", e.Cause)
}

func (e *HandlerError) Unwrap() error { return e.Cause }

// PageInitError means script inside the served page reported an
// initialization failure through the bridge's init-error slot before the
// readiness signal was set.
type PageInitError struct {
	Message string
}

func (e *PageInitError) Error() string {
	return fmt.Sprintf("page initialization failed: %s", e.Message)
}

// ReadyTimeoutError means the readiness signal was not set within the
// configured budget. The caller must close the session and may retry with a
// larger Config.ReadyTimeout.
type ReadyTimeoutError struct {
	Elapsed time.Duration
	Limit   time.Duration
}

func (e *ReadyTimeoutError) Error() string {
	return fmt.Sprintf("page not ready after %s (limit %s)", e.Elapsed.Round(time.Millisecond), e.Limit)
}
