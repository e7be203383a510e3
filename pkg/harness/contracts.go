package harness

import (
	"context"

	"github.com/ysmood/gson"
)

// ShellDriver drives the native browser shell window owned by one Session.
// The session exclusively owns its driver; nothing else may drive the same
// window concurrently.
type ShellDriver interface {
	// Launch starts the shell process and opens a blank window.
	Launch(ctx context.Context) error

	// Load instructs the window to navigate to the URL.
	Load(url string) error

	// Exists reports whether the window is still alive. The readiness wait
	// polls this so a vanished window fails the wait instead of hanging it.
	Exists() bool

	// Bridge returns the script bridge into the currently loaded page.
	// Only valid after Launch.
	Bridge() ScriptBridge

	// Close closes the window and shuts down the shell process.
	Close() error
}

// ScriptBridge executes script inside the page and returns
// JSON-serializable results or opaque handles to in-page objects.
// Evaluation failures are propagated as-is, not mapped to harness types.
type ScriptBridge interface {
	// Eval runs a script function with the given arguments and returns its
	// JSON-serialized result. Arguments are passed by value into the page,
	// never spliced into script source.
	Eval(js string, args ...interface{}) (gson.JSON, error)

	// Resolve runs a script function and returns a handle to the object it
	// evaluates to, without serializing it.
	Resolve(js string, args ...interface{}) (Handle, error)
}

// Handle is an opaque reference to an object living inside the page. Handles
// are valid only while the session is Ready and must not be cached across a
// Reload.
type Handle interface {
	// Text returns the text content of the referenced object when it is a
	// DOM element, and an error otherwise.
	Text() (string, error)
}
