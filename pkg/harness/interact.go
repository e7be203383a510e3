package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"
)

// Interaction helpers. All of them require the session to be Ready and go
// through the script bridge; evaluation failures are returned as-is.

const keyPressJS = `(code, sel) => {
	const target = sel ? document.querySelector(sel) : document;
	if (!target) throw new Error('keyPress: no element matches ' + sel);
	window.__harness.keyPress(code, target);
}`

// TriggerKeyPress dispatches a key-down then key-up pair with the given key
// code on the element matching the optional selector, defaulting to the
// document itself.
func (s *Session) TriggerKeyPress(keyCode int, selector ...string) error {
	sel := ""
	if len(selector) > 0 {
		sel = selector[0]
	}
	_, err := s.Eval(keyPressJS, keyCode, sel)
	return err
}

const mouseMoveJS = `(x, y, sel) => {
	const target = sel ? document.querySelector(sel) : null;
	window.__harness.mouseMove(x, y, target);
}`

// TriggerMouseMove dispatches a mouse-move with the given client
// coordinates on the element matching the optional selector. Without a
// selector the helper script targets the first canvas in the document and
// throws if there is none.
func (s *Session) TriggerMouseMove(x, y float64, selector ...string) error {
	sel := ""
	if len(selector) > 0 {
		sel = selector[0]
	}
	_, err := s.Eval(mouseMoveJS, x, y, sel)
	return err
}

const testIDQueryJS = `(id) => {
	const el = document.querySelector('[data-testid="' + CSS.escape(id) + '"]');
	if (!el) throw new Error('no element with test id: ' + id);
	return el;
}`

// ByTestID builds the parameterized script expression selecting the unique
// element whose test-id attribute equals id. The id travels as a script
// argument and is CSS-escaped page-side; it is never spliced into script
// source.
func ByTestID(id string) (js string, args []interface{}) {
	return testIDQueryJS, []interface{}{id}
}

// QueryByTestID resolves the element carrying the given test id to a
// handle. A missing element surfaces as the bridge's raw evaluation error.
func (s *Session) QueryByTestID(id string) (Handle, error) {
	js, args := ByTestID(id)
	return s.Resolve(js, args...)
}

// Eval runs a script function inside the page and returns its
// JSON-serialized result. The session must be Ready.
func (s *Session) Eval(js string, args ...interface{}) (gson.JSON, error) {
	bridge, err := s.readyBridge()
	if err != nil {
		return gson.New(nil), err
	}
	return bridge.Eval(js, args...)
}

// Resolve runs a script function inside the page and returns a handle to
// its result. The session must be Ready.
func (s *Session) Resolve(js string, args ...interface{}) (Handle, error) {
	bridge, err := s.readyBridge()
	if err != nil {
		return nil, err
	}
	return bridge.Resolve(js, args...)
}

// DefaultWaitTimeout bounds WaitFor when no explicit timeout is given.
const DefaultWaitTimeout = 10 * time.Second

const waitPollInterval = 50 * time.Millisecond

// WaitFor polls pred until it reports true or the timeout elapses, then
// asserts it is true. The visible failure is always "condition not met",
// not an opaque timeout, so the test report names the false predicate
// rather than the clock.
func WaitFor(t testing.TB, pred func() bool, timeout ...time.Duration) {
	t.Helper()
	limit := DefaultWaitTimeout
	if len(timeout) > 0 {
		limit = timeout[0]
	}
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(waitPollInterval)
	}
	require.True(t, pred(), "condition not met within %v", limit)
}
