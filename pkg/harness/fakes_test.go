package harness

import (
	"context"
	"errors"
	"net/http"

	"github.com/ysmood/gson"
)

// fakeShell stands in for the browser shell in lifecycle tests. Its Load
// behaves like a real browser's navigation: it fetches the URL (consuming
// the serve cycle's page request) and, when the page came back healthy,
// marks the fake bridge's helper module as loaded and ready.
type fakeShell struct {
	bridge *fakeBridge

	launched bool
	closed   bool
	gone     bool // window vanished

	autoReady bool               // mark ready after a successful load
	loadErr   error              // injected navigation failure
	closeErr  error              // injected close failure
	onLoad    func(sh *fakeShell) // runs after each load
}

func newFakeShell() *fakeShell {
	return &fakeShell{bridge: &fakeBridge{}, autoReady: true}
}

func (sh *fakeShell) Launch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh.launched = true
	return nil
}

func (sh *fakeShell) Load(url string) error {
	if sh.loadErr != nil {
		return sh.loadErr
	}
	// Navigation resets the page; a fresh document means fresh slots.
	sh.bridge.reset()

	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		sh.bridge.setLoaded()
		if sh.autoReady {
			sh.bridge.setReady()
		}
	}
	if sh.onLoad != nil {
		sh.onLoad(sh)
	}
	return nil
}

func (sh *fakeShell) Exists() bool {
	return sh.launched && !sh.gone && !sh.closed
}

func (sh *fakeShell) Bridge() ScriptBridge { return sh.bridge }

func (sh *fakeShell) Close() error {
	sh.closed = true
	return sh.closeErr
}

// fakeBridge emulates the in-page script runtime's readiness and init-error
// slots. Evaluations of the ready probe report them; everything else
// records the call and succeeds.
type fakeBridge struct {
	loaded    bool
	ready     bool
	initError string

	evalErr error // injected failure for non-probe evaluations
	evals   []string
}

func (b *fakeBridge) reset() {
	b.loaded = false
	b.ready = false
	b.initError = ""
}

func (b *fakeBridge) setLoaded() { b.loaded = true }

func (b *fakeBridge) setReady() {
	b.loaded = true
	b.ready = true
}

func (b *fakeBridge) failInit(msg string) {
	b.loaded = true
	b.initError = msg
}

func (b *fakeBridge) Eval(js string, args ...interface{}) (gson.JSON, error) {
	if js == readyProbeJS {
		if !b.loaded {
			return gson.New(nil), nil
		}
		state := map[string]interface{}{"ready": b.ready, "initError": nil}
		if b.initError != "" {
			state["initError"] = b.initError
		}
		return gson.New(state), nil
	}
	b.evals = append(b.evals, js)
	if b.evalErr != nil {
		return gson.New(nil), b.evalErr
	}
	return gson.New(nil), nil
}

func (b *fakeBridge) Resolve(js string, args ...interface{}) (Handle, error) {
	if !b.loaded {
		return nil, errors.New("page not loaded")
	}
	return &fakeHandle{expr: js}, nil
}

// fakeHandle is a distinct allocation per Resolve call, so tests can verify
// handles are replaced across a reload.
type fakeHandle struct {
	expr string
	text string
}

func (h *fakeHandle) Text() (string, error) { return h.text, nil }
