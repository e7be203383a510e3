//go:build e2e

package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/pagetest/pkg/harness"
	"github.com/thesyncim/pagetest/pkg/harness/page"
)

// scenarioPage builds the reference page: two value-linked range sliders,
// a button, a text field, a labeled div with a known test id, and a canvas
// for default mouse-move targeting.
func scenarioPage(*harness.Session, *http.Request) (*page.Node, error) {
	return page.El("div",
		page.El("input").Attr("type", "range").Attr("id", "low").
			Attr("oninput", "document.getElementById('high').value = this.value"),
		page.El("input").Attr("type", "range").Attr("id", "high").
			Attr("oninput", "document.getElementById('low').value = this.value"),
		page.El("input").Attr("type", "button").Attr("value", "reset"),
		page.El("input").Attr("type", "text").Attr("id", "amount"),
		page.El("div", page.Text("linked sliders")).TestID("status-label"),
		page.El("canvas").Attr("width", "200").Attr("height", "100"),
	), nil
}

func startSession(t *testing.T, build harness.PageBuilder) *harness.Session {
	t.Helper()
	s, err := harness.NewSession(harness.DefaultConfig(), build)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("session close error: %v", err)
		}
	})
	require.NoError(t, s.Start(context.Background()))
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := startSession(t, scenarioPage)

	require.Equal(t, harness.Ready, s.State())
	require.NotNil(t, s.PageRoot())
	require.NotNil(t, s.HelperModule())

	// DOM shape matches what the builder returned.
	res, err := s.Eval(`() => document.querySelectorAll('input[type=range]').length`)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Int())

	res, err = s.Eval(`() => document.querySelectorAll('input[type=button]').length`)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Int())

	assert.Equal(t, 7, s.ServedNodeCount())

	// Test-id query resolves to the labeled element.
	label, err := s.QueryByTestID("status-label")
	require.NoError(t, err)
	text, err := label.Text()
	require.NoError(t, err)
	assert.Equal(t, "linked sliders", text)

	// A missing test id surfaces the bridge's raw evaluation error.
	_, err = s.QueryByTestID("no-such-id")
	assert.Error(t, err)
}

func TestSliderLinking(t *testing.T) {
	s := startSession(t, scenarioPage)

	res, err := s.Eval(`() => {
		const low = document.getElementById('low');
		low.value = '30';
		low.dispatchEvent(new Event('input'));
		return document.getElementById('high').value;
	}`)
	require.NoError(t, err)
	assert.Equal(t, "30", res.Str())
}

func TestInputSynthesis(t *testing.T) {
	s := startSession(t, scenarioPage)

	// Record synthesized events page-side.
	_, err := s.Eval(`() => {
		window.seenKeys = [];
		window.seenMoves = [];
		document.addEventListener('keydown', e => window.seenKeys.push(e.keyCode));
		document.querySelector('canvas').addEventListener('mousemove',
			e => window.seenMoves.push([e.clientX, e.clientY]));
	}`)
	require.NoError(t, err)

	// No explicit target on either trigger.
	require.NoError(t, s.TriggerKeyPress(65))
	require.NoError(t, s.TriggerMouseMove(120, 80))

	harness.WaitFor(t, func() bool {
		res, err := s.Eval(`() => window.seenKeys.length > 0 && window.seenMoves.length > 0`)
		return err == nil && res.Bool()
	}, 5*time.Second)

	res, err := s.Eval(`() => window.seenMoves[0]`)
	require.NoError(t, err)
	coords := res.Arr()
	require.Len(t, coords, 2)
	assert.Equal(t, 120, coords[0].Int())
	assert.Equal(t, 80, coords[1].Int())

	// Targeted key press on the text field.
	require.NoError(t, s.TriggerKeyPress(13, "#amount"))
}

func TestReloadProducesSameShape(t *testing.T) {
	s := startSession(t, scenarioPage)

	const childCountJS = `(id) => document.getElementById(id).children.length`
	before, err := s.Eval(childCountJS, page.RootID)
	require.NoError(t, err)

	// Plant page state that must not survive the reload.
	_, err = s.Eval(`() => { window.__marker = 'stale'; }`)
	require.NoError(t, err)

	require.NoError(t, s.Reload(context.Background()))
	require.Equal(t, harness.Ready, s.State())

	after, err := s.Eval(childCountJS, page.RootID)
	require.NoError(t, err)
	assert.Equal(t, before.Int(), after.Int())

	marker, err := s.Eval(`() => window.__marker === undefined`)
	require.NoError(t, err)
	assert.True(t, marker.Bool(), "previous cycle's state leaked across reload")
}

func TestHandlerErrorTearsEverythingDown(t *testing.T) {
	s, err := harness.NewSession(harness.DefaultConfig(),
		func(*harness.Session, *http.Request) (*page.Node, error) {
			return nil, errBoom{}
		})
	require.NoError(t, err)
	defer s.Close()

	startErr := s.Start(context.Background())
	var handlerErr *harness.HandlerError
	require.ErrorAs(t, startErr, &handlerErr)
	assert.Equal(t, "boom", handlerErr.Cause.Error())

	// Server and shell are already gone when the error is observed.
	assert.Equal(t, harness.Closed, s.State())
	_, getErr := http.Get(s.Endpoint() + "/healthz")
	assert.Error(t, getErr)
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func TestCloseStopsServing(t *testing.T) {
	s := startSession(t, scenarioPage)
	endpoint := s.Endpoint()

	require.NoError(t, s.Close())

	resp, err := http.Get(endpoint + "/")
	if err == nil {
		resp.Body.Close()
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	}
}

func TestTwoSessionsInOneProcess(t *testing.T) {
	a := startSession(t, scenarioPage)
	b := startSession(t, scenarioPage)

	require.NotEqual(t, a.Endpoint(), b.Endpoint())

	labelA, err := a.QueryByTestID("status-label")
	require.NoError(t, err)
	labelB, err := b.QueryByTestID("status-label")
	require.NoError(t, err)

	textA, err := labelA.Text()
	require.NoError(t, err)
	textB, err := labelB.Text()
	require.NoError(t, err)
	assert.Equal(t, textA, textB)

	require.NoError(t, a.TriggerKeyPress(32))
	require.NoError(t, b.TriggerKeyPress(32))

	// Closing one session must leave the other fully usable.
	require.NoError(t, a.Close())
	_, err = b.Eval(`() => document.title`)
	assert.NoError(t, err)
}
