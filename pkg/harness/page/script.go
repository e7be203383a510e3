package page

// ScriptPath is the URL path the helper script module is served from.
const ScriptPath = "/harness.js"

// HelperScript is the script module injected into every served page. It
// provides the readiness/init-error slots the lifecycle controller polls,
// plus the two event-synthesis capabilities the interaction helpers call.
//
// The slots are write-once per serve cycle: the page is rebuilt from scratch
// on every navigation, so a reload naturally resets them.
const HelperScript = `'use strict';
window.__harness = {
    ready: false,
    initError: null,

    // markReady is called by the beacon the renderer appends after the page
    // content. Write-once: later calls are ignored.
    markReady: function () {
        if (this.initError === null) {
            this.ready = true;
        }
    },

    // fail records a client-side initialization error. Write-once; once set
    // the page can never become ready.
    fail: function (message) {
        if (this.initError === null) {
            this.initError = String(message);
        }
    },

    // keyPress dispatches a keydown/keyup pair with the given numeric code
    // on the target (default: document).
    keyPress: function (code, target) {
        target = target || document;
        const opts = { keyCode: code, which: code, bubbles: true, cancelable: true };
        target.dispatchEvent(new KeyboardEvent('keydown', opts));
        target.dispatchEvent(new KeyboardEvent('keyup', opts));
    },

    // mouseMove dispatches a mousemove with the given client coordinates on
    // the target, defaulting to the first canvas element in the document.
    mouseMove: function (x, y, target) {
        target = target || document.querySelector('canvas');
        if (!target) {
            throw new Error('mouseMove: no target given and no canvas element found');
        }
        target.dispatchEvent(new MouseEvent('mousemove', {
            clientX: x,
            clientY: y,
            bubbles: true,
            cancelable: true,
        }));
    },
};

// Surface uncaught errors raised while the page initializes; the controller
// reports them instead of timing out.
window.addEventListener('error', function (e) {
    if (!window.__harness.ready) {
        window.__harness.fail(e.message);
    }
});
`
