// Package harness drives browser-based end-to-end tests: it serves a
// dynamically built page into a desktop browser shell and hands the test a
// live Session handle for driving and inspecting that page.
//
// The core is the session lifecycle controller, which coordinates three
// independently-failing, asynchronously-initializing subsystems into one
// synchronous-looking handle:
//
//   - the HTTP application server (pkg/harness/appserver), whose request
//     handler runs the user's page builder on its own goroutine
//   - the native browser shell process (rod-controlled Chrome)
//   - the in-page script runtime, which reports progress only through the
//     script bridge's readiness and init-error slots
//
// The controller waits by cooperative polling rather than a single blocking
// wait so it can observe all failure channels at once: the shell window
// disappearing, the page builder failing, the page script failing to
// initialize, and the timeout budget running out.
//
// A Session always tears down cleanly: any failure during Start or Reload
// closes the session automatically before the error reaches the caller, and
// Close itself is idempotent and safe in every state.
package harness
