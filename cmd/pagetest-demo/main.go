// Pagetest Demo
//
// Runs one full harness session against a sample page: bind the application
// server, launch Chrome, wait for readiness, poke the page with synthesized
// input, reload, and tear everything down. Useful for verifying a machine
// can run the e2e suite.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/thesyncim/pagetest/pkg/harness"
	"github.com/thesyncim/pagetest/pkg/harness/page"
)

var (
	headless = flag.Bool("headless", true, "run Chrome headless")
	timeout  = flag.Duration("ready-timeout", 30*time.Second, "readiness wait budget")
	port     = flag.Int("port", 0, "application server port (0 = random)")
)

func demoPage(*harness.Session, *http.Request) (*page.Node, error) {
	return page.El("div",
		page.El("h1", page.Text("pagetest demo")),
		page.El("input").Attr("type", "range").Attr("id", "low").
			Attr("oninput", "document.getElementById('high').value = this.value"),
		page.El("input").Attr("type", "range").Attr("id", "high"),
		page.El("input").Attr("type", "button").Attr("value", "reset"),
		page.El("div", page.Text("session is live")).TestID("status"),
		page.El("canvas").Attr("width", "320").Attr("height", "200"),
	), nil
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	step := color.New(color.FgCyan).PrintfFunc()
	ok := color.New(color.FgGreen).PrintfFunc()

	cfg := harness.DefaultConfig()
	cfg.Headless = *headless
	cfg.ReadyTimeout = *timeout
	cfg.Port = *port

	s, err := harness.NewSession(cfg, demoPage, harness.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Fatalf("Close reported a leaked shell process: %v", err)
		}
	}()

	step("Starting session (server + Chrome + readiness wait)...\n")
	if err := s.Start(context.Background()); err != nil {
		log.Fatalf("Start failed: %v", err)
	}
	ok("Ready on %s (state %s)\n", s.Endpoint(), s.State())

	step("Querying the status label by test id...\n")
	label, err := s.QueryByTestID("status")
	if err != nil {
		log.Fatalf("QueryByTestID failed: %v", err)
	}
	text, err := label.Text()
	if err != nil {
		log.Fatalf("Text failed: %v", err)
	}
	ok("Label reads %q\n", text)

	step("Synthesizing input (key press + mouse move)...\n")
	if err := s.TriggerKeyPress(65); err != nil {
		log.Fatalf("TriggerKeyPress failed: %v", err)
	}
	if err := s.TriggerMouseMove(160, 100); err != nil {
		log.Fatalf("TriggerMouseMove failed: %v", err)
	}
	ok("Input delivered\n")

	step("Reloading the page (fresh serve cycle)...\n")
	if err := s.Reload(context.Background()); err != nil {
		log.Fatalf("Reload failed: %v", err)
	}
	ok("Reloaded, %d element nodes served\n", s.ServedNodeCount())

	step("Closing session...\n")
}
