// Package main hosts the crawlgate entrypoint.
//
// Commands:
//   - serve: exposes the gate over HTTP (internal/api). GET or POST /v1/check returns the decision for one URL;
//     /healthz, /readyz and /metrics stay lightweight for probes and scraping. SIGINT/SIGTERM drain in-flight
//     requests before exit.
//   - check: runs each URL argument through the same gate in order and prints ALLOW or DENY with the reason.
//     Invalid URLs are reported on stderr and make the command exit non-zero.
//
// Configuration is loaded by internal/config from an optional file plus GATE_* environment variables (PORT is
// honoured for the listen port). One gate instance lives for the whole process, so robots.txt rulesets and rate
// limit windows are shared by every request.
package main
