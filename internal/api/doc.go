// Package api hosts the HTTP server, middleware, and REST handlers for the
// compliance gate. Notable routes:
//   - GET /health, /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET / for a small status page with a URL check form.
//   - GET and POST /v1/check for admission decisions.
//   - GET /v1/domains/{domain} for quota, bucket and robots.txt state.
package api
