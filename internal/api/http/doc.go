// Package http holds the demo service's HTTP handlers.
//
// Routes:
//   - GET /        service banner
//   - GET /health  liveness and reporter endpoint
//   - GET /stats   span delivery counters as JSON
//   - GET /trace   trace context the request was served under
package http
