// Package server exposes criticat over HTTP using huma on a chi router.
//
// Routes: POST /review runs one review and returns the report, GET /health
// reports liveness, GET /runs lists recorded runs. Errors use a
// {"error": {"code", "message"}} envelope.
//
// NewMCP serves the same pipeline as an MCP "review" tool, which can also
// target a pull request.
package server
