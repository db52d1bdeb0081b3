// Package redact scrubs credentials from text that leaves the process:
// upstream error bodies kept in errors and logs, and pull request comments.
//
// Detection uses regex heuristics for common secret shapes (API key
// assignments, bearer tokens, JWTs, private key headers, AWS keys, Google
// API keys and OAuth access tokens, GitHub, Slack, Anthropic and OpenAI
// tokens). [Values] additionally removes literal secrets known to the
// caller, such as the configured GitHub token.
package redact
