// Criticat reviews the visual formatting of PDF documents with vision
// language models and reports the findings, optionally as a comment on the
// pull request that produced the document.
//
// Every page is rendered to an image and sent to each configured provider
// (Vertex AI Gemini, OpenAI, Anthropic or a local Ollama model). The merged
// feedback is written to reports/criticat_feedback.json, printed in the
// selected format and recorded in a local run history.
//
// Usage:
//
//	criticat review --pdf-path build/resume.pdf       # review a PDF
//	criticat review --pdf-path cv.pdf --pr-number 12  # comment on a PR when issues are found
//	criticat serve                                    # run the HTTP API
//	criticat mcp                                      # serve the review tool over MCP stdio
//	criticat history                                  # list past runs
//	criticat hook install --pdf-path cv.pdf           # gate commits on the review
//
// Exit codes: 0 success, 1 issues found with --fail-on-issues, 2 usage or
// configuration error, 3 provider authentication error, 4 runtime error.
package main
