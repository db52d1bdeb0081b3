// Package output persists and renders review reports.
//
// [SaveReport] writes the canonical criticat_feedback.json file. Display
// formats are obtained from [GetWriter]:
//   - text     - terminal summary table and per-issue details (default)
//   - json     - the report object, pretty-printed
//   - yaml     - the same object as YAML
//   - markdown - the pull request comment body
//   - html     - the comment body rendered to sanitized HTML
//   - sarif    - SARIF v2.1.0, one run per provider, for code scanning upload
//
// Providers are always rendered in name order.
package output
