// Package review contains the domain model of a document formatting review.
//
// A FormatReview groups FormatIssue values under a fixed category taxonomy.
// HasIssues and IssueCount are computed fresh from the categories on every
// call; they gate both joke injection and pull request notification.
//
// The package also owns the run state threaded through the pipeline
// (ReviewConfig, ReviewState, ControlState), the prompts and JSON schema sent
// to vision models, and ParseReview, which turns a model response into a
// validated FormatReview.
//
// Occlusion findings (text_occlusion, image_occlusion) are always blocking:
// EnforceOcclusionPolicy escalates any that a model labelled info or warning.
package review
