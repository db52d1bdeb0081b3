// Package github posts the review summary as a pull request comment.
//
// The [Notifier] uses go-github over a transport stack of httpcache and
// go-github-ratelimit, authenticating each call with the token carried in
// the payload. Every failure is returned as a *NotificationError; callers
// log it and carry on, since a failed comment never fails a review.
//
// [ParseRemoteURL], [RepositoryFromURL] and [DetectRepo] derive the
// owner/repo pair from a git remote.
package github
