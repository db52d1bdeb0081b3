// Package cache provides a file-based cache for structured review responses.
//
// Keys are SHA-256 hashes of the provider name, model and the ordered page
// images, so an unchanged document is not sent to the same model twice. Each
// entry stores the raw response with a creation time and TTL; the response
// is still parsed and validated on every hit. The default directory is
// $XDG_CACHE_HOME/criticat or the OS equivalent.
package cache
