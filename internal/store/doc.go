// Package store keeps a SQLite history of review runs.
//
// It uses the pure-Go modernc.org/sqlite driver with separate writer and
// reader pools, and applies embedded golang-migrate migrations on open.
package store
