package util

import "errors"

var (
	// ErrNotFound is the storage-agnostic miss: both the Postgres and the
	// in-memory gateways translate their native "no row" conditions to it so
	// callers can branch with errors.Is.
	ErrNotFound = errors.New("not found")
)
