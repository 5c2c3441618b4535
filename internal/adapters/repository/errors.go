package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrClosed = errors.New("store closed")
	ErrOpen   = errors.New("open store failed")
	ErrSeed   = errors.New("load seed failed")
)
