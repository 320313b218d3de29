package domain

import "errors"

var (
	// ErrNotFound indicates the requested contact or attachment was not found.
	ErrNotFound = errors.New("not found")
)
