package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a conditional write matched no row because
	// the entity changed since it was read.
	ErrConflict = errors.New("entity modified concurrently")
)
