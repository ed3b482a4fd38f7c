package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail indicates a registration conflict on the email column.
	ErrDuplicateEmail = errors.New("repository: email already registered")
	// ErrInvalidSort indicates a sort field or direction outside the allow-list.
	ErrInvalidSort = errors.New("repository: invalid sort parameter")
)
