package group

import "errors"

// Common errors returned by group implementations.
var (
	// ErrMismatchedElements is returned when an operation combines
	// elements that do not belong to the same group.
	ErrMismatchedElements = errors.New("group: elements belong to different groups")

	// ErrInvalidEncoding is returned when deserializing bytes that do not
	// describe a group element.
	ErrInvalidEncoding = errors.New("group: invalid element encoding")
)
