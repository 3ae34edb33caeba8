package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrDuplicateBookingID = errors.New("booking id already exists")

	// ErrStatusChanged is returned when a conditional update found the
	// booking in a different state than the caller expected.
	ErrStatusChanged = errors.New("booking status changed concurrently")
)
