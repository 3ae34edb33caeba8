package errors

import (
	"errors"
	"fmt"
)

var (
	ErrLedgerNotFound = errors.New("seat ledger not found")

	ErrInsufficientReserved = errors.New("seat ledger holds fewer seats than released")

	ErrLedgerChanged = errors.New("seat ledger changed during recount")
)

// CapacityError is returned when a reservation would push a bucket past its capacity.
type CapacityError struct {
	Remaining int
	Requested int
	Month     string
	Year      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Only %d seats available for %s %d. You requested %d seats.", e.Remaining, e.Month, e.Year, e.Requested)
}

// DateError is returned when the requested month, year or day is not offered by the event.
type DateError struct {
	Message string
}

func (e *DateError) Error() string {
	return e.Message
}
