// Package lifecycle is the booking state machine. Every status change a
// booking can make is a named Transition with fixed source states.
package lifecycle

import (
	"fmt"
	"slices"

	"trekkr/pkg/model"
)

type Transition string

const (
	Confirm  Transition = "confirm"
	Cancel   Transition = "cancel"
	Complete Transition = "complete"
	Refund   Transition = "refund"
)

type edge struct {
	from []model.BookingStatus
	to   model.BookingStatus
}

var table = map[Transition]edge{
	Confirm:  {from: []model.BookingStatus{model.BookingPending}, to: model.BookingConfirmed},
	Cancel:   {from: []model.BookingStatus{model.BookingPending, model.BookingConfirmed}, to: model.BookingCancelled},
	Complete: {from: []model.BookingStatus{model.BookingConfirmed}, to: model.BookingCompleted},
	Refund:   {from: []model.BookingStatus{model.BookingConfirmed, model.BookingCancelled}, to: model.BookingRefunded},
}

// InvalidTransitionError reports a transition attempted from a state that
// does not allow it.
type InvalidTransitionError struct {
	Transition Transition
	From       model.BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a booking that is %s", e.Transition, e.From)
}

// Sources lists the statuses t may start from. The slice is a copy.
func Sources(t Transition) []model.BookingStatus {
	return slices.Clone(table[t].from)
}

func Target(t Transition) model.BookingStatus {
	return table[t].to
}

// Check returns the status t leads to from current.
func Check(current model.BookingStatus, t Transition) (model.BookingStatus, error) {
	e, ok := table[t]
	if !ok || !slices.Contains(e.from, current) {
		return current, &InvalidTransitionError{Transition: t, From: current}
	}
	return e.to, nil
}

// Allowed reports whether any transition moves from to to.
func Allowed(from, to model.BookingStatus) bool {
	for _, e := range table {
		if e.to == to && slices.Contains(e.from, from) {
			return true
		}
	}
	return false
}

func IsTerminal(status model.BookingStatus) bool {
	for _, e := range table {
		if slices.Contains(e.from, status) {
			return false
		}
	}
	return true
}
