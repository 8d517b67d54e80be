// Package lifecycle owns the booking status graph. Every status change goes through
// Transition so the legal table below is the only place transitions are decided.
package lifecycle

import (
	"benzback/internal/domains/booking/model"
	"fmt"
	"slices"
	"time"
)

var legalTransitions = map[model.Status][]model.Status{
	model.StatusPending:             {model.StatusLicenseRequired, model.StatusVerificationPending, model.StatusPendingPayment, model.StatusCancelled},
	model.StatusLicenseRequired:     {model.StatusVerificationPending, model.StatusPendingPayment, model.StatusCancelled},
	model.StatusVerificationPending: {model.StatusPendingPayment, model.StatusLicenseRequired, model.StatusCancelled},
	model.StatusPendingPayment:      {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed:           {model.StatusActive, model.StatusInProgress, model.StatusCancelled, model.StatusNoShow},
	model.StatusActive:              {model.StatusInProgress, model.StatusCompleted, model.StatusOverdue},
	model.StatusInProgress:          {model.StatusCompleted, model.StatusOverdue},
	model.StatusOverdue:             {model.StatusCompleted},
	model.StatusCompleted:           {},
	model.StatusCancelled:           {},
	model.StatusNoShow:              {},
}

// Successors returns a copy of the legal targets from status.
func Successors(status model.Status) []model.Status {
	return slices.Clone(legalTransitions[status])
}

func CanTransition(from, to model.Status) bool {
	return slices.Contains(legalTransitions[from], to)
}

func IsTerminal(status model.Status) bool {
	successors, ok := legalTransitions[status]

	return ok && len(successors) == 0
}

// Transition moves booking to target and appends one history entry stamped at.
// Requesting the current status is a no-op and appends nothing.
func Transition(booking *model.Booking, target model.Status, actor, note string, at time.Time) error {
	if booking.Status == target {
		return nil
	}

	if !CanTransition(booking.Status, target) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, booking.Status, target)
	}

	booking.Status = target
	booking.History = append(booking.History, model.StatusEntry{
		BookingID: booking.ID,
		Seq:       booking.LastHistorySeq() + 1,
		Status:    target,
		At:        at,
		Actor:     actor,
		Note:      note,
	})

	return nil
}

// Start seeds a new booking's history with its initial status.
func Start(booking *model.Booking, initial model.Status, actor, note string, at time.Time) error {
	if !initial.IsValid() || IsTerminal(initial) {
		return fmt.Errorf("%w: cannot start in %s", model.ErrInvalidTransition, initial)
	}

	booking.Status = initial
	booking.History = []model.StatusEntry{{
		BookingID: booking.ID,
		Seq:       1,
		Status:    initial,
		At:        at,
		Actor:     actor,
		Note:      note,
	}}

	return nil
}

// Replay re-applies history from its first entry and returns the resulting status.
// It fails if any step is not a legal transition.
func Replay(history []model.StatusEntry) (model.Status, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("%w: empty history", model.ErrInvalidTransition)
	}

	replayed := model.Booking{Status: history[0].Status}

	for _, entry := range history[1:] {
		if entry.Status == replayed.Status {
			return "", fmt.Errorf("%w: duplicate history entry %d", model.ErrInvalidTransition, entry.Seq)
		}

		if err := Transition(&replayed, entry.Status, entry.Actor, entry.Note, entry.At); err != nil {
			return "", err
		}
	}

	return replayed.Status, nil
}
