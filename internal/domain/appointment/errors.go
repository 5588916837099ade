package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrOverlap                 = errors.New("there is already an appointment scheduled that overlaps with the requested time")
	ErrInvalidStatusTransition = errors.New("appointment status transition not allowed")
	ErrInvalidStatus           = errors.New("invalid appointment status")
	ErrNoServices              = errors.New("at least one service must be provided")
	ErrInvalidTime             = errors.New("appointment time must be within the day")
	ErrInvalidDuration         = errors.New("appointment duration cannot be negative")
)

// OverlapError identifies the booking that blocked a new appointment.
type OverlapError struct {
	ConflictingID int64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s (appointment %d)", ErrOverlap.Error(), e.ConflictingID)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move appointment from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStatusTransition }
