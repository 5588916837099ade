package appointment

import (
	"context"
	"time"
)

type Repository interface {
	// Transaction runs fn inside a storage transaction. The Repository passed
	// to fn is bound to that transaction; fn's error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	// LockDate takes the storage-level booking lock for the calendar day.
	// Only meaningful inside Transaction; released on commit or rollback.
	LockDate(ctx context.Context, date time.Time) error

	// GetByID returns ErrAppointmentNotFound if the appointment does not exist.
	GetByID(ctx context.Context, id int64) (*Appointment, error)

	// GetByIDForUpdate is GetByID with a row lock held until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*Appointment, error)

	// ListByDate returns every stored appointment on the calendar day.
	ListByDate(ctx context.Context, date time.Time) ([]*Appointment, error)

	// Create persists the appointment together with its service links.
	Create(ctx context.Context, a *Appointment) error

	UpdateStatus(ctx context.Context, a *Appointment) error
}
