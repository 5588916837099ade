// Package notification publishes owner-facing appointment events.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Event string

const (
	EventCreated   Event = "appointment.created"
	EventApproved  Event = "appointment.approved"
	EventRejected  Event = "appointment.rejected"
	EventCompleted Event = "appointment.completed"
	EventCanceled  Event = "appointment.canceled"
)

type Message struct {
	Event         Event     `json:"event"`
	AppointmentID int64     `json:"appointment_id"`
	PetName       string    `json:"pet_name"`
	UserID        int64     `json:"user_id"`
	OwnerEmail    string    `json:"owner_email"`
	AppointmentAt time.Time `json:"appointment_at"`
	Status        string    `json:"status"`
	Message       string    `json:"message"`
}

// Publisher delivers messages to owners. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Text renders the human readable body for an event.
func Text(event Event, petName string, services []string, at time.Time) string {
	when := fmt.Sprintf("%s at %s", at.Format("02.01.2006"), at.Format("15:04"))
	switch event {
	case EventCreated, EventApproved:
		return fmt.Sprintf("Reminder: Upcoming appointment for %s's %s on %s",
			petName, strings.Join(services, ", "), when)
	default:
		status := strings.TrimPrefix(string(event), "appointment.")
		return fmt.Sprintf("The appointment for %s on %s has been %s", petName, when, status)
	}
}
