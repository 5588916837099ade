package appointment

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/pet"
)

type Appointment struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	PetID int64    `gorm:"column:pet_id;not null;index"`
	Pet   *pet.Pet `gorm:"foreignKey:PetID"`

	// Date is the calendar day at midnight UTC; Time is the offset into it.
	Date     time.Time      `gorm:"column:date;type:date;not null;index"`
	Time     time.Duration  `gorm:"column:time_of_day;not null"`
	Duration *time.Duration `gorm:"column:duration"`
	Status   Status         `gorm:"column:status;not null;index"`

	Services []ServiceLink `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE"`

	CreatedBy int64 `gorm:"column:created_by;not null"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// ServiceLink associates an appointment with one clinic service.
type ServiceLink struct {
	ID            int64 `gorm:"primaryKey;autoIncrement"`
	AppointmentID int64 `gorm:"column:appointment_id;not null;index"`
	ServiceID     int64 `gorm:"column:service_id;not null;index"`

	Service *catalog.Service `gorm:"foreignKey:ServiceID"`
}

func (ServiceLink) TableName() string {
	return "appointment_services"
}

func (a *Appointment) Slot() Slot {
	return Slot{Date: a.Date, Time: a.Time, Duration: a.Duration}
}

// StartsAt returns the scheduled start, floored to the minute.
func (a *Appointment) StartsAt() time.Time {
	start, _ := a.Slot().Bounds()
	return start
}

func (a *Appointment) EndsAt() time.Time {
	_, end := a.Slot().Bounds()
	return end
}

func (a *Appointment) ServiceIDs() []int64 {
	ids := make([]int64, 0, len(a.Services))
	for _, s := range a.Services {
		ids = append(ids, s.ServiceID)
	}
	return ids
}

// ServiceNames lists the names of the loaded services.
func (a *Appointment) ServiceNames() []string {
	names := make([]string, 0, len(a.Services))
	for _, s := range a.Services {
		if s.Service != nil {
			names = append(names, s.Service.Name)
		}
	}
	return names
}

// TransitionTo moves the appointment to next if the state machine allows it.
func (a *Appointment) TransitionTo(next Status) error {
	if !CanTransition(a.Status, next) {
		return &TransitionError{From: a.Status, To: next}
	}
	a.Status = next
	return nil
}

type CreateAppointmentCommand struct {
	PetID      int64
	Date       time.Time
	Time       time.Duration
	Duration   *time.Duration
	ServiceIDs []int64

	// Status is the raw status requested by the client, if any.
	Status         *int
	CreatedByAdmin bool
	CreatedBy      int64
}

func (c *CreateAppointmentCommand) Slot() Slot {
	return Slot{Date: CalendarDay(c.Date), Time: c.Time, Duration: c.Duration}
}
