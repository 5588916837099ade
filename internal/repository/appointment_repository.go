package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/daylock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Transaction(ctx context.Context, fn func(tx appointment.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&AppointmentRepository{db: tx})
	})
}

// LockDate takes a transaction-scoped advisory lock on PostgreSQL. SQLite
// serializes writers itself, so there it is a no-op.
func (r *AppointmentRepository) LockDate(ctx context.Context, date time.Time) error {
	if !isPostgres(r.db.Dialector.Name()) {
		return nil
	}
	key := daylock.DayKey(appointment.CalendarDay(date))
	if err := r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("locking %s: %w", key, err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*appointment.Appointment, error) {
	return r.get(ctx, r.db.WithContext(ctx), id)
}

func (r *AppointmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*appointment.Appointment, error) {
	q := r.db.WithContext(ctx)
	if isPostgres(r.db.Dialector.Name()) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(ctx, q, id)
}

func (r *AppointmentRepository) get(ctx context.Context, q *gorm.DB, id int64) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := q.Where("deleted_at IS NULL").First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting appointment %d: %w", id, err)
	}

	// Loaded separately so the row lock above stays a single-table lock.
	if err := r.db.WithContext(ctx).Preload("Service").
		Where("appointment_id = ?", a.ID).Order("id").
		Find(&a.Services).Error; err != nil {
		return nil, fmt.Errorf("loading services of appointment %d: %w", id, err)
	}
	return &a, nil
}

func (r *AppointmentRepository) ListByDate(ctx context.Context, date time.Time) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("date = ? AND deleted_at IS NULL", appointment.CalendarDay(date)).
		Order("time_of_day, id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	return out, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	a.Date = appointment.CalendarDay(a.Date)
	if err := r.db.WithContext(ctx).Omit("Pet").Create(a).Error; err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	res := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ? AND deleted_at IS NULL", a.ID).
		Updates(map[string]any{
			"status":     a.Status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("updating appointment %d: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}
