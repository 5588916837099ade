package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/notification"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/daylock"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Caller identifies who is acting, for authorization and audit.
type Caller struct {
	UserID    int64
	Role      domain.Role
	IP        string
	RequestID string
}

func (c Caller) IsAdmin() bool { return c.Role == domain.RoleAdmin }

type AppointmentService struct {
	repo        appointment.Repository
	petRepo     pet.Repository
	catalogRepo catalog.Repository
	locker      daylock.Locker
	notifier    notification.Publisher
	audit       AuditRecorder
	metrics     *metrics.Collector
	log         *zap.Logger
	tracer      trace.Tracer
}

func NewAppointmentService(
	repo appointment.Repository,
	petRepo pet.Repository,
	catalogRepo catalog.Repository,
	locker daylock.Locker,
	notifier notification.Publisher,
	audit AuditRecorder,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		repo:        repo,
		petRepo:     petRepo,
		catalogRepo: catalogRepo,
		locker:      locker,
		notifier:    notifier,
		audit:       audit,
		metrics:     m,
		log:         log,
		tracer:      otel.Tracer("vetcare/service/appointment"),
	}
}

// CreateAppointment books a new appointment. The same-day conflict check and
// the insert run under the day lock and inside one transaction, so two
// overlapping requests can never both succeed.
func (s *AppointmentService) CreateAppointment(ctx context.Context, cmd *appointment.CreateAppointmentCommand, caller Caller) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.CreateAppointment",
		trace.WithAttributes(attribute.Int64("pet.id", cmd.PetID)))
	defer span.End()

	a, p, err := s.createAppointment(ctx, cmd, caller)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("appointment.id", a.ID))

	s.metrics.AppointmentsCreated.WithLabelValues(a.Status.String()).Inc()
	s.recordAudit(ctx, caller, domain.ActionCreate, a.ID, map[string]any{
		"status":      a.Status.String(),
		"starts_at":   a.StartsAt(),
		"service_ids": a.ServiceIDs(),
	})
	s.notify(ctx, notification.EventCreated, a, p)

	s.log.Info("appointment created",
		zap.Int64("appointment_id", a.ID),
		zap.Int64("pet_id", a.PetID),
		zap.Time("starts_at", a.StartsAt()),
		zap.String("status", a.Status.String()),
		zap.String("request_id", caller.RequestID),
	)
	return a, nil
}

func (s *AppointmentService) createAppointment(ctx context.Context, cmd *appointment.CreateAppointmentCommand, caller Caller) (*appointment.Appointment, *pet.Pet, error) {
	if err := validateCreateCommand(cmd); err != nil {
		return nil, nil, err
	}

	p, err := s.petRepo.GetByID(ctx, cmd.PetID)
	if errors.Is(err, pet.ErrPetNotFound) {
		return nil, nil, &NotFoundError{Resource: "pet", ID: cmd.PetID, Err: pet.ErrPetNotFound}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("verifying pet: %w", err)
	}
	if caller.Role == domain.RoleOwner && p.OwnerID != caller.UserID {
		return nil, nil, ErrForbidden
	}

	serviceIDs, err := s.checkServices(ctx, cmd.ServiceIDs)
	if err != nil {
		return nil, nil, err
	}

	slot := cmd.Slot()

	waitStart := time.Now()
	unlock, err := s.locker.Lock(ctx, daylock.DayKey(slot.Date))
	if err != nil {
		return nil, nil, fmt.Errorf("acquiring booking lock: %w", err)
	}
	defer unlock()
	s.metrics.BookingLockWait.Observe(time.Since(waitStart).Seconds())

	var created *appointment.Appointment
	err = s.repo.Transaction(ctx, func(tx appointment.Repository) error {
		if err := tx.LockDate(ctx, slot.Date); err != nil {
			return err
		}

		existing, err := tx.ListByDate(ctx, slot.Date)
		if err != nil {
			return err
		}
		if c := appointment.FindConflict(slot, existing); c != nil {
			return &appointment.OverlapError{ConflictingID: c.ID}
		}

		status, err := initialStatus(cmd)
		if err != nil {
			return err
		}

		a := &appointment.Appointment{
			PetID:     cmd.PetID,
			Date:      slot.Date,
			Time:      cmd.Time,
			Duration:  cmd.Duration,
			Status:    status,
			Services:  make([]appointment.ServiceLink, 0, len(serviceIDs)),
			CreatedBy: caller.UserID,
		}
		for _, id := range serviceIDs {
			a.Services = append(a.Services, appointment.ServiceLink{ServiceID: id})
		}

		if err := tx.Create(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})

	var overlap *appointment.OverlapError
	var validErr *ValidationError
	switch {
	case err == nil:
		return created, p, nil
	case errors.As(err, &overlap):
		s.metrics.BookingConflicts.Inc()
		s.log.Info("booking rejected: slot overlaps existing appointment",
			zap.Int64("pet_id", cmd.PetID),
			zap.Int64("conflicting_id", overlap.ConflictingID),
			zap.Time("starts_at", slot.Date.Add(slot.Time)),
		)
		return nil, nil, err
	case errors.As(err, &validErr):
		return nil, nil, err
	case errors.Is(err, pet.ErrPetNotFound):
		return nil, nil, &NotFoundError{Resource: "pet", ID: cmd.PetID, Err: err}
	case errors.Is(err, catalog.ErrServiceNotFound):
		return nil, nil, &NotFoundError{Resource: "service", Err: err}
	default:
		s.log.Error("failed to create appointment", zap.Error(err))
		return nil, nil, fmt.Errorf("creating appointment: %w", err)
	}
}

// checkServices verifies that every requested service exists and returns
// the ids with duplicates removed, in request order.
func (s *AppointmentService) checkServices(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, &ValidationError{Fields: []string{"service_ids: " + appointment.ErrNoServices.Error()}}
	}

	found, err := s.catalogRepo.FindExisting(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("verifying services: %w", err)
	}

	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !found[id] {
			return nil, &NotFoundError{
				Resource: "service",
				ID:       id,
				Err:      &catalog.MissingServiceError{ServiceID: id},
			}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// initialStatus applies the creation precedence: admin-created bookings are
// approved outright, then an explicit status, then pending.
func initialStatus(cmd *appointment.CreateAppointmentCommand) (appointment.Status, error) {
	if cmd.CreatedByAdmin {
		return appointment.StatusApproved, nil
	}
	if cmd.Status != nil {
		st, err := appointment.ParseStatus(*cmd.Status)
		if err != nil {
			return 0, &ValidationError{Fields: []string{fmt.Sprintf("appointment_status: %s %d", err, *cmd.Status)}}
		}
		return st, nil
	}
	return appointment.StatusPending, nil
}

func validateCreateCommand(cmd *appointment.CreateAppointmentCommand) error {
	var errs []string

	if cmd.PetID <= 0 {
		errs = append(errs, "pet_id is required")
	}
	if cmd.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if cmd.Time < 0 || cmd.Time >= 24*time.Hour {
		errs = append(errs, "time: "+appointment.ErrInvalidTime.Error())
	}
	if cmd.Duration != nil && *cmd.Duration < 0 {
		errs = append(errs, "duration_minutes: "+appointment.ErrInvalidDuration.Error())
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (s *AppointmentService) ApproveAppointment(ctx context.Context, id int64, caller Caller) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.StatusApproved, caller)
}

func (s *AppointmentService) RejectAppointment(ctx context.Context, id int64, caller Caller) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.StatusRejected, caller)
}

func (s *AppointmentService) CompleteAppointment(ctx context.Context, id int64, caller Caller) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.StatusCompleted, caller)
}

func (s *AppointmentService) CancelAppointment(ctx context.Context, id int64, caller Caller) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.StatusCanceled, caller)
}

var transitionEvents = map[appointment.Status]notification.Event{
	appointment.StatusApproved:  notification.EventApproved,
	appointment.StatusRejected:  notification.EventRejected,
	appointment.StatusCompleted: notification.EventCompleted,
	appointment.StatusCanceled:  notification.EventCanceled,
}

func (s *AppointmentService) transition(ctx context.Context, id int64, to appointment.Status, caller Caller) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.transition", trace.WithAttributes(
		attribute.Int64("appointment.id", id),
		attribute.String("appointment.status.to", to.String()),
	))
	defer span.End()

	var updated *appointment.Appointment
	var from appointment.Status
	err := s.repo.Transaction(ctx, func(tx appointment.Repository) error {
		a, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = a.Status
		if err := a.TransitionTo(to); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		switch {
		case errors.Is(err, appointment.ErrAppointmentNotFound):
			s.metrics.StatusTransitions.WithLabelValues(to.String(), "not_found").Inc()
			return nil, &NotFoundError{Resource: "appointment", ID: id, Err: appointment.ErrAppointmentNotFound}
		case errors.Is(err, appointment.ErrInvalidStatusTransition):
			s.metrics.StatusTransitions.WithLabelValues(to.String(), "illegal").Inc()
			s.log.Info("status transition rejected",
				zap.Int64("appointment_id", id),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			return nil, err
		default:
			s.metrics.StatusTransitions.WithLabelValues(to.String(), "error").Inc()
			s.log.Error("failed to update appointment status", zap.Int64("appointment_id", id), zap.Error(err))
			return nil, fmt.Errorf("updating appointment %d: %w", id, err)
		}
	}

	s.metrics.StatusTransitions.WithLabelValues(to.String(), "ok").Inc()
	s.recordAudit(ctx, caller, domain.ActionUpdate, id, map[string]any{
		"status": map[string]string{"from": from.String(), "to": to.String()},
	})

	if p, err := s.petRepo.GetByID(ctx, updated.PetID); err != nil {
		s.log.Warn("skipping notification: pet lookup failed", zap.Int64("appointment_id", id), zap.Error(err))
	} else {
		s.notify(ctx, transitionEvents[to], updated, p)
	}

	return updated, nil
}

// GetAppointment returns one appointment. Owners may only read bookings of
// their own pets.
func (s *AppointmentService) GetAppointment(ctx context.Context, id int64, caller Caller) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, appointment.ErrAppointmentNotFound) {
		return nil, &NotFoundError{Resource: "appointment", ID: id, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("getting appointment: %w", err)
	}

	if caller.Role == domain.RoleOwner {
		if err := s.checkOwnership(ctx, a.PetID, caller); err != nil {
			return nil, err
		}
	}

	s.recordAudit(ctx, caller, domain.ActionRead, id, nil)
	return a, nil
}

// checkOwnership returns ErrForbidden unless caller owns the pet.
func (s *AppointmentService) checkOwnership(ctx context.Context, petID int64, caller Caller) error {
	p, err := s.petRepo.GetByID(ctx, petID)
	if errors.Is(err, pet.ErrPetNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("checking pet ownership: %w", err)
	}
	if p.OwnerID != caller.UserID {
		return ErrForbidden
	}
	return nil
}

// ListAppointmentsByDate returns the clinic calendar for one day.
func (s *AppointmentService) ListAppointmentsByDate(ctx context.Context, date time.Time) ([]*appointment.Appointment, error) {
	list, err := s.repo.ListByDate(ctx, appointment.CalendarDay(date))
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	return list, nil
}

func (s *AppointmentService) recordAudit(ctx context.Context, caller Caller, action domain.AuditAction, id int64, changes map[string]any) {
	if s.audit == nil {
		return
	}
	var raw string
	if changes != nil {
		if b, err := json.Marshal(changes); err == nil {
			raw = string(b)
		}
	}
	s.audit.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       string(action),
		ResourceType: "appointment",
		ResourceID:   strconv.FormatInt(id, 10),
		IPAddress:    caller.IP,
		RequestID:    caller.RequestID,
		Changes:      raw,
	})
	s.metrics.AuditEntriesTotal.Inc()
}

// notify is best effort: the booking is already committed, so failures are
// logged and counted but never returned.
func (s *AppointmentService) notify(ctx context.Context, event notification.Event, a *appointment.Appointment, p *pet.Pet) {
	if s.notifier == nil {
		return
	}

	names := a.ServiceNames()
	if len(names) == 0 {
		services, err := s.catalogRepo.ListByIDs(ctx, a.ServiceIDs())
		if err != nil {
			s.log.Warn("loading service names for notification", zap.Error(err))
		}
		for _, svc := range services {
			names = append(names, svc.Name)
		}
	}

	msg := notification.Message{
		Event:         event,
		AppointmentID: a.ID,
		PetName:       p.Name,
		UserID:        p.OwnerID,
		OwnerEmail:    p.OwnerEmail(),
		AppointmentAt: a.StartsAt(),
		Status:        a.Status.String(),
		Message:       notification.Text(event, p.Name, names, a.StartsAt()),
	}
	if err := s.notifier.Publish(ctx, msg); err != nil {
		s.metrics.NotificationsFailed.Inc()
		s.log.Warn("failed to publish owner notification",
			zap.Int64("appointment_id", a.ID),
			zap.String("event", string(event)),
			zap.Error(err),
		)
	}
}
