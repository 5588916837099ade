package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/notification"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/daylock"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	june10 = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	admin  = Caller{UserID: 1, Role: domain.RoleAdmin, IP: "10.0.0.1", RequestID: "req-1"}
	vet    = Caller{UserID: 2, Role: domain.RoleVet}
)

type harness struct {
	svc       *AppointmentService
	repo      *memAppointments
	publisher *mockPublisher
	audit     *recordingAudit
	metrics   *metrics.Collector
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := newMemAppointments()
	pets := memPets{
		7: {ID: 7, OwnerID: 30, Name: "Rex", Owner: &domain.User{ID: 30, Email: "owner@clinic.test"}},
		8: {ID: 8, OwnerID: 31, Name: "Misty"},
	}
	services := memCatalog{
		1: {ID: 1, Name: "Checkup"},
		2: {ID: 2, Name: "Vaccination"},
	}
	pub := &mockPublisher{}
	audit := &recordingAudit{}
	m := metrics.NewCollector("vetcare_test", prometheus.NewRegistry())

	svc := NewAppointmentService(repo, pets, services, daylock.NewLocal(5 * time.Second), pub, audit, m, zap.NewNop())
	return &harness{svc: svc, repo: repo, publisher: pub, audit: audit, metrics: m}
}

func minutesPtr(n int) *time.Duration {
	d := time.Duration(n) * time.Minute
	return &d
}

func intPtr(v int) *int { return &v }

func booking(tod time.Duration, dur *time.Duration) *appointment.CreateAppointmentCommand {
	return &appointment.CreateAppointmentCommand{
		PetID:      7,
		Date:       june10,
		Time:       tod,
		Duration:   dur,
		ServiceIDs: []int64{1},
	}
}

func (h *harness) seed(status appointment.Status, tod time.Duration, dur *time.Duration) int64 {
	return h.repo.put(appointment.Appointment{
		PetID: 7, Date: june10, Time: tod, Duration: dur, Status: status,
		Services: []appointment.ServiceLink{{ServiceID: 1}},
	})
}

func TestCreateAppointment_DefaultsToPending(t *testing.T) {
	h := newHarness(t)
	h.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(m notification.Message) bool {
		return m.Event == notification.EventCreated &&
			m.PetName == "Rex" &&
			m.OwnerEmail == "owner@clinic.test" &&
			m.UserID == 30 &&
			m.AppointmentAt.Equal(june10.Add(10*time.Hour)) &&
			m.Message == "Reminder: Upcoming appointment for Rex's Checkup, Vaccination on 10.06.2024 at 10:00"
	})).Return(nil).Once()

	cmd := booking(10*time.Hour, minutesPtr(30))
	cmd.ServiceIDs = []int64{1, 2}
	a, err := h.svc.CreateAppointment(context.Background(), cmd, vet)
	require.NoError(t, err)

	assert.NotZero(t, a.ID)
	assert.Equal(t, appointment.StatusPending, a.Status)
	assert.Equal(t, []int64{1, 2}, a.ServiceIDs())
	assert.Equal(t, int64(2), a.CreatedBy)
	assert.Equal(t, 1, h.repo.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AppointmentsCreated.WithLabelValues("pending")))

	entries := h.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "create", entries[0].Action)
	assert.Equal(t, "appointment", entries[0].ResourceType)
	h.publisher.AssertExpectations(t)
}

func TestCreateAppointment_Overlap(t *testing.T) {
	h := newHarness(t)
	existing := h.seed(appointment.StatusPending, 10*time.Hour, minutesPtr(30))

	_, err := h.svc.CreateAppointment(context.Background(), booking(10*time.Hour+15*time.Minute, minutesPtr(30)), vet)
	require.Error(t, err)
	assert.ErrorIs(t, err, appointment.ErrOverlap)

	var overlap *appointment.OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, existing, overlap.ConflictingID)

	assert.Equal(t, 1, h.repo.count(), "nothing persisted")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.BookingConflicts))
	h.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCreateAppointment_TouchingBoundary(t *testing.T) {
	h := newHarness(t)
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	h.seed(appointment.StatusPending, 10*time.Hour, minutesPtr(30))

	_, err := h.svc.CreateAppointment(context.Background(), booking(10*time.Hour+30*time.Minute, minutesPtr(30)), vet)
	require.NoError(t, err)
	assert.Equal(t, 2, h.repo.count())
}

func TestCreateAppointment_ConflictIgnoresOtherDaysAndChecksEveryStatus(t *testing.T) {
	h := newHarness(t)
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	h.repo.put(appointment.Appointment{PetID: 8, Date: june10.AddDate(0, 0, 1), Time: 10 * time.Hour})
	h.seed(appointment.StatusCanceled, 12*time.Hour, nil)

	_, err := h.svc.CreateAppointment(context.Background(), booking(10*time.Hour, nil), vet)
	require.NoError(t, err)

	// A different pet is still blocked: the calendar is clinic-wide.
	cmd := booking(12*time.Hour+10*time.Minute, minutesPtr(10))
	cmd.PetID = 8
	_, err = h.svc.CreateAppointment(context.Background(), cmd, vet)
	assert.ErrorIs(t, err, appointment.ErrOverlap)
}

func TestCreateAppointment_ZeroDurationNeverConflicts(t *testing.T) {
	h := newHarness(t)
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	h.seed(appointment.StatusApproved, 10*time.Hour, minutesPtr(30))

	_, err := h.svc.CreateAppointment(context.Background(), booking(10*time.Hour+5*time.Minute, minutesPtr(0)), vet)
	assert.NoError(t, err)
}

func TestCreateAppointment_StatusPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		admin   bool
		status  *int
		want    appointment.Status
		wantErr bool
	}{
		{name: "admin flag beats explicit completed", admin: true, status: intPtr(3), want: appointment.StatusApproved},
		{name: "admin flag beats invalid status", admin: true, status: intPtr(42), want: appointment.StatusApproved},
		{name: "explicit status is used", status: intPtr(1), want: appointment.StatusApproved},
		{name: "explicit canceled is used", status: intPtr(4), want: appointment.StatusCanceled},
		{name: "default pending", want: appointment.StatusPending},
		{name: "invalid explicit status", status: intPtr(9), wantErr: true},
		{name: "negative explicit status", status: intPtr(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

			cmd := booking(9*time.Hour, nil)
			cmd.CreatedByAdmin = tt.admin
			cmd.Status = tt.status

			a, err := h.svc.CreateAppointment(context.Background(), cmd, admin)
			if tt.wantErr {
				var validErr *ValidationError
				require.ErrorAs(t, err, &validErr)
				assert.Contains(t, validErr.Fields[0], "appointment_status")
				assert.Zero(t, h.repo.count())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Status)
		})
	}
}

func TestCreateAppointment_PetNotFound(t *testing.T) {
	h := newHarness(t)
	cmd := booking(9*time.Hour, nil)
	cmd.PetID = 404

	_, err := h.svc.CreateAppointment(context.Background(), cmd, vet)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, pet.ErrPetNotFound)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "pet", nf.Resource)
	assert.Equal(t, int64(404), nf.ID)
	assert.Zero(t, h.repo.count())
}

func TestCreateAppointment_Services(t *testing.T) {
	t.Run("empty list is a validation error", func(t *testing.T) {
		h := newHarness(t)
		cmd := booking(9*time.Hour, nil)
		cmd.ServiceIDs = nil

		_, err := h.svc.CreateAppointment(context.Background(), cmd, vet)
		var validErr *ValidationError
		require.ErrorAs(t, err, &validErr)
		assert.Contains(t, validErr.Fields[0], "service_ids")
	})

	t.Run("first missing id is named", func(t *testing.T) {
		h := newHarness(t)
		cmd := booking(9*time.Hour, nil)
		cmd.ServiceIDs = []int64{1, 99, 98}

		_, err := h.svc.CreateAppointment(context.Background(), cmd, vet)
		require.Error(t, err)
		assert.ErrorIs(t, err, catalog.ErrServiceNotFound)
		assert.ErrorIs(t, err, ErrNotFound)

		var missing *catalog.MissingServiceError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, int64(99), missing.ServiceID)
		assert.Contains(t, err.Error(), "99")
		assert.Zero(t, h.repo.count())
	})

	t.Run("duplicates are stored once", func(t *testing.T) {
		h := newHarness(t)
		h.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
		cmd := booking(9*time.Hour, nil)
		cmd.ServiceIDs = []int64{2, 1, 2}

		a, err := h.svc.CreateAppointment(context.Background(), cmd, vet)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 1}, a.ServiceIDs())
	})
}

func TestCreateAppointment_ValidationCollectsFields(t *testing.T) {
	h := newHarness(t)
	cmd := &appointment.CreateAppointmentCommand{
		Time:       25 * time.Hour,
		Duration:   minutesPtr(-5),
		ServiceIDs: []int64{1},
	}

	_, err := h.svc.CreateAppointment(context.Background(), cmd, vet)
	var validErr *ValidationError
	require.ErrorAs(t, err, &validErr)
	assert.Len(t, validErr.Fields, 4)
}

func TestCreateAppointment_NotificationFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	a, err := h.svc.CreateAppointment(context.Background(), booking(9*time.Hour, nil), vet)
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.NotificationsFailed))
}

func TestCreateAppointment_ConcurrentSameSlot(t *testing.T) {
	h := newHarness(t)
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	h.repo.listDelay = 2 * time.Millisecond

	const n = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		overlaps  int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.svc.CreateAppointment(context.Background(), booking(14*time.Hour, minutesPtr(30)), vet)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, appointment.ErrOverlap):
				overlaps++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, overlaps)
	assert.Equal(t, 1, h.repo.count())
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name string
		from appointment.Status
		op   func(*AppointmentService, context.Context, int64, Caller) (*appointment.Appointment, error)
		want appointment.Status
	}{
		{"approve pending", appointment.StatusPending, (*AppointmentService).ApproveAppointment, appointment.StatusApproved},
		{"reject pending", appointment.StatusPending, (*AppointmentService).RejectAppointment, appointment.StatusRejected},
		{"cancel pending", appointment.StatusPending, (*AppointmentService).CancelAppointment, appointment.StatusCanceled},
		{"complete approved", appointment.StatusApproved, (*AppointmentService).CompleteAppointment, appointment.StatusCompleted},
		{"cancel approved", appointment.StatusApproved, (*AppointmentService).CancelAppointment, appointment.StatusCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(m notification.Message) bool {
				return m.Status == tt.want.String() && m.PetName == "Rex"
			})).Return(nil).Once()
			id := h.seed(tt.from, 9*time.Hour, nil)

			a, err := tt.op(h.svc, context.Background(), id, admin)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Status)

			stored, err := h.repo.GetByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)

			entries := h.audit.all()
			require.Len(t, entries, 1)
			assert.Equal(t, "update", entries[0].Action)
			assert.Contains(t, entries[0].Changes, tt.want.String())
			h.publisher.AssertExpectations(t)
		})
	}
}

func TestTransitions_ApproveRejected(t *testing.T) {
	h := newHarness(t)
	id := h.seed(appointment.StatusRejected, 9*time.Hour, nil)

	_, err := h.svc.ApproveAppointment(context.Background(), id, admin)
	require.Error(t, err)
	assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition)

	var te *appointment.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, appointment.StatusRejected, te.From)
	assert.Equal(t, appointment.StatusApproved, te.To)

	stored, _ := h.repo.GetByID(context.Background(), id)
	assert.Equal(t, appointment.StatusRejected, stored.Status)
	assert.Empty(t, h.audit.all())
	h.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestTransitions_CompleteTwice(t *testing.T) {
	h := newHarness(t)
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	id := h.seed(appointment.StatusApproved, 9*time.Hour, nil)

	_, err := h.svc.CompleteAppointment(context.Background(), id, admin)
	require.NoError(t, err)

	_, err = h.svc.CompleteAppointment(context.Background(), id, admin)
	assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition)

	stored, _ := h.repo.GetByID(context.Background(), id)
	assert.Equal(t, appointment.StatusCompleted, stored.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.StatusTransitions.WithLabelValues("completed", "illegal")))
}

func TestTransitions_NotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CancelAppointment(context.Background(), 12345, admin)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
	assert.NotErrorIs(t, err, appointment.ErrInvalidStatusTransition)
}

func TestGetAppointment(t *testing.T) {
	h := newHarness(t)
	id := h.seed(appointment.StatusPending, 9*time.Hour, nil)

	a, err := h.svc.GetAppointment(context.Background(), id, vet)
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)

	owner := Caller{UserID: 30, Role: domain.RoleOwner}
	_, err = h.svc.GetAppointment(context.Background(), id, owner)
	assert.NoError(t, err)

	stranger := Caller{UserID: 31, Role: domain.RoleOwner}
	_, err = h.svc.GetAppointment(context.Background(), id, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.GetAppointment(context.Background(), 999, vet)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAppointment_OwnerMustOwnPet(t *testing.T) {
	h := newHarness(t)
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	stranger := Caller{UserID: 999, Role: domain.RoleOwner}
	cmd := booking(9*time.Hour, nil)
	cmd.Status = intPtr(int(appointment.StatusCompleted))
	_, err := h.svc.CreateAppointment(context.Background(), cmd, stranger)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, h.repo.count())

	owner := Caller{UserID: 30, Role: domain.RoleOwner}
	a, err := h.svc.CreateAppointment(context.Background(), booking(9*time.Hour, nil), owner)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusPending, a.Status)
	assert.Equal(t, int64(30), a.CreatedBy)
}

type unreachablePets struct{}

func (unreachablePets) GetByID(context.Context, int64) (*pet.Pet, error) {
	return nil, errors.New("connection refused")
}

func (unreachablePets) Create(context.Context, *pet.Pet) error { return nil }

func TestGetAppointment_OwnershipLookupFailure(t *testing.T) {
	repo := newMemAppointments()
	id := repo.put(appointment.Appointment{PetID: 7, Date: june10, Time: 9 * time.Hour})
	m := metrics.NewCollector("vetcare_test", prometheus.NewRegistry())
	svc := NewAppointmentService(repo, unreachablePets{}, memCatalog{}, daylock.NewLocal(time.Second),
		&mockPublisher{}, &recordingAudit{}, m, zap.NewNop())

	_, err := svc.GetAppointment(context.Background(), id, Caller{UserID: 30, Role: domain.RoleOwner})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestListAppointmentsByDate(t *testing.T) {
	h := newHarness(t)
	h.seed(appointment.StatusPending, 9*time.Hour, nil)
	h.seed(appointment.StatusApproved, 11*time.Hour, nil)
	h.repo.put(appointment.Appointment{PetID: 8, Date: june10.AddDate(0, 0, 1), Time: 9 * time.Hour})

	list, err := h.svc.ListAppointmentsByDate(context.Background(), june10.Add(17*time.Hour))
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
