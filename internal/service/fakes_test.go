package service

import (
	"context"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/notification"
	"github.com/stretchr/testify/mock"
)

// memAppointments stores copies, like a database would, so callers never
// share pointers with the store.
type memAppointments struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]appointment.Appointment
	// listDelay widens the window between the conflict check and the insert.
	listDelay time.Duration
}

func newMemAppointments() *memAppointments {
	return &memAppointments{rows: make(map[int64]appointment.Appointment)}
}

func (m *memAppointments) Transaction(_ context.Context, fn func(tx appointment.Repository) error) error {
	return fn(m)
}

func (m *memAppointments) LockDate(context.Context, time.Time) error { return nil }

func (m *memAppointments) GetByID(_ context.Context, id int64) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memAppointments) GetByIDForUpdate(ctx context.Context, id int64) (*appointment.Appointment, error) {
	return m.GetByID(ctx, id)
}

func (m *memAppointments) ListByDate(_ context.Context, date time.Time) ([]*appointment.Appointment, error) {
	m.mu.Lock()
	var out []*appointment.Appointment
	for _, a := range m.rows {
		if a.Date.Equal(appointment.CalendarDay(date)) {
			cp := a
			out = append(out, &cp)
		}
	}
	m.mu.Unlock()

	if m.listDelay > 0 {
		time.Sleep(m.listDelay)
	}
	return out, nil
}

func (m *memAppointments) Create(_ context.Context, a *appointment.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	a.Date = appointment.CalendarDay(a.Date)
	m.rows[a.ID] = *a
	return nil
}

func (m *memAppointments) UpdateStatus(_ context.Context, a *appointment.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[a.ID]
	if !ok {
		return appointment.ErrAppointmentNotFound
	}
	row.Status = a.Status
	m.rows[a.ID] = row
	return nil
}

func (m *memAppointments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memAppointments) put(a appointment.Appointment) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.rows[a.ID] = a
	return a.ID
}

type memPets map[int64]*pet.Pet

func (m memPets) GetByID(_ context.Context, id int64) (*pet.Pet, error) {
	p, ok := m[id]
	if !ok {
		return nil, pet.ErrPetNotFound
	}
	return p, nil
}

func (m memPets) Create(context.Context, *pet.Pet) error { return nil }

type memCatalog map[int64]*catalog.Service

func (m memCatalog) FindExisting(_ context.Context, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool)
	for _, id := range ids {
		if _, ok := m[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

func (m memCatalog) ListByIDs(_ context.Context, ids []int64) ([]*catalog.Service, error) {
	var out []*catalog.Service
	for _, id := range ids {
		if s, ok := m[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m memCatalog) Create(context.Context, *catalog.Service) error { return nil }

type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *recordingAudit) LogAsync(_ context.Context, e AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingAudit) all() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditEntry(nil), r.entries...)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, msg notification.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockPublisher) Close() error { return nil }

type memUsers struct {
	mu       sync.Mutex
	byID     map[int64]*domain.User
	attempts []bool
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (m *memUsers) UpdateLoginAttempt(_ context.Context, id int64, success bool, lockAfter int, lockFor time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, success)
	u := m.byID[id]
	if success {
		u.FailedLoginCount = 0
		return nil
	}
	u.FailedLoginCount++
	if u.FailedLoginCount >= lockAfter {
		until := time.Now().Add(lockFor)
		u.LockedUntil = &until
	}
	return nil
}
