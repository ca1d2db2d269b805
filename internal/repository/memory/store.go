// Package memory is a map-backed storage backend. It is used by the test suites and by
// storage.driver "memory" for local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
)

type assignmentKey struct {
	consultantID uuid.UUID
	slotID       uuid.UUID
}

// Store holds every table of the memory backend behind one mutex. Writes are not
// rolled back when a unit of work fails.
type Store struct {
	mu           sync.RWMutex
	workingHours map[uuid.UUID]model.WorkingHour
	slots        map[uuid.UUID]model.Slot
	assignments  map[assignmentKey]model.ConsultantSlotAssignment
	appointments map[uuid.UUID]model.Appointment
	details      map[uuid.UUID][]model.AppointmentDetail
	services     map[uuid.UUID]model.Service
	outbox       map[uuid.UUID]model.OutboxEvent

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		workingHours: make(map[uuid.UUID]model.WorkingHour),
		slots:        make(map[uuid.UUID]model.Slot),
		assignments:  make(map[assignmentKey]model.ConsultantSlotAssignment),
		appointments: make(map[uuid.UUID]model.Appointment),
		details:      make(map[uuid.UUID][]model.AppointmentDetail),
		services:     make(map[uuid.UUID]model.Service),
		outbox:       make(map[uuid.UUID]model.OutboxEvent),
		locks:        make(map[string]*sync.Mutex),
	}
}

// NewRepositories wires every repository onto one fresh store.
func NewRepositories() (*repository.Repositories, *Store) {
	s := NewStore()
	return &repository.Repositories{
		Transactor:   s,
		WorkingHours: NewWorkingHourRepository(s),
		Slots:        NewSlotRepository(s),
		Assignments:  NewAssignmentRepository(s),
		Appointments: NewAppointmentRepository(s),
		Services:     NewServiceRepository(s),
		Outbox:       NewOutboxRepository(s),
	}, s
}

type heldLocksKey struct{}

// WithinLock takes the per-key mutexes in sorted order and runs fn. Keys already held by
// an enclosing call on the same ctx are not taken again.
func (s *Store) WithinLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	held, _ := ctx.Value(heldLocksKey{}).(map[string]struct{})

	pending := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := held[k]; ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		pending = append(pending, k)
	}
	sort.Strings(pending)

	for _, k := range pending {
		m := s.lockFor(k)
		m.Lock()
		defer m.Unlock()
	}

	next := make(map[string]struct{}, len(held)+len(pending))
	for k := range held {
		next[k] = struct{}{}
	}
	for _, k := range pending {
		next[k] = struct{}{}
	}
	return fn(context.WithValue(ctx, heldLocksKey{}, next))
}

func (s *Store) lockFor(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}
