package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

type assignmentRepository struct {
	s *Store
}

func NewAssignmentRepository(s *Store) repository.AssignmentRepository {
	return &assignmentRepository{s: s}
}

func (r *assignmentRepository) Create(ctx context.Context, a *model.ConsultantSlotAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := assignmentKey{a.ConsultantID, a.SlotID}
	if _, ok := r.s.assignments[key]; ok {
		return apperrors.New(apperrors.KindAlreadyAssigned, "consultant already registered for this slot")
	}
	r.s.assignments[key] = *a
	return nil
}

func (r *assignmentRepository) Get(ctx context.Context, consultantID, slotID uuid.UUID) (*model.ConsultantSlotAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.assignments[assignmentKey{consultantID, slotID}]
	if !ok {
		return nil, apperrors.NotFound("assignment", nil)
	}
	return &a, nil
}

func (r *assignmentRepository) Delete(ctx context.Context, consultantID, slotID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := assignmentKey{consultantID, slotID}
	if _, ok := r.s.assignments[key]; !ok {
		return false, nil
	}
	delete(r.s.assignments, key)
	return true, nil
}

func (r *assignmentRepository) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*model.ConsultantSlotAssignment, error) {
	return r.list(func(a *model.ConsultantSlotAssignment) bool { return a.SlotID == slotID }), nil
}

func (r *assignmentRepository) ListByConsultant(ctx context.Context, consultantID uuid.UUID, from, to time.Time) ([]*model.ConsultantSlotAssignment, error) {
	return r.list(func(a *model.ConsultantSlotAssignment) bool {
		return a.ConsultantID == consultantID && !a.AssignedDate.Before(from) && a.AssignedDate.Before(to)
	}), nil
}

func (r *assignmentRepository) CountBySlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for key := range r.s.assignments {
		if key.slotID == slotID {
			n++
		}
	}
	return n, nil
}

func (r *assignmentRepository) Swap(ctx context.Context, a, b *model.ConsultantSlotAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	keyA := assignmentKey{a.ConsultantID, a.SlotID}
	keyB := assignmentKey{b.ConsultantID, b.SlotID}
	storedA, okA := r.s.assignments[keyA]
	storedB, okB := r.s.assignments[keyB]
	if !okA || !okB {
		return apperrors.NotFound("assignment", nil)
	}

	targetA := assignmentKey{a.ConsultantID, b.SlotID}
	targetB := assignmentKey{b.ConsultantID, a.SlotID}
	if _, ok := r.s.assignments[targetA]; ok {
		return apperrors.New(apperrors.KindAlreadyAssigned, "consultant already registered for target slot").
			WithDetail("consultant_id", a.ConsultantID).WithDetail("slot_id", b.SlotID)
	}
	if _, ok := r.s.assignments[targetB]; ok {
		return apperrors.New(apperrors.KindAlreadyAssigned, "consultant already registered for target slot").
			WithDetail("consultant_id", b.ConsultantID).WithDetail("slot_id", a.SlotID)
	}

	delete(r.s.assignments, keyA)
	delete(r.s.assignments, keyB)
	dateA, dateB := storedA.AssignedDate, storedB.AssignedDate
	storedA.SlotID, storedA.AssignedDate = b.SlotID, dateB
	storedB.SlotID, storedB.AssignedDate = a.SlotID, dateA
	r.s.assignments[targetA] = storedA
	r.s.assignments[targetB] = storedB
	return nil
}

func (r *assignmentRepository) list(match func(*model.ConsultantSlotAssignment) bool) []*model.ConsultantSlotAssignment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.ConsultantSlotAssignment
	for _, a := range r.s.assignments {
		a := a
		if match(&a) {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedDate.Equal(out[j].AssignedDate) {
			return out[i].AssignedDate.Before(out[j].AssignedDate)
		}
		return out[i].ConsultantID.String() < out[j].ConsultantID.String()
	})
	return out
}
