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

type slotRepository struct {
	s *Store
}

func NewSlotRepository(s *Store) repository.SlotRepository {
	return &slotRepository{s: s}
}

func (r *slotRepository) Create(ctx context.Context, slot *model.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	now := time.Now()
	slot.CreatedAt, slot.UpdatedAt = now, now
	r.s.slots[slot.ID] = *slot
	return nil
}

func (r *slotRepository) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	slot, ok := r.s.slots[id]
	if !ok {
		return nil, apperrors.NotFound("slot", nil)
	}
	return &slot, nil
}

func (r *slotRepository) Update(ctx context.Context, slot *model.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.slots[slot.ID]; !ok {
		return apperrors.NotFound("slot", nil)
	}
	slot.UpdatedAt = time.Now()
	r.s.slots[slot.ID] = *slot
	return nil
}

func (r *slotRepository) ListByDate(ctx context.Context, clinicID uuid.UUID, date time.Time) ([]*model.Slot, error) {
	day := date.Format(model.DateLayout)
	return r.list(func(s *model.Slot) bool {
		return s.ClinicID == clinicID && s.SlotDate.Format(model.DateLayout) == day
	}), nil
}

func (r *slotRepository) ListByRange(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*model.Slot, error) {
	lo, hi := from.Format(model.DateLayout), to.Format(model.DateLayout)
	return r.list(func(s *model.Slot) bool {
		d := s.SlotDate.Format(model.DateLayout)
		return s.ClinicID == clinicID && d >= lo && d < hi
	}), nil
}

func (r *slotRepository) list(match func(*model.Slot) bool) []*model.Slot {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.Slot
	for _, slot := range r.s.slots {
		slot := slot
		if match(&slot) {
			out = append(out, &slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}
