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

type workingHourRepository struct {
	s *Store
}

func NewWorkingHourRepository(s *Store) repository.WorkingHourRepository {
	return &workingHourRepository{s: s}
}

func (r *workingHourRepository) Create(ctx context.Context, wh *model.WorkingHour) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.workingHours {
		if other.ClinicID == wh.ClinicID && other.DayInWeek == wh.DayInWeek && other.Shift == wh.Shift {
			return apperrors.New(apperrors.KindConflict, "working hour already defined for this shift").
				WithDetail("working_hour_id", other.ID)
		}
	}
	if wh.ID == uuid.Nil {
		wh.ID = uuid.New()
	}
	now := time.Now()
	wh.CreatedAt, wh.UpdatedAt = now, now
	r.s.workingHours[wh.ID] = *wh
	return nil
}

func (r *workingHourRepository) Get(ctx context.Context, id uuid.UUID) (*model.WorkingHour, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wh, ok := r.s.workingHours[id]
	if !ok {
		return nil, apperrors.NotFound("working hour", nil)
	}
	return &wh, nil
}

func (r *workingHourRepository) Update(ctx context.Context, wh *model.WorkingHour) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.workingHours[wh.ID]; !ok {
		return apperrors.NotFound("working hour", nil)
	}
	wh.UpdatedAt = time.Now()
	r.s.workingHours[wh.ID] = *wh
	return nil
}

func (r *workingHourRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.WorkingHour, error) {
	return r.list(func(wh *model.WorkingHour) bool { return wh.ClinicID == clinicID }), nil
}

func (r *workingHourRepository) ListByDay(ctx context.Context, clinicID uuid.UUID, dayInWeek int) ([]*model.WorkingHour, error) {
	return r.list(func(wh *model.WorkingHour) bool {
		return wh.ClinicID == clinicID && wh.DayInWeek == dayInWeek
	}), nil
}

func (r *workingHourRepository) list(match func(*model.WorkingHour) bool) []*model.WorkingHour {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.WorkingHour
	for _, wh := range r.s.workingHours {
		wh := wh
		if match(&wh) {
			out = append(out, &wh)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayInWeek != out[j].DayInWeek {
			return out[i].DayInWeek < out[j].DayInWeek
		}
		return out[i].OpeningTime < out[j].OpeningTime
	})
	return out
}
