package workinghour

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/service/event"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/validator"
)

type Service struct {
	tx        repository.Transactor
	repo      repository.WorkingHourRepository
	events    event.Emitter
	validator validator.Validator
	logger    *logger.Logger
}

func NewService(tx repository.Transactor, repo repository.WorkingHourRepository, events event.Emitter, logger *logger.Logger) *Service {
	return &Service{
		tx:        tx,
		repo:      repo,
		events:    events,
		validator: validator.New(),
		logger:    logger,
	}
}

func (s *Service) CreateWorkingHour(ctx context.Context, clinicID uuid.UUID, req *model.CreateWorkingHourRequest) (*model.WorkingHour, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := checkWindow(req.OpeningTime, req.ClosingTime); err != nil {
		return nil, err
	}

	wh := &model.WorkingHour{
		ClinicID:    clinicID,
		DayInWeek:   req.DayInWeek,
		Shift:       req.Shift,
		OpeningTime: req.OpeningTime,
		ClosingTime: req.ClosingTime,
		Active:      true,
	}

	err := s.tx.WithinLock(ctx, []string{repository.WorkingHourLock(clinicID)}, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, wh); err != nil {
			return err
		}
		return s.events.Emit(ctx, model.EventWorkingHourChanged, event.WorkingHourPayload{WorkingHour: wh})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Working hour created",
		"clinic_id", clinicID.String(),
		"working_hour_id", wh.ID.String(),
		"day_in_week", wh.DayInWeek,
		"shift", string(wh.Shift))
	return wh, nil
}

// UpdateWorkingHour changes the window. Slots already created against it are kept as they are.
func (s *Service) UpdateWorkingHour(ctx context.Context, id uuid.UUID, req *model.UpdateWorkingHourRequest) (*model.WorkingHour, error) {
	if err := checkWindow(req.OpeningTime, req.ClosingTime); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(wh *model.WorkingHour) {
		wh.OpeningTime = req.OpeningTime
		wh.ClosingTime = req.ClosingTime
	})
}

func (s *Service) ActivateWorkingHour(ctx context.Context, id uuid.UUID) (*model.WorkingHour, error) {
	return s.mutate(ctx, id, func(wh *model.WorkingHour) { wh.Active = true })
}

func (s *Service) DeactivateWorkingHour(ctx context.Context, id uuid.UUID) (*model.WorkingHour, error) {
	return s.mutate(ctx, id, func(wh *model.WorkingHour) { wh.Active = false })
}

func (s *Service) GetWorkingHour(ctx context.Context, id uuid.UUID) (*model.WorkingHour, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListWorkingHours(ctx context.Context, clinicID uuid.UUID) ([]*model.WorkingHour, error) {
	hours, err := s.repo.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list working hours: %w", err)
	}
	return hours, nil
}

func (s *Service) WorkingHoursForDay(ctx context.Context, clinicID uuid.UUID, dayInWeek int) ([]*model.WorkingHour, error) {
	if err := s.validator.ValidateField("day_in_week", dayInWeek, "min=0", "max=6"); err != nil {
		return nil, err
	}
	hours, err := s.repo.ListByDay(ctx, clinicID, dayInWeek)
	if err != nil {
		return nil, fmt.Errorf("failed to list working hours: %w", err)
	}
	return hours, nil
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, apply func(*model.WorkingHour)) (*model.WorkingHour, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated *model.WorkingHour
	err = s.tx.WithinLock(ctx, []string{repository.WorkingHourLock(current.ClinicID)}, func(ctx context.Context) error {
		wh, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		apply(wh)
		if err := s.repo.Update(ctx, wh); err != nil {
			return err
		}
		updated = wh
		return s.events.Emit(ctx, model.EventWorkingHourChanged, event.WorkingHourPayload{WorkingHour: wh})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Working hour updated",
		"working_hour_id", id.String(),
		"opening_time", updated.OpeningTime.String(),
		"closing_time", updated.ClosingTime.String(),
		"active", updated.Active)
	return updated, nil
}

func checkWindow(opening, closing model.TimeOfDay) error {
	if !opening.Valid() || !closing.Valid() {
		return apperrors.New(apperrors.KindValidation, "opening and closing times must be within a day")
	}
	if opening >= closing {
		return apperrors.New(apperrors.KindInvalidRange, "opening time must be before closing time").
			WithDetail("opening_time", opening.String()).
			WithDetail("closing_time", closing.String())
	}
	return nil
}
