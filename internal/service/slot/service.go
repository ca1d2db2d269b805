package slot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/service/event"
	"github.com/jwalitptl/booking-engine/pkg/calendar"
	"github.com/jwalitptl/booking-engine/pkg/clock"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

type Service struct {
	tx           repository.Transactor
	slots        repository.SlotRepository
	workingHours repository.WorkingHourRepository
	assignments  repository.AssignmentRepository
	appointments repository.AppointmentRepository
	events       event.Emitter
	clock        clock.Clock
	loc          *time.Location
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(
	repos *repository.Repositories,
	events event.Emitter,
	clk clock.Clock,
	loc *time.Location,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		tx:           repos.Transactor,
		slots:        repos.Slots,
		workingHours: repos.WorkingHours,
		assignments:  repos.Assignments,
		appointments: repos.Appointments,
		events:       events,
		clock:        clk,
		loc:          loc,
		logger:       logger,
		metrics:      metrics,
	}
}

// ParseDate reads a YYYY-MM-DD date as midnight in the clinic time zone.
func (s *Service) ParseDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation(model.DateLayout, value, s.loc)
	if err != nil {
		return time.Time{}, apperrors.Validation("date must be formatted as YYYY-MM-DD", err).
			WithDetail("date", value)
	}
	return date, nil
}

func (s *Service) CreateSlot(ctx context.Context, clinicID uuid.UUID, req *model.CreateSlotRequest) (*model.Slot, error) {
	slot, err := s.createSlot(ctx, clinicID, req)
	if err != nil {
		s.metrics.SlotsRejected.WithLabelValues(string(apperrors.KindOf(err))).Inc()
		return nil, err
	}
	s.metrics.SlotsCreated.Inc()

	s.logger.Ctx(ctx).Info("Slot created",
		"clinic_id", clinicID.String(),
		"slot_id", slot.ID.String(),
		"date", slot.SlotDate.Format(model.DateLayout),
		"start", slot.StartTime.Format("15:04"),
		"end", slot.EndTime.Format("15:04"))
	return slot, nil
}

func (s *Service) createSlot(ctx context.Context, clinicID uuid.UUID, req *model.CreateSlotRequest) (*model.Slot, error) {
	date, err := s.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := checkRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if err := checkCapacity(req.MaxConsultant, req.MaxTestAppointment); err != nil {
		return nil, err
	}
	if err := s.checkNotPast(date); err != nil {
		return nil, err
	}

	slot := &model.Slot{
		ClinicID:           clinicID,
		WorkingHourID:      req.WorkingHourID,
		SlotDate:           date,
		StartTime:          req.StartTime.On(date),
		EndTime:            req.EndTime.On(date),
		MaxConsultant:      req.MaxConsultant,
		MaxTestAppointment: req.MaxTestAppointment,
	}

	keys := []string{
		repository.SlotDateLock(clinicID, date),
		repository.WorkingHourLock(clinicID),
	}
	err = s.tx.WithinLock(ctx, keys, func(ctx context.Context) error {
		wh, err := s.workingHours.Get(ctx, req.WorkingHourID)
		if err != nil {
			return err
		}
		if wh.ClinicID != clinicID {
			return apperrors.NotFound("working hour", nil)
		}
		if err := checkWorkingHour(wh, date, req.StartTime, req.EndTime); err != nil {
			return err
		}
		if err := s.checkOverlap(ctx, slot, uuid.Nil); err != nil {
			return err
		}
		if err := s.slots.Create(ctx, slot); err != nil {
			return fmt.Errorf("failed to create slot: %w", err)
		}
		return s.events.Emit(ctx, model.EventSlotCreated, event.SlotPayload{Slot: slot})
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// UpdateSlot applies the creation checks to the new window, ignoring the slot itself, and
// rejects edits that would strand existing assignments or appointments.
func (s *Service) UpdateSlot(ctx context.Context, slotID uuid.UUID, req *model.UpdateSlotRequest) (*model.Slot, error) {
	if err := checkRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if err := checkCapacity(req.MaxConsultant, req.MaxTestAppointment); err != nil {
		return nil, err
	}

	current, err := s.slots.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	date := calendar.DateIn(current.SlotDate, s.loc)
	if err := s.checkNotPast(date); err != nil {
		return nil, err
	}

	keys := []string{
		repository.SlotDateLock(current.ClinicID, date),
		repository.AssignmentLock(slotID),
		repository.WorkingHourLock(current.ClinicID),
	}

	var updated *model.Slot
	err = s.tx.WithinLock(ctx, keys, func(ctx context.Context) error {
		slot, err := s.slots.Get(ctx, slotID)
		if err != nil {
			return err
		}
		wh, err := s.workingHours.Get(ctx, slot.WorkingHourID)
		if err != nil {
			return err
		}
		if err := checkWorkingHour(wh, date, req.StartTime, req.EndTime); err != nil {
			return err
		}

		newStart, newEnd := req.StartTime.On(date), req.EndTime.On(date)
		candidate := *slot
		candidate.StartTime, candidate.EndTime = newStart, newEnd
		if err := s.checkOverlap(ctx, &candidate, slotID); err != nil {
			return err
		}

		assigned, err := s.assignments.CountBySlot(ctx, slotID)
		if err != nil {
			return fmt.Errorf("failed to count assignments: %w", err)
		}
		if req.MaxConsultant < assigned {
			return apperrors.New(apperrors.KindConflict, "max consultant is below the consultants already assigned").
				WithDetail("assigned", assigned)
		}
		committed, err := s.appointments.CountCommittedBySlot(ctx, slotID)
		if err != nil {
			return fmt.Errorf("failed to count appointments: %w", err)
		}
		if req.MaxTestAppointment < committed {
			return apperrors.New(apperrors.KindConflict, "max test appointment is below the appointments already booked").
				WithDetail("booked", committed)
		}
		if committed > 0 && !candidate.Covers(slot.StartTime, slot.EndTime) {
			return apperrors.New(apperrors.KindConflict, "a booked slot can only be widened").
				WithDetail("booked", committed)
		}

		candidate.MaxConsultant = req.MaxConsultant
		candidate.MaxTestAppointment = req.MaxTestAppointment
		if err := s.slots.Update(ctx, &candidate); err != nil {
			return fmt.Errorf("failed to update slot: %w", err)
		}
		updated = &candidate
		return s.events.Emit(ctx, model.EventSlotUpdated, event.SlotPayload{Slot: updated})
	})
	if err != nil {
		s.metrics.SlotsRejected.WithLabelValues(string(apperrors.KindOf(err))).Inc()
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Slot updated",
		"slot_id", slotID.String(),
		"start", updated.StartTime.Format("15:04"),
		"end", updated.EndTime.Format("15:04"))
	return updated, nil
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	return s.slots.Get(ctx, id)
}

func (s *Service) ListByDate(ctx context.Context, clinicID uuid.UUID, date string) ([]*model.Slot, error) {
	day, err := s.ParseDate(date)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.ListByDate(ctx, clinicID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

// WeekGrid returns the seven days of the week, Monday first, each with its slots in
// start order. Out of range week numbers are clamped into the year.
func (s *Service) WeekGrid(ctx context.Context, clinicID uuid.UUID, week, year int) (*model.WeekGrid, error) {
	if year < 1 || year > 9999 {
		return nil, apperrors.Validation("year is out of range", nil).WithDetail("year", year)
	}

	days := calendar.Week{Number: week, Year: year}.Days(s.loc)
	slots, err := s.slots.ListByRange(ctx, clinicID, days[0], days[len(days)-1].AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	byDate := make(map[string][]*model.Slot, len(days))
	for _, slot := range slots {
		key := calendar.DateIn(slot.SlotDate, s.loc).Format(model.DateLayout)
		byDate[key] = append(byDate[key], slot)
	}

	grid := &model.WeekGrid{
		ClinicID: clinicID,
		Week:     calendar.WeekNumber(days[0]),
		Year:     year,
		Days:     make([]model.DaySlots, 0, len(days)),
	}
	for _, day := range days {
		key := day.Format(model.DateLayout)
		daySlots := byDate[key]
		if daySlots == nil {
			daySlots = []*model.Slot{}
		}
		grid.Days = append(grid.Days, model.DaySlots{Date: key, Slots: daySlots})
	}
	return grid, nil
}

func (s *Service) checkOverlap(ctx context.Context, slot *model.Slot, exclude uuid.UUID) error {
	existing, err := s.slots.ListByDate(ctx, slot.ClinicID, slot.SlotDate)
	if err != nil {
		return fmt.Errorf("failed to list slots: %w", err)
	}
	for _, other := range existing {
		if other.ID == exclude {
			continue
		}
		if other.Overlaps(slot.StartTime, slot.EndTime) {
			return apperrors.New(apperrors.KindSlotOverlap, "slot overlaps an existing slot").
				WithDetail("conflicting_slot_id", other.ID.String())
		}
	}
	return nil
}

func (s *Service) checkNotPast(date time.Time) error {
	today := calendar.StartOfDay(s.clock.Now().In(s.loc))
	if date.Before(today) {
		return apperrors.New(apperrors.KindPastDate, "slots cannot be created or changed in the past").
			WithDetail("date", date.Format(model.DateLayout))
	}
	return nil
}

func checkRange(start, end model.TimeOfDay) error {
	if !start.Valid() || !end.Valid() {
		return apperrors.New(apperrors.KindValidation, "start and end times must be within a day")
	}
	if start >= end {
		return apperrors.New(apperrors.KindInvalidRange, "start time must be before end time").
			WithDetail("start_time", start.String()).
			WithDetail("end_time", end.String())
	}
	return nil
}

func checkCapacity(maxConsultant, maxTestAppointment int) error {
	if maxConsultant <= 0 {
		return apperrors.New(apperrors.KindValidation, "max consultant must be positive").
			WithDetail("max_consultant", maxConsultant)
	}
	if maxTestAppointment <= 0 {
		return apperrors.New(apperrors.KindValidation, "max test appointment must be positive").
			WithDetail("max_test_appointment", maxTestAppointment)
	}
	return nil
}

func checkWorkingHour(wh *model.WorkingHour, date time.Time, start, end model.TimeOfDay) error {
	switch {
	case !wh.Active:
		return apperrors.New(apperrors.KindOutOfWorkingHours, "working hour is not active").
			WithDetail("working_hour_id", wh.ID.String())
	case !wh.AppliesTo(date):
		return apperrors.New(apperrors.KindOutOfWorkingHours, "working hour does not apply to this weekday").
			WithDetail("working_hour_id", wh.ID.String()).
			WithDetail("weekday", int(date.Weekday()))
	case !wh.Contains(start, end):
		return apperrors.New(apperrors.KindOutOfWorkingHours, "slot is outside the working hour window").
			WithDetail("opening_time", wh.OpeningTime.String()).
			WithDetail("closing_time", wh.ClosingTime.String())
	}
	return nil
}
