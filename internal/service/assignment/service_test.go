package assignment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/repository/memory"
	"github.com/jwalitptl/booking-engine/internal/service/event"
	slotsvc "github.com/jwalitptl/booking-engine/internal/service/slot"
	"github.com/jwalitptl/booking-engine/pkg/clock"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

func setup(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	repos, _ := memory.NewRepositories()
	events := event.NewEventService(repos.Outbox, logger.Nop())
	return NewService(repos, events, time.UTC, logger.Nop(), metrics.NewTestMetrics()), repos
}

func createSlot(t *testing.T, repos *repository.Repositories, day int, maxConsultant int) *model.Slot {
	t.Helper()
	date := time.Date(2026, 10, day, 0, 0, 0, 0, time.UTC)
	slot := &model.Slot{
		ClinicID:           uuid.New(),
		WorkingHourID:      uuid.New(),
		SlotDate:           date,
		StartTime:          date.Add(9 * time.Hour),
		EndTime:            date.Add(10 * time.Hour),
		MaxConsultant:      maxConsultant,
		MaxTestAppointment: 5,
	}
	require.NoError(t, repos.Slots.Create(context.Background(), slot))
	return slot
}

func register(svc *Service, slotID, consultantID uuid.UUID, max int) error {
	_, err := svc.RegisterSlot(context.Background(), slotID, &model.RegisterSlotRequest{
		ConsultantID:   consultantID,
		MaxAppointment: max,
	})
	return err
}

func TestRegisterSlot(t *testing.T) {
	svc, repos := setup(t)
	slot := createSlot(t, repos, 12, 2)
	c1, c2, c3 := uuid.New(), uuid.New(), uuid.New()

	a, err := svc.RegisterSlot(context.Background(), slot.ID, &model.RegisterSlotRequest{ConsultantID: c1, MaxAppointment: 3})
	require.NoError(t, err)
	assert.Equal(t, slot.SlotDate, a.AssignedDate)

	assert.Equal(t, apperrors.KindAlreadyAssigned, apperrors.KindOf(register(svc, slot.ID, c1, 3)))
	require.NoError(t, register(svc, slot.ID, c2, 1))
	assert.Equal(t, apperrors.KindSlotFull, apperrors.KindOf(register(svc, slot.ID, c3, 1)))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(register(svc, slot.ID, c3, 0)))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(register(svc, uuid.New(), c3, 1)))

	list, err := svc.ListBySlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRegisterSlot_ConcurrentRespectsCapacity(t *testing.T) {
	svc, repos := setup(t)
	slot := createSlot(t, repos, 12, 3)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = register(svc, slot.ID, uuid.New(), 1)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.Equal(t, apperrors.KindSlotFull, apperrors.KindOf(err))
		}
	}
	assert.Equal(t, 3, ok)

	count, err := repos.Assignments.CountBySlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

// racingSlots starts a capacity edit right after the first slot read and gives it a
// moment to land before the registration continues.
type racingSlots struct {
	repository.SlotRepository
	once sync.Once
	edit func() error
	done chan error
}

func (r *racingSlots) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	slot, err := r.SlotRepository.Get(ctx, id)
	r.once.Do(func() {
		go func() { r.done <- r.edit() }()
		select {
		case err := <-r.done:
			r.done <- err
		case <-time.After(50 * time.Millisecond):
		}
	})
	return slot, err
}

func TestRegisterSlot_CapacityEditDuringRegistration(t *testing.T) {
	ctx := context.Background()
	repos, _ := memory.NewRepositories()
	events := event.NewEventService(repos.Outbox, logger.Nop())
	now := clock.Fixed{T: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	slots := slotsvc.NewService(repos, events, now, time.UTC, logger.Nop(), metrics.NewTestMetrics())

	clinicID := uuid.New()
	wh := &model.WorkingHour{
		ClinicID:    clinicID,
		DayInWeek:   int(time.Monday),
		Shift:       model.ShiftMorning,
		OpeningTime: model.NewTimeOfDay(8, 0),
		ClosingTime: model.NewTimeOfDay(12, 0),
		Active:      true,
	}
	require.NoError(t, repos.WorkingHours.Create(ctx, wh))
	slot, err := slots.CreateSlot(ctx, clinicID, &model.CreateSlotRequest{
		Date:               "2026-10-12",
		WorkingHourID:      wh.ID,
		StartTime:          model.NewTimeOfDay(9, 0),
		EndTime:            model.NewTimeOfDay(10, 0),
		MaxConsultant:      2,
		MaxTestAppointment: 3,
	})
	require.NoError(t, err)

	plain := NewService(repos, events, time.UTC, logger.Nop(), metrics.NewTestMetrics())
	require.NoError(t, register(plain, slot.ID, uuid.New(), 1))

	racing := &racingSlots{
		SlotRepository: repos.Slots,
		done:           make(chan error, 1),
		edit: func() error {
			_, err := slots.UpdateSlot(ctx, slot.ID, &model.UpdateSlotRequest{
				StartTime:          model.NewTimeOfDay(9, 0),
				EndTime:            model.NewTimeOfDay(10, 0),
				MaxConsultant:      1,
				MaxTestAppointment: 3,
			})
			return err
		},
	}
	hooked := *repos
	hooked.Slots = racing
	svc := NewService(&hooked, events, time.UTC, logger.Nop(), metrics.NewTestMetrics())

	registerErr := register(svc, slot.ID, uuid.New(), 1)
	editErr := <-racing.done

	stored, err := repos.Slots.Get(ctx, slot.ID)
	require.NoError(t, err)
	assigned, err := repos.Assignments.CountBySlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, assigned, stored.MaxConsultant)
	// exactly one side wins
	assert.True(t, (registerErr == nil) != (editErr == nil), "register: %v, edit: %v", registerErr, editErr)
}

func TestUnregisterSlot_Idempotent(t *testing.T) {
	svc, repos := setup(t)
	slot := createSlot(t, repos, 12, 1)
	c := uuid.New()
	require.NoError(t, register(svc, slot.ID, c, 1))

	require.NoError(t, svc.UnregisterSlot(context.Background(), c, slot.ID))
	require.NoError(t, svc.UnregisterSlot(context.Background(), c, slot.ID))

	// capacity is released
	require.NoError(t, register(svc, slot.ID, uuid.New(), 1))
}

func TestSwapSlots(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()
	slotA := createSlot(t, repos, 12, 2)
	slotB := createSlot(t, repos, 13, 2)
	cA, cB := uuid.New(), uuid.New()
	require.NoError(t, register(svc, slotA.ID, cA, 2))
	require.NoError(t, register(svc, slotB.ID, cB, 5))

	req := &model.SwapSlotsRequest{ConsultantA: cA, SlotA: slotA.ID, ConsultantB: cB, SlotB: slotB.ID}
	require.NoError(t, svc.SwapSlots(ctx, req))

	a, err := repos.Assignments.Get(ctx, cA, slotB.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.MaxAppointment)
	assert.Equal(t, slotB.SlotDate, a.AssignedDate)
	b, err := repos.Assignments.Get(ctx, cB, slotA.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, b.MaxAppointment)
	_, err = repos.Assignments.Get(ctx, cA, slotA.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	// swapping back is an involution
	back := &model.SwapSlotsRequest{ConsultantA: cA, SlotA: slotB.ID, ConsultantB: cB, SlotB: slotA.ID}
	require.NoError(t, svc.SwapSlots(ctx, back))
	a, err = repos.Assignments.Get(ctx, cA, slotA.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.MaxAppointment)
	assert.Equal(t, slotA.SlotDate, a.AssignedDate)
	_, err = repos.Assignments.Get(ctx, cB, slotB.ID)
	require.NoError(t, err)
}

func TestSwapSlots_Rejections(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()
	slotA := createSlot(t, repos, 12, 2)
	slotB := createSlot(t, repos, 13, 2)
	cA, cB := uuid.New(), uuid.New()
	require.NoError(t, register(svc, slotA.ID, cA, 1))
	require.NoError(t, register(svc, slotB.ID, cB, 1))

	err := svc.SwapSlots(ctx, &model.SwapSlotsRequest{ConsultantA: cA, SlotA: slotA.ID, ConsultantB: cB, SlotB: slotA.ID})
	assert.Equal(t, apperrors.KindSameSlot, apperrors.KindOf(err))

	err = svc.SwapSlots(ctx, &model.SwapSlotsRequest{ConsultantA: cA, SlotA: slotA.ID, ConsultantB: cA, SlotB: slotB.ID})
	assert.Equal(t, apperrors.KindSameConsultant, apperrors.KindOf(err))

	err = svc.SwapSlots(ctx, &model.SwapSlotsRequest{ConsultantA: uuid.New(), SlotA: slotA.ID, ConsultantB: cB, SlotB: slotB.ID})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	// cB is also on slot A, so moving cB there would duplicate the pair
	require.NoError(t, register(svc, slotA.ID, cB, 1))
	err = svc.SwapSlots(ctx, &model.SwapSlotsRequest{ConsultantA: cA, SlotA: slotA.ID, ConsultantB: cB, SlotB: slotB.ID})
	assert.Equal(t, apperrors.KindAlreadyAssigned, apperrors.KindOf(err))

	// nothing moved
	_, err = repos.Assignments.Get(ctx, cA, slotA.ID)
	assert.NoError(t, err)
	_, err = repos.Assignments.Get(ctx, cB, slotB.ID)
	assert.NoError(t, err)
}

func TestListByConsultant(t *testing.T) {
	svc, repos := setup(t)
	c := uuid.New()
	for _, day := range []int{12, 14, 20} {
		slot := createSlot(t, repos, day, 1)
		require.NoError(t, register(svc, slot.ID, c, 1))
	}

	list, err := svc.ListByConsultant(context.Background(), c, "2026-10-12", "2026-10-14")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.ListByConsultant(context.Background(), c, "2026-10-14", "2026-10-12")
	assert.Equal(t, apperrors.KindInvalidRange, apperrors.KindOf(err))
	_, err = svc.ListByConsultant(context.Background(), c, "yesterday", "2026-10-12")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}
