package workinghour

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/repository/memory"
	"github.com/jwalitptl/booking-engine/internal/service/event"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	repos, _ := memory.NewRepositories()
	events := event.NewEventService(repos.Outbox, logger.Nop())
	return NewService(repos.Transactor, repos.WorkingHours, events, logger.Nop()), repos
}

func morning(day int) *model.CreateWorkingHourRequest {
	return &model.CreateWorkingHourRequest{
		DayInWeek:   day,
		Shift:       model.ShiftMorning,
		OpeningTime: model.NewTimeOfDay(8, 0),
		ClosingTime: model.NewTimeOfDay(12, 0),
	}
}

func TestCreateWorkingHour(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()

	wh, err := svc.CreateWorkingHour(ctx, clinicID, morning(1))
	require.NoError(t, err)
	assert.True(t, wh.Active)
	assert.Equal(t, clinicID, wh.ClinicID)

	events, err := repos.Outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestCreateWorkingHour_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()

	inverted := morning(1)
	inverted.OpeningTime, inverted.ClosingTime = inverted.ClosingTime, inverted.OpeningTime
	_, err := svc.CreateWorkingHour(ctx, clinicID, inverted)
	assert.Equal(t, apperrors.KindInvalidRange, apperrors.KindOf(err))

	equal := morning(1)
	equal.ClosingTime = equal.OpeningTime
	_, err = svc.CreateWorkingHour(ctx, clinicID, equal)
	assert.Equal(t, apperrors.KindInvalidRange, apperrors.KindOf(err))

	badDay := morning(7)
	_, err = svc.CreateWorkingHour(ctx, clinicID, badDay)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	badShift := morning(1)
	badShift.Shift = "night"
	_, err = svc.CreateWorkingHour(ctx, clinicID, badShift)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = svc.CreateWorkingHour(ctx, clinicID, morning(2))
	require.NoError(t, err)
	_, err = svc.CreateWorkingHour(ctx, clinicID, morning(2))
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	// another clinic may use the same shift
	_, err = svc.CreateWorkingHour(ctx, uuid.New(), morning(2))
	assert.NoError(t, err)
}

func TestUpdateAndToggleWorkingHour(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()

	wh, err := svc.CreateWorkingHour(ctx, clinicID, morning(3))
	require.NoError(t, err)

	updated, err := svc.UpdateWorkingHour(ctx, wh.ID, &model.UpdateWorkingHourRequest{
		OpeningTime: model.NewTimeOfDay(9, 0),
		ClosingTime: model.NewTimeOfDay(13, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, "13:30", updated.ClosingTime.String())

	_, err = svc.UpdateWorkingHour(ctx, wh.ID, &model.UpdateWorkingHourRequest{
		OpeningTime: model.NewTimeOfDay(14, 0),
		ClosingTime: model.NewTimeOfDay(13, 0),
	})
	assert.Equal(t, apperrors.KindInvalidRange, apperrors.KindOf(err))

	off, err := svc.DeactivateWorkingHour(ctx, wh.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)

	on, err := svc.ActivateWorkingHour(ctx, wh.ID)
	require.NoError(t, err)
	assert.True(t, on.Active)

	_, err = svc.DeactivateWorkingHour(ctx, uuid.New())
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestListWorkingHours(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()

	_, err := svc.CreateWorkingHour(ctx, clinicID, morning(1))
	require.NoError(t, err)
	afternoon := morning(1)
	afternoon.Shift = model.ShiftAfternoon
	afternoon.OpeningTime, afternoon.ClosingTime = model.NewTimeOfDay(13, 0), model.NewTimeOfDay(17, 0)
	_, err = svc.CreateWorkingHour(ctx, clinicID, afternoon)
	require.NoError(t, err)
	_, err = svc.CreateWorkingHour(ctx, clinicID, morning(4))
	require.NoError(t, err)

	all, err := svc.ListWorkingHours(ctx, clinicID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	monday, err := svc.WorkingHoursForDay(ctx, clinicID, 1)
	require.NoError(t, err)
	assert.Len(t, monday, 2)

	_, err = svc.WorkingHoursForDay(ctx, clinicID, 9)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}
