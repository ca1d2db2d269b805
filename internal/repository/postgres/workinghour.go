package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

type workingHourRepository struct {
	BaseRepository
}

func NewWorkingHourRepository(base BaseRepository) repository.WorkingHourRepository {
	return &workingHourRepository{base}
}

const workingHourColumns = `id, clinic_id, day_in_week, shift, opening_time, closing_time, active, created_at, updated_at`

func (r *workingHourRepository) Create(ctx context.Context, wh *model.WorkingHour) error {
	query := `
		INSERT INTO working_hours (
			id, clinic_id, day_in_week, shift, opening_time, closing_time,
			active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if wh.ID == uuid.Nil {
		wh.ID = uuid.New()
	}
	wh.CreatedAt = time.Now()
	wh.UpdatedAt = wh.CreatedAt

	_, err := r.conn(ctx).ExecContext(ctx, query,
		wh.ID,
		wh.ClinicID,
		wh.DayInWeek,
		wh.Shift,
		wh.OpeningTime,
		wh.ClosingTime,
		wh.Active,
		wh.CreatedAt,
		wh.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperrors.Wrap(apperrors.KindConflict, "working hour already defined for this shift", err)
	}
	if err != nil {
		return fmt.Errorf("failed to create working hour: %w", err)
	}
	return nil
}

func (r *workingHourRepository) Get(ctx context.Context, id uuid.UUID) (*model.WorkingHour, error) {
	query := `SELECT ` + workingHourColumns + ` FROM working_hours WHERE id = $1`

	var wh model.WorkingHour
	if err := r.conn(ctx).GetContext(ctx, &wh, query, id); err != nil {
		return nil, notFound(err, "working hour")
	}
	return &wh, nil
}

func (r *workingHourRepository) Update(ctx context.Context, wh *model.WorkingHour) error {
	query := `
		UPDATE working_hours
		SET opening_time = $1, closing_time = $2, active = $3, updated_at = $4
		WHERE id = $5
	`
	wh.UpdatedAt = time.Now()

	res, err := r.conn(ctx).ExecContext(ctx, query, wh.OpeningTime, wh.ClosingTime, wh.Active, wh.UpdatedAt, wh.ID)
	if err != nil {
		return fmt.Errorf("failed to update working hour: %w", err)
	}
	return checkAffected(res, "working hour")
}

func (r *workingHourRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.WorkingHour, error) {
	query := `SELECT ` + workingHourColumns + `
		FROM working_hours
		WHERE clinic_id = $1
		ORDER BY day_in_week, opening_time`

	var out []*model.WorkingHour
	if err := r.conn(ctx).SelectContext(ctx, &out, query, clinicID); err != nil {
		return nil, fmt.Errorf("failed to list working hours: %w", err)
	}
	return out, nil
}

func (r *workingHourRepository) ListByDay(ctx context.Context, clinicID uuid.UUID, dayInWeek int) ([]*model.WorkingHour, error) {
	query := `SELECT ` + workingHourColumns + `
		FROM working_hours
		WHERE clinic_id = $1 AND day_in_week = $2
		ORDER BY opening_time`

	var out []*model.WorkingHour
	if err := r.conn(ctx).SelectContext(ctx, &out, query, clinicID, dayInWeek); err != nil {
		return nil, fmt.Errorf("failed to list working hours: %w", err)
	}
	return out, nil
}
