package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
)

type slotRepository struct {
	BaseRepository
}

func NewSlotRepository(base BaseRepository) repository.SlotRepository {
	return &slotRepository{base}
}

const slotColumns = `id, clinic_id, working_hour_id, slot_date, start_time, end_time,
	max_consultant, max_test_appointment, created_at, updated_at`

func (r *slotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (
			id, clinic_id, working_hour_id, slot_date, start_time, end_time,
			max_consultant, max_test_appointment, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt

	_, err := r.conn(ctx).ExecContext(ctx, query,
		slot.ID,
		slot.ClinicID,
		slot.WorkingHourID,
		slot.SlotDate.Format(model.DateLayout),
		slot.StartTime,
		slot.EndTime,
		slot.MaxConsultant,
		slot.MaxTestAppointment,
		slot.CreatedAt,
		slot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (r *slotRepository) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	var slot model.Slot
	if err := r.conn(ctx).GetContext(ctx, &slot, query, id); err != nil {
		return nil, notFound(err, "slot")
	}
	return &slot, nil
}

func (r *slotRepository) Update(ctx context.Context, slot *model.Slot) error {
	query := `
		UPDATE slots
		SET start_time = $1, end_time = $2, max_consultant = $3,
			max_test_appointment = $4, updated_at = $5
		WHERE id = $6
	`
	slot.UpdatedAt = time.Now()

	res, err := r.conn(ctx).ExecContext(ctx, query,
		slot.StartTime,
		slot.EndTime,
		slot.MaxConsultant,
		slot.MaxTestAppointment,
		slot.UpdatedAt,
		slot.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}
	return checkAffected(res, "slot")
}

func (r *slotRepository) ListByDate(ctx context.Context, clinicID uuid.UUID, date time.Time) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + `
		FROM slots
		WHERE clinic_id = $1 AND slot_date = $2
		ORDER BY start_time`

	var out []*model.Slot
	if err := r.conn(ctx).SelectContext(ctx, &out, query, clinicID, date.Format(model.DateLayout)); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return out, nil
}

func (r *slotRepository) ListByRange(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + `
		FROM slots
		WHERE clinic_id = $1 AND slot_date >= $2 AND slot_date < $3
		ORDER BY slot_date, start_time`

	var out []*model.Slot
	err := r.conn(ctx).SelectContext(ctx, &out, query, clinicID,
		from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return out, nil
}
