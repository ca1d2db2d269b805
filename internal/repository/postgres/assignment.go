package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

type assignmentRepository struct {
	BaseRepository
}

func NewAssignmentRepository(base BaseRepository) repository.AssignmentRepository {
	return &assignmentRepository{base}
}

const assignmentColumns = `consultant_id, slot_id, assigned_date, max_appointment`

func (r *assignmentRepository) Create(ctx context.Context, a *model.ConsultantSlotAssignment) error {
	query := `
		INSERT INTO consultant_slots (consultant_id, slot_id, assigned_date, max_appointment)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.conn(ctx).ExecContext(ctx, query,
		a.ConsultantID, a.SlotID, a.AssignedDate.Format(model.DateLayout), a.MaxAppointment)
	if isUniqueViolation(err) {
		return apperrors.Wrap(apperrors.KindAlreadyAssigned, "consultant already registered for this slot", err)
	}
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *assignmentRepository) Get(ctx context.Context, consultantID, slotID uuid.UUID) (*model.ConsultantSlotAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM consultant_slots
		WHERE consultant_id = $1 AND slot_id = $2`

	var a model.ConsultantSlotAssignment
	if err := r.conn(ctx).GetContext(ctx, &a, query, consultantID, slotID); err != nil {
		return nil, notFound(err, "assignment")
	}
	return &a, nil
}

func (r *assignmentRepository) Delete(ctx context.Context, consultantID, slotID uuid.UUID) (bool, error) {
	query := `DELETE FROM consultant_slots WHERE consultant_id = $1 AND slot_id = $2`

	res, err := r.conn(ctx).ExecContext(ctx, query, consultantID, slotID)
	if err != nil {
		return false, fmt.Errorf("failed to delete assignment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *assignmentRepository) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*model.ConsultantSlotAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM consultant_slots
		WHERE slot_id = $1
		ORDER BY consultant_id`

	var out []*model.ConsultantSlotAssignment
	if err := r.conn(ctx).SelectContext(ctx, &out, query, slotID); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return out, nil
}

func (r *assignmentRepository) ListByConsultant(ctx context.Context, consultantID uuid.UUID, from, to time.Time) ([]*model.ConsultantSlotAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM consultant_slots
		WHERE consultant_id = $1 AND assigned_date >= $2 AND assigned_date < $3
		ORDER BY assigned_date`

	var out []*model.ConsultantSlotAssignment
	err := r.conn(ctx).SelectContext(ctx, &out, query, consultantID,
		from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return out, nil
}

func (r *assignmentRepository) CountBySlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).GetContext(ctx, &n, `SELECT COUNT(*) FROM consultant_slots WHERE slot_id = $1`, slotID)
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return n, nil
}

// Swap moves both rows in one UPDATE. It joins the caller's transaction when there is one.
func (r *assignmentRepository) Swap(ctx context.Context, a, b *model.ConsultantSlotAssignment) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return r.swap(ctx, r.conn(ctx), a, b)
	}
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return r.swap(ctx, tx, a, b)
	})
}

func (r *assignmentRepository) swap(ctx context.Context, q querier, a, b *model.ConsultantSlotAssignment) error {
	var existing int
	err := q.GetContext(ctx, &existing, `
		SELECT COUNT(*) FROM consultant_slots
		WHERE (consultant_id = $1 AND slot_id = $2) OR (consultant_id = $3 AND slot_id = $4)
	`, a.ConsultantID, a.SlotID, b.ConsultantID, b.SlotID)
	if err != nil {
		return fmt.Errorf("failed to load assignments: %w", err)
	}
	if existing != 2 {
		return apperrors.NotFound("assignment", nil)
	}

	query := `
		UPDATE consultant_slots AS cs
		SET slot_id = v.new_slot,
			assigned_date = (SELECT slot_date FROM slots WHERE id = v.new_slot)
		FROM (VALUES ($1::uuid, $2::uuid, $4::uuid), ($3::uuid, $4::uuid, $2::uuid))
			AS v(consultant_id, old_slot, new_slot)
		WHERE cs.consultant_id = v.consultant_id AND cs.slot_id = v.old_slot
	`
	res, err := q.ExecContext(ctx, query, a.ConsultantID, a.SlotID, b.ConsultantID, b.SlotID)
	if isUniqueViolation(err) {
		return apperrors.Wrap(apperrors.KindAlreadyAssigned, "consultant already registered for target slot", err)
	}
	if err != nil {
		return fmt.Errorf("failed to swap assignments: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows != 2 {
		return fmt.Errorf("failed to swap assignments: %d rows moved", rows)
	}
	return nil
}
