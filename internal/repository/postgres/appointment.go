package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

const appointmentColumns = `id, appointment_code, customer_id, slot_id, appointment_date,
	status, previous_status, payment_status, total_amount, paid_amount, result,
	version, created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return r.create(ctx, r.conn(ctx), appointment)
	}
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return r.create(ctx, tx, appointment)
	})
}

func (r *appointmentRepository) create(ctx context.Context, q querier, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, appointment_code, customer_id, slot_id, appointment_date,
			status, previous_status, payment_status, total_amount, paid_amount,
			result, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt
	appointment.Version = 1

	_, err := q.ExecContext(ctx, query,
		appointment.ID,
		appointment.AppointmentCode,
		appointment.CustomerID,
		appointment.SlotID,
		appointment.AppointmentDate.Format(model.DateLayout),
		appointment.Status,
		appointment.PreviousStatus,
		appointment.PaymentStatus,
		appointment.TotalAmount,
		appointment.PaidAmount,
		appointment.Result,
		appointment.Version,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperrors.Wrap(apperrors.KindConflict, "appointment code already in use", err)
	}
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	for i := range appointment.Details {
		appointment.Details[i].AppointmentID = appointment.ID
		if err := insertDetail(ctx, q, &appointment.Details[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertDetail(ctx context.Context, q querier, d *model.AppointmentDetail) error {
	query := `
		INSERT INTO appointment_details (appointment_id, service_id, service_type, price)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := q.ExecContext(ctx, query, d.AppointmentID, d.ServiceID, d.ServiceType, d.Price); err != nil {
		return fmt.Errorf("failed to create appointment detail: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.conn(ctx).GetContext(ctx, &appointment, query, id); err != nil {
		return nil, notFound(err, "appointment")
	}
	if err := r.loadDetails(ctx, []*model.Appointment{&appointment}); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) GetByCode(ctx context.Context, code string) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE appointment_code = $1`

	var appointment model.Appointment
	if err := r.conn(ctx).GetContext(ctx, &appointment, query, code); err != nil {
		return nil, notFound(err, "appointment")
	}
	if err := r.loadDetails(ctx, []*model.Appointment{&appointment}); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET status = $1, previous_status = $2, payment_status = $3, total_amount = $4,
			paid_amount = $5, result = $6, version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9
	`
	now := time.Now()

	res, err := r.conn(ctx).ExecContext(ctx, query,
		appointment.Status,
		appointment.PreviousStatus,
		appointment.PaymentStatus,
		appointment.TotalAmount,
		appointment.PaidAmount,
		appointment.Result,
		now,
		appointment.ID,
		appointment.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.conn(ctx).GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, appointment.ID); err != nil {
			return fmt.Errorf("failed to check appointment: %w", err)
		}
		if !exists {
			return apperrors.NotFound("appointment", nil)
		}
		return apperrors.New(apperrors.KindConflict, "appointment was modified concurrently").
			WithDetail("appointment_id", appointment.ID)
	}

	appointment.Version++
	appointment.UpdatedAt = now
	return nil
}

func (r *appointmentRepository) AddDetail(ctx context.Context, detail *model.AppointmentDetail) error {
	return insertDetail(ctx, r.conn(ctx), detail)
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.CustomerID != uuid.Nil {
			query += fmt.Sprintf(" AND customer_id = $%d", argCount)
			args = append(args, filters.CustomerID)
			argCount++
		}
		if filters.SlotID != uuid.Nil {
			query += fmt.Sprintf(" AND slot_id = $%d", argCount)
			args = append(args, filters.SlotID)
			argCount++
		}
		if filters.Status != nil {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, *filters.Status)
			argCount++
		}
	}
	query += " ORDER BY created_at ASC"

	var appointments []*model.Appointment
	if err := r.conn(ctx).SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	if err := r.loadDetails(ctx, appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) CountCommittedBySlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).GetContext(ctx, &n,
		`SELECT COUNT(*) FROM appointments WHERE slot_id = $1 AND status <> $2`,
		slotID, model.StatusCancelled)
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return n, nil
}

func (r *appointmentRepository) loadDetails(ctx context.Context, appointments []*model.Appointment) error {
	if len(appointments) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(appointments))
	byID := make(map[uuid.UUID]*model.Appointment, len(appointments))
	for i, a := range appointments {
		ids[i] = a.ID
		byID[a.ID] = a
	}

	var details []model.AppointmentDetail
	err := r.conn(ctx).SelectContext(ctx, &details, `
		SELECT appointment_id, service_id, service_type, price
		FROM appointment_details
		WHERE appointment_id = ANY($1)
		ORDER BY id
	`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return fmt.Errorf("failed to load appointment details: %w", err)
	}
	for _, d := range details {
		if a, ok := byID[d.AppointmentID]; ok {
			a.Details = append(a.Details, d)
		}
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
