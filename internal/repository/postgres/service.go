package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
)

type serviceRepository struct {
	BaseRepository
}

func NewServiceRepository(base BaseRepository) repository.ServiceRepository {
	return &serviceRepository{base}
}

const serviceColumns = `id, clinic_id, name, type, price, active, created_at, updated_at`

func (r *serviceRepository) Create(ctx context.Context, service *model.Service) error {
	query := `
		INSERT INTO services (id, clinic_id, name, type, price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}
	service.CreatedAt = time.Now()
	service.UpdatedAt = service.CreatedAt

	_, err := r.conn(ctx).ExecContext(ctx, query,
		service.ID, service.ClinicID, service.Name, service.Type,
		service.Price, service.Active, service.CreatedAt, service.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

func (r *serviceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var service model.Service
	err := r.conn(ctx).GetContext(ctx, &service, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "service")
	}
	return &service, nil
}

func (r *serviceRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*model.Service
	err := r.conn(ctx).SelectContext(ctx, &out,
		`SELECT `+serviceColumns+` FROM services WHERE id = ANY($1)`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return out, nil
}

func (r *serviceRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Service, error) {
	var out []*model.Service
	err := r.conn(ctx).SelectContext(ctx, &out,
		`SELECT `+serviceColumns+` FROM services WHERE clinic_id = $1 ORDER BY name`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return out, nil
}
