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

type serviceRepository struct {
	s *Store
}

func NewServiceRepository(s *Store) repository.ServiceRepository {
	return &serviceRepository{s: s}
}

func (r *serviceRepository) Create(ctx context.Context, service *model.Service) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}
	now := time.Now()
	service.CreatedAt, service.UpdatedAt = now, now
	r.s.services[service.ID] = *service
	return nil
}

func (r *serviceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	svc, ok := r.s.services[id]
	if !ok {
		return nil, apperrors.NotFound("service", nil)
	}
	return &svc, nil
}

func (r *serviceRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*model.Service, 0, len(ids))
	for _, id := range ids {
		if svc, ok := r.s.services[id]; ok {
			svc := svc
			out = append(out, &svc)
		}
	}
	return out, nil
}

func (r *serviceRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.Service
	for _, svc := range r.s.services {
		svc := svc
		if svc.ClinicID == clinicID {
			out = append(out, &svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
