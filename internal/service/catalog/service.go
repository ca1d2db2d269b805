package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
)

// Service manages the bookable services of a clinic.
type Service struct {
	repo   repository.ServiceRepository
	logger *logger.Logger
}

func NewService(repo repository.ServiceRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateService(ctx context.Context, clinicID uuid.UUID, req *model.CreateServiceRequest) (*model.Service, error) {
	if req.Name == "" {
		return nil, apperrors.Validation("name is required", nil)
	}
	if req.Type != model.ServiceTypeConsultation && req.Type != model.ServiceTypeTest {
		return nil, apperrors.Validation("type must be consultation or test", nil).
			WithDetail("type", string(req.Type))
	}
	if req.Price < 0 {
		return nil, apperrors.Validation("price must not be negative", nil)
	}

	svc := &model.Service{
		ClinicID: clinicID,
		Name:     req.Name,
		Type:     req.Type,
		Price:    req.Price,
		Active:   true,
	}
	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	s.logger.Ctx(ctx).Info("Service created", "clinic_id", clinicID.String(), "service_id", svc.ID.String())
	return svc, nil
}

func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListServices(ctx context.Context, clinicID uuid.UUID) ([]*model.Service, error) {
	services, err := s.repo.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}
