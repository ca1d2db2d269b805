package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository/memory"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
)

func TestCatalog(t *testing.T) {
	repos, _ := memory.NewRepositories()
	svc := NewService(repos.Services, logger.Nop())
	ctx := context.Background()
	clinicID := uuid.New()

	created, err := svc.CreateService(ctx, clinicID, &model.CreateServiceRequest{
		Name: "HIV rapid test", Type: model.ServiceTypeTest, Price: 25,
	})
	require.NoError(t, err)
	assert.True(t, created.Active)

	_, err = svc.CreateService(ctx, clinicID, &model.CreateServiceRequest{
		Name: "Consultation", Type: model.ServiceTypeConsultation, Price: 40,
	})
	require.NoError(t, err)

	_, err = svc.CreateService(ctx, clinicID, &model.CreateServiceRequest{Name: "X", Type: "massage"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	_, err = svc.CreateService(ctx, clinicID, &model.CreateServiceRequest{Type: model.ServiceTypeTest})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	list, err := svc.ListServices(ctx, clinicID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Consultation", list[0].Name)

	got, err := svc.GetService(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
}
