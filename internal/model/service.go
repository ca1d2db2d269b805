package model

import (
	"github.com/google/uuid"
)

type ServiceType string

const (
	ServiceTypeConsultation ServiceType = "consultation"
	ServiceTypeTest         ServiceType = "test"
)

// Service is a bookable catalog entry of a clinic.
type Service struct {
	Base
	ClinicID uuid.UUID   `db:"clinic_id" json:"clinic_id"`
	Name     string      `db:"name" json:"name"`
	Type     ServiceType `db:"type" json:"type"`
	Price    float64     `db:"price" json:"price"`
	Active   bool        `db:"active" json:"active"`
}

type CreateServiceRequest struct {
	Name  string      `json:"name" binding:"required"`
	Type  ServiceType `json:"type" binding:"required,oneof=consultation test"`
	Price float64     `json:"price" binding:"min=0"`
}
