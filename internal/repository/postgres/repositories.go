package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-engine/internal/repository"
)

func NewRepositories(db *sqlx.DB) *repository.Repositories {
	base := NewBaseRepository(db)
	return &repository.Repositories{
		Transactor:   NewTransactor(base),
		WorkingHours: NewWorkingHourRepository(base),
		Slots:        NewSlotRepository(base),
		Assignments:  NewAssignmentRepository(base),
		Appointments: NewAppointmentRepository(base),
		Services:     NewServiceRepository(base),
		Outbox:       NewOutboxRepository(base),
	}
}
