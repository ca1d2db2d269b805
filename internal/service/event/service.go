package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/pkg/logger"
)

type EventService struct {
	outboxRepo repository.OutboxRepository
	logger     *logger.Logger
}

func NewEventService(outboxRepo repository.OutboxRepository, logger *logger.Logger) *EventService {
	return &EventService{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Emit writes the event to the outbox. Delivery is left to the outbox processor.
func (s *EventService) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	s.logger.Ctx(ctx).Debug("Event recorded", "event_id", event.ID.String(), "event_type", eventType)
	return nil
}
