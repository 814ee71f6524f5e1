package releases

import "context"

type domainEvent struct {
	eventType string
	payload   map[string]interface{}
}

func (e domainEvent) EventType() string {
	return e.eventType
}

func (e domainEvent) Payload() interface{} {
	return e.payload
}

func (s *Service) emit(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, domainEvent{eventType: eventType, payload: payload}); err != nil {
		s.logger.Warn(ctx, "failed to publish domain event", "event_type", eventType, "error", err)
	}
}
