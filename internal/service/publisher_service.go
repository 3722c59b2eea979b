package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-consultation-be/internal/dto"
	"ai-consultation-be/internal/pkg/logger"
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	PublishAssessmentCompleted(ctx context.Context, msg dto.AssessmentCompletedMessage)
	PublishReportAnalyzed(ctx context.Context, file string, format consultation.Format, warnings int)
	PublishSessionEvicted(ctx context.Context, s *consultation.Session)
}

// publisherService puts domain events on the in-process bus. Publishing is
// best effort: failures are logged, never returned to the request.
type publisherService struct {
	publisher message.Publisher
	topicName string
	logger    logger.ILogger
}

func NewPublisherService(publisher message.Publisher, topicName string, logger logger.ILogger) IPublisherService {
	return &publisherService{
		publisher: publisher,
		topicName: topicName,
		logger:    logger,
	}
}

func (p *publisherService) PublishAssessmentCompleted(ctx context.Context, msg dto.AssessmentCompletedMessage) {
	data, err := toPayload(msg)
	if err != nil {
		p.logger.Error("EVENTS", "Failed to encode assessment event", map[string]interface{}{"error": err.Error()})
		return
	}
	p.publish(events.New(events.TypeAssessmentCompleted, data))
}

func (p *publisherService) PublishReportAnalyzed(ctx context.Context, file string, format consultation.Format, warnings int) {
	p.publish(events.New(events.TypeReportAnalyzed, map[string]interface{}{
		"file":     file,
		"format":   string(format),
		"warnings": warnings,
	}))
}

func (p *publisherService) PublishSessionEvicted(ctx context.Context, s *consultation.Session) {
	p.publish(events.New(events.TypeSessionEvicted, map[string]interface{}{
		"session_id":  s.ID,
		"turns":       len(s.Turns),
		"created_at":  s.CreatedAt,
		"last_access": s.LastAccess,
	}))
}

func (p *publisherService) publish(e events.Event) {
	payload, err := events.Marshal(e)
	if err != nil {
		p.logger.Error("EVENTS", "Failed to marshal event", map[string]interface{}{"type": e.EventType(), "error": err.Error()})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("EVENTS", "Failed to publish event", map[string]interface{}{"type": e.EventType(), "error": err.Error()})
		return
	}
	p.logger.Debug("EVENTS", "Event published", map[string]interface{}{"type": e.EventType(), "message_id": msg.UUID})
}

// toPayload flattens a struct into the generic event payload.
func toPayload(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return out, nil
}

// fromPayload is the inverse of toPayload.
func fromPayload(data map[string]interface{}, v interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
