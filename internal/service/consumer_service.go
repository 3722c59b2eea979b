package service

import (
	"context"
	"time"

	"ai-consultation-be/internal/dto"
	"ai-consultation-be/internal/entity"
	"ai-consultation-be/internal/pkg/logger"
	"ai-consultation-be/internal/repository/contract"
	"ai-consultation-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventForwarder ships events off-process (NATS JetStream in production).
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	forwarder  EventForwarder
	archive    contract.AssessmentRepository
	logger     logger.ILogger
}

// NewConsumerService drains the in-process bus. forwarder and archive are
// optional.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	forwarder EventForwarder,
	archive contract.AssessmentRepository,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		forwarder:  forwarder,
		archive:    archive,
		logger:     logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.logger.Error("EVENTS", "Dropping undecodable message", map[string]interface{}{"message_id": msg.UUID, "error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if event.EventType() == events.TypeAssessmentCompleted && cs.archive != nil {
		if err := cs.archiveAssessment(ctx, event); err != nil {
			cs.logger.Error("EVENTS", "Failed to archive assessment", map[string]interface{}{"message_id": msg.UUID, "error": err.Error()})
			msg.Nack()
			return
		}
	}

	if cs.forwarder != nil {
		fwdCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := cs.forwarder.Publish(fwdCtx, event)
		cancel()
		if err != nil {
			// The stream is an audit copy; losing one is not worth blocking the bus
			cs.logger.Warn("EVENTS", "Failed to forward event", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
		}
	}

	msg.Ack()
}

func (cs *consumerService) archiveAssessment(ctx context.Context, event events.Event) error {
	var payload dto.AssessmentCompletedMessage
	if err := fromPayload(event.Payload(), &payload); err != nil {
		return err
	}

	record := &entity.AssessmentRecord{
		Id:                payload.AssessmentId,
		Assessment:        payload.Assessment,
		Symptoms:          payload.Symptoms,
		VisualDescription: payload.VisualDescription,
		Warnings:          payload.Warnings,
		ReportMarkdown:    payload.ReportMarkdown,
		CreatedAt:         event.Timestamp(),
	}
	if err := cs.archive.Create(ctx, record); err != nil {
		return err
	}

	cs.logger.Info("EVENTS", "Assessment archived", map[string]interface{}{"assessment_id": record.Id.String()})
	return nil
}
