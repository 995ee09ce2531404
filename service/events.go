package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

const feedbackEventType = "feedback.submitted"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// FeedbackEvent is published after feedback was accepted by FlowAudit
type FeedbackEvent struct {
	Type         string                    `json:"type"`
	DocumentID   string                    `json:"document_id"`
	Tenant       string                    `json:"tenant"`
	Reviewer     string                    `json:"reviewer,omitempty"`
	Rating       model.Rating              `json:"rating"`
	Corrections  []model.CorrectionPayload `json:"corrections"`
	AcceptResult bool                      `json:"accept_result"`
	OccurredAt   time.Time                 `json:"occurred_at"`
}

// EventPublisher writes feedback events to a Kafka topic
type EventPublisher struct {
	writer  messageWriter
	timeout time.Duration
	now     func() time.Time
}

func NewEventPublisher(cfg *config.KafkaConfig) *EventPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newEventPublisher(writer)
}

func newEventPublisher(w messageWriter) *EventPublisher {
	return &EventPublisher{writer: w, timeout: 5 * time.Second, now: time.Now}
}

// FeedbackSubmitted implements review.Observer
func (p *EventPublisher) FeedbackSubmitted(ctx context.Context, doc *model.Document, sub *model.FeedbackSubmission) error {
	event := FeedbackEvent{
		Type:         feedbackEventType,
		DocumentID:   sub.DocumentID,
		Tenant:       contextString(ctx, logger.TenantKey, "default"),
		Reviewer:     contextString(ctx, logger.UsernameKey, ""),
		Rating:       sub.Rating,
		Corrections:  sub.Corrections,
		AcceptResult: sub.AcceptResult,
		OccurredAt:   p.now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode feedback event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(sub.DocumentID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(feedbackEventType)},
		},
	}
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok && requestID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "request_id", Value: []byte(requestID)})
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("failed to publish feedback event: %w", err)
	}
	logger.Debug(ctx, "feedback event published", "document_id", sub.DocumentID)
	return nil
}

func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
