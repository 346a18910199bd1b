package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/hybridrec/internal/config"
	"github.com/temcen/hybridrec/pkg/models"
)

const dlqSuffix = "-dlq"

// ModelTrainedEvent announces a newly published pair of models.
type ModelTrainedEvent struct {
	EventID              uuid.UUID     `json:"event_id"`
	CollaborativeVersion string        `json:"collaborative_version"`
	ContentVersion       string        `json:"content_version"`
	Users                int           `json:"users"`
	Items                int           `json:"items"`
	Ratings              int           `json:"ratings"`
	Duration             time.Duration `json:"duration"`
	TrainedAt            time.Time     `json:"trained_at"`
}

// RetrainRequest asks the service to rebuild its models from storage.
type RetrainRequest struct {
	RequestID   uuid.UUID `json:"request_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
	RetryCount  int       `json:"retry_count"`
}

// Retrainer rebuilds and publishes models.
type Retrainer interface {
	Retrain(ctx context.Context, reason string) error
}

type MessageBus struct {
	writer      *kafka.Writer
	reader      *kafka.Reader
	dlqWriter   *kafka.Writer
	eventsTopic string
	retrainDLQ  string
	maxRetries  int
	baseDelay   time.Duration
	logger      *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, errors.New("no Kafka brokers configured")
	}

	eventsTopic := cfg.Kafka.Topics.ModelEvents
	retrainTopic := cfg.Kafka.Topics.RetrainRequests

	return &MessageBus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        eventsTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          retrainTopic,
			GroupID:        cfg.Kafka.GroupID,
			MinBytes:       1,
			MaxBytes:       1e6, // 1MB
			CommitInterval: time.Second,
			StartOffset:    kafka.LastOffset,
		}),
		dlqWriter: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        retrainTopic + dlqSuffix,
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		eventsTopic: eventsTopic,
		retrainDLQ:  retrainTopic + dlqSuffix,
		maxRetries:  3,
		baseDelay:   time.Second,
		logger:      logger,
	}, nil
}

// PublishModelTrained writes a model-published event keyed by the
// collaborative model version.
func (mb *MessageBus) PublishModelTrained(ctx context.Context, event ModelTrainedEvent) error {
	msg, err := modelTrainedMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mb.writer.WriteMessages(ctx, msg); err != nil {
		mb.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to publish message to Kafka")
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"event_id":              event.EventID,
		"collaborative_version": event.CollaborativeVersion,
		"content_version":       event.ContentVersion,
		"topic":                 mb.eventsTopic,
	}).Info("Model trained event published")

	return nil
}

func modelTrainedMessage(event ModelTrainedEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.CollaborativeVersion),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "event_type", Value: []byte("model_trained")},
			{Key: "timestamp", Value: []byte(event.TrainedAt.Format(time.RFC3339))},
		},
	}, nil
}

// ListenForRetrain consumes retrain requests until ctx is done and hands
// each one to r. A request arriving while training is already running is
// dropped; the running job will pick up the same data.
func (mb *MessageBus) ListenForRetrain(ctx context.Context, r Retrainer) error {
	handler := retrainHandler(r)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := mb.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mb.logger.WithError(err).Error("Failed to read message from Kafka")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(mb.baseDelay):
				}
				continue
			}

			var req RetrainRequest
			if err := json.Unmarshal(message.Value, &req); err != nil {
				mb.logger.WithError(err).Error("Failed to unmarshal Kafka message")
				continue
			}

			if err := mb.processWithRetry(ctx, req, handler); err != nil {
				mb.logger.WithError(err).WithField("request_id", req.RequestID).Error("Failed to process message after retries")

				if dlqErr := mb.sendToDLQ(ctx, req, err); dlqErr != nil {
					mb.logger.WithError(dlqErr).Error("Failed to send message to DLQ")
				}
			}
		}
	}
}

func retrainHandler(r Retrainer) func(context.Context, RetrainRequest) error {
	return func(ctx context.Context, req RetrainRequest) error {
		reason := req.Reason
		if reason == "" {
			reason = "retrain request " + req.RequestID.String()
		}
		err := r.Retrain(ctx, reason)
		if errors.Is(err, models.ErrTrainingInProgress) {
			return nil
		}
		return err
	}
}

func (mb *MessageBus) processWithRetry(ctx context.Context, req RetrainRequest, handler func(context.Context, RetrainRequest) error) error {
	for attempt := 0; attempt <= mb.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := mb.baseDelay * time.Duration(1<<uint(attempt-1))
			mb.logger.WithFields(logrus.Fields{
				"request_id": req.RequestID,
				"attempt":    attempt,
				"delay":      delay,
			}).Info("Retrying message processing")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req.RetryCount = attempt
		if err := handler(ctx, req); err != nil {
			mb.logger.WithError(err).WithFields(logrus.Fields{
				"request_id": req.RequestID,
				"attempt":    attempt,
			}).Warn("Message processing failed")

			if attempt == mb.maxRetries {
				return fmt.Errorf("max retries exceeded: %w", err)
			}
			continue
		}

		mb.logger.WithFields(logrus.Fields{
			"request_id": req.RequestID,
			"attempt":    attempt,
		}).Info("Message processed successfully")
		return nil
	}

	return fmt.Errorf("unexpected retry loop exit")
}

func dlqMessage(req RetrainRequest, originalError error) (kafka.Message, error) {
	payload := map[string]interface{}{
		"original_message": req,
		"error":            originalError.Error(),
		"dlq_timestamp":    time.Now(),
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	return kafka.Message{
		Key:   []byte(req.RequestID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "request_id", Value: []byte(req.RequestID.String())},
			{Key: "error", Value: []byte(originalError.Error())},
		},
	}, nil
}

func (mb *MessageBus) sendToDLQ(ctx context.Context, req RetrainRequest, originalError error) error {
	msg, err := dlqMessage(req, originalError)
	if err != nil {
		return err
	}

	if err := mb.dlqWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to DLQ: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"topic":      mb.retrainDLQ,
		"error":      originalError.Error(),
	}).Warn("Message sent to DLQ")

	return nil
}

func (mb *MessageBus) Close() error {
	var errors []error

	if err := mb.writer.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close producer: %w", err))
	}

	if err := mb.reader.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close consumer: %w", err))
	}

	if err := mb.dlqWriter.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errors)
	}

	return nil
}

// GetMetrics returns Kafka metrics for monitoring
func (mb *MessageBus) GetMetrics() map[string]interface{} {
	stats := mb.reader.Stats()
	return map[string]interface{}{
		"consumer_lag":    stats.Lag,
		"consumer_offset": stats.Offset,
		"messages_read":   stats.Messages,
		"rebalances":      stats.Rebalances,
		"errors":          stats.Errors,
	}
}
