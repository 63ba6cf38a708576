package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/fundtrail/trace-service/internal/config"
	"github.com/fundtrail/trace-service/internal/service"
	"go.uber.org/zap"
)

// UploadConsumer consumes parsed spreadsheet uploads published by the
// importer and feeds them to the ingest service.
type UploadConsumer struct {
	consumerGroup sarama.ConsumerGroup
	ingest        *service.IngestService
	topics        []string
	logger        *zap.Logger
}

// NewUploadConsumer creates the consumer group for the upload topic.
func NewUploadConsumer(cfg config.KafkaConfig, ingest *service.IngestService, logger *zap.Logger) (*UploadConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Version = sarama.V2_8_0_0

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &UploadConsumer{
		consumerGroup: consumerGroup,
		ingest:        ingest,
		topics:        []string{cfg.UploadTopic},
		logger:        logger,
	}, nil
}

// Start runs the consume loop until the context is canceled.
func (c *UploadConsumer) Start(ctx context.Context) error {
	handler := &uploadConsumerHandler{
		ingest: c.ingest,
		logger: c.logger,
	}

	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
			if ctx.Err() != nil {
				return nil // Context canceled
			}
			c.logger.Error("Error from consumer", zap.Error(err))
			time.Sleep(time.Second * 5) // Retry backoff
		}
	}
}

func (c *UploadConsumer) Close() error {
	return c.consumerGroup.Close()
}

type uploadConsumerHandler struct {
	ingest *service.IngestService
	logger *zap.Logger
}

func (h *uploadConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *uploadConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }
func (h *uploadConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.processMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *uploadConsumerHandler) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	var upload service.Upload
	if err := json.Unmarshal(msg.Value, &upload); err != nil {
		h.logger.Error("Failed to unmarshal upload message",
			zap.String("topic", msg.Topic),
			zap.Error(err),
		)
		return // Skip malformed
	}

	// Retry mechanism for persistence
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		if _, err := h.ingest.ProcessUpload(ctx, &upload); err != nil {
			h.logger.Error("Failed to ingest upload",
				zap.String("filename", upload.Filename),
				zap.Error(err),
				zap.Int("retry", i+1),
			)
			if i < maxRetries-1 {
				time.Sleep(time.Duration(i+1) * time.Second) // Simple backoff
				continue
			}
			h.logger.Error("Dropping upload after retries", zap.String("filename", upload.Filename))
		}
		break // Success
	}
}
