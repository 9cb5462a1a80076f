package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"OmniAgent/internal/modules/knowledge/infrastructure/mq"

	"github.com/IBM/sarama"
)

type PublisherConfig struct {
	Brokers  []string
	ClientID string
}

type saramaPublisher struct {
	p sarama.SyncProducer
}

func NewSaramaPublisher(cfg PublisherConfig) (mq.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers is empty")
	}

	p, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig(cfg.ClientID))
	if err != nil {
		return nil, err
	}
	return &saramaPublisher{p: p}, nil
}

// NewProducerConfig 幂等生产者，要求全部副本确认
func NewProducerConfig(clientID string) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 10
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.ClientID = strings.TrimSpace(clientID)
	if sc.ClientID == "" {
		sc.ClientID = "omniagent"
	}
	return sc
}

// NewPublisherFromProducer 复用已有的 SyncProducer
func NewPublisherFromProducer(p sarama.SyncProducer) mq.Publisher {
	return &saramaPublisher{p: p}
}

const (
	headerEventType   = "event_type"
	headerContentType = "content_type"
	contentTypeJSON   = "application/json"
)

// MessageKey 同一用户同一来源的事件落在同一分区，保证消费侧按序
func MessageKey(userID, sourceID string) string {
	return userID + ":" + sourceID
}

func toProducerMessage(msg mq.Message) (*sarama.ProducerMessage, error) {
	topic := strings.TrimSpace(msg.Topic)
	if topic == "" {
		return nil, errors.New("kafka topic is empty")
	}
	eventType := strings.TrimSpace(msg.EventType)
	if eventType == "" {
		return nil, errors.New("event type is empty")
	}
	if msg.UserId == "" || msg.SourceId == "" {
		return nil, errors.New("message key requires user_id and source_id")
	}
	pm := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(MessageKey(msg.UserId, msg.SourceId)),
		Value: sarama.ByteEncoder(msg.Value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerEventType), Value: []byte(eventType)},
			{Key: []byte(headerContentType), Value: []byte(contentTypeJSON)},
		},
	}
	if !msg.OccurredAt.IsZero() {
		pm.Timestamp = msg.OccurredAt
	}
	return pm, nil
}

func (s *saramaPublisher) Publish(ctx context.Context, msg mq.Message) (mq.PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return mq.PublishResult{}, err
	}
	pm, err := toProducerMessage(msg)
	if err != nil {
		return mq.PublishResult{}, err
	}
	partition, offset, err := s.p.SendMessage(pm)
	if err != nil {
		return mq.PublishResult{}, fmt.Errorf("send %s to %s: %w", msg.EventType, pm.Topic, err)
	}
	return mq.PublishResult{Partition: partition, Offset: offset}, nil
}

// Close 可重复调用
func (s *saramaPublisher) Close() error {
	if s == nil || s.p == nil {
		return nil
	}
	err := s.p.Close()
	s.p = nil
	return err
}
