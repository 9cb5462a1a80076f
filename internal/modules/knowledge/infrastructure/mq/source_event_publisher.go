package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"OmniAgent/internal/modules/knowledge/domain/entity"
	"OmniAgent/internal/modules/knowledge/domain/repository"
)

// SourceEventPublisher 把来源事件编码为 JSON 交给底层生产者
type SourceEventPublisher struct {
	pub   Publisher
	topic string
}

func NewSourceEventPublisher(pub Publisher, topic string) (*SourceEventPublisher, error) {
	if pub == nil {
		return nil, errors.New("publisher is nil")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic is empty")
	}
	return &SourceEventPublisher{pub: pub, topic: topic}, nil
}

var _ repository.SourceEventPublisher = (*SourceEventPublisher)(nil)

func (p *SourceEventPublisher) PublishSourceEvent(ctx context.Context, evt entity.SourceEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = p.pub.Publish(ctx, Message{
		Topic:      p.topic,
		EventType:  evt.Type,
		UserId:     evt.UserId,
		SourceId:   evt.SourceId,
		Value:      value,
		OccurredAt: evt.OccurredAt,
	})
	return err
}
