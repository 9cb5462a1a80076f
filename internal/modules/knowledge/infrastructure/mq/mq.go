package mq

import (
	"context"
	"time"
)

// Message 一条来源事件。分区键与消息头由具体的生产者实现决定
type Message struct {
	Topic      string
	EventType  string
	UserId     string
	SourceId   string
	Value      []byte
	OccurredAt time.Time
}

type PublishResult struct {
	Partition int32
	Offset    int64
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) (PublishResult, error)
	Close() error
}
