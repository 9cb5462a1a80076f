package repository

import (
	"context"

	"OmniAgent/internal/modules/knowledge/domain/entity"
)

// SourceEventPublisher 可选；失败只记日志，不影响同步结果
type SourceEventPublisher interface {
	PublishSourceEvent(ctx context.Context, evt entity.SourceEvent) error
}
