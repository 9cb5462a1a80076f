package repository

import (
	"context"
	"errors"

	"OmniAgent/internal/modules/knowledge/domain/entity"
)

// ErrDuplicate 唯一索引冲突。实现层返回 xerr.KindConflict 的 CodeError，Cause 为 ErrDuplicate
var ErrDuplicate = errors.New("duplicate key")

// SourceRepository 元数据表 user_sources 的读写。查询不到返回 nil, nil
type SourceRepository interface {
	// FindOne 按 (user_id, source_id) 查询；title 非空时额外匹配 source_title
	FindOne(ctx context.Context, userID, sourceID, title string) (*entity.UserSource, error)
	FindByTitle(ctx context.Context, userID, title string) (*entity.UserSource, error)
	ListByUser(ctx context.Context, userID string, sourceType entity.SourceType) ([]entity.UserSource, error)
	Create(ctx context.Context, src *entity.UserSource) error
	Update(ctx context.Context, src *entity.UserSource) error
	Delete(ctx context.Context, id int64) error
}
