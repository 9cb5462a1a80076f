package repository

import (
	"context"

	"OmniAgent/internal/modules/knowledge/domain/entity"
)

// FieldMatch payload 字段精确匹配
type FieldMatch struct {
	Key   string
	Value string
}

// Filter 多个 FieldMatch 的合取
type Filter []FieldMatch

// SourceFilter 一个来源的全部点
func SourceFilter(userID, sourceID string) Filter {
	return Filter{
		{Key: entity.FieldUserID, Value: userID},
		{Key: entity.FieldSourceID, Value: sourceID},
	}
}

// VectorStore 向量库能力抽象，application 只依赖本接口。
// Upsert 必须等待写入确认后返回；Scroll 返回至多 limit 个匹配点；Count 为精确计数。
type VectorStore interface {
	Collection() string
	Upsert(ctx context.Context, points []entity.Point) error
	Scroll(ctx context.Context, filter Filter, limit int) ([]entity.Point, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Delete(ctx context.Context, filter Filter) error
	DeleteByIDs(ctx context.Context, ids []string) error
}
