package persistence

import (
	"context"
	"errors"
	"strings"

	"OmniAgent/internal/modules/knowledge/domain/entity"
	"OmniAgent/internal/modules/knowledge/domain/repository"
	"OmniAgent/pkg/xerr"

	"gorm.io/gorm"
)

type sourceRepositoryImpl struct {
	db *gorm.DB
}

// NewSourceRepository db 需要开启 TranslateError，唯一索引冲突才能识别为 ErrDuplicate
func NewSourceRepository(db *gorm.DB) repository.SourceRepository {
	return &sourceRepositoryImpl{db: db}
}

func (r *sourceRepositoryImpl) FindOne(ctx context.Context, userID, sourceID, title string) (*entity.UserSource, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND source_id = ?", userID, sourceID)
	if t := strings.TrimSpace(title); t != "" {
		q = q.Where("source_title = ?", t)
	}
	var src entity.UserSource
	err := q.Take(&src).Error
	if err == nil {
		return &src, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, translate("find source", err)
}

// FindByTitle 同名来源取最近更新的一条
func (r *sourceRepositoryImpl) FindByTitle(ctx context.Context, userID, title string) (*entity.UserSource, error) {
	var src entity.UserSource
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND source_title = ?", userID, title).
		Order("updated_at DESC").Order("id DESC").
		Take(&src).Error
	if err == nil {
		return &src, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, translate("find source", err)
}

func (r *sourceRepositoryImpl) ListByUser(ctx context.Context, userID string, sourceType entity.SourceType) ([]entity.UserSource, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if sourceType != "" {
		q = q.Where("source_type = ?", sourceType)
	}
	var list []entity.UserSource
	if err := q.Order("created_at ASC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, translate("list sources", err)
	}
	return list, nil
}

func (r *sourceRepositoryImpl) Create(ctx context.Context, src *entity.UserSource) error {
	return translate("create source", r.db.WithContext(ctx).Create(src).Error)
}

func (r *sourceRepositoryImpl) Update(ctx context.Context, src *entity.UserSource) error {
	return translate("update source", r.db.WithContext(ctx).
		Model(src).
		Select("source_title", "source_type", "updated_at").
		Updates(src).Error)
}

func (r *sourceRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return translate("delete source", r.db.WithContext(ctx).Delete(&entity.UserSource{}, id).Error)
}

// translate 把 gorm 错误归类：唯一索引冲突为 conflict 且可用 errors.Is 匹配 ErrDuplicate，其余为 store_unavailable
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return xerr.Wrap(xerr.KindConflict, op+": duplicate key", repository.ErrDuplicate)
	default:
		return xerr.Wrap(xerr.KindStoreUnavailable, op, err)
	}
}
