package repository

import (
	"context"
	"errors"

	"OmniAgent/internal/modules/account/domain/entity"
)

// ErrDuplicate phone_number 或 jid 唯一索引冲突，实现层以 xerr.KindConflict 包装返回
var ErrDuplicate = errors.New("duplicate key")

// AccountRepository 查询不到返回 nil, nil
type AccountRepository interface {
	FindByPhone(ctx context.Context, phone string) (*entity.MessagingAccount, error)
	FindByJid(ctx context.Context, jid string) (*entity.MessagingAccount, error)
	// FindLatestByUser 同一用户多条绑定时取最近更新的一条
	FindLatestByUser(ctx context.Context, userID string) (*entity.MessagingAccount, error)
	Create(ctx context.Context, acc *entity.MessagingAccount) error
	Update(ctx context.Context, acc *entity.MessagingAccount) error
}
