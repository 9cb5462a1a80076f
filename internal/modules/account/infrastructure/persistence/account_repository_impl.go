package persistence

import (
	"context"
	"errors"

	"OmniAgent/internal/modules/account/domain/entity"
	"OmniAgent/internal/modules/account/domain/repository"
	"OmniAgent/pkg/xerr"

	"gorm.io/gorm"
)

type accountRepositoryImpl struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepositoryImpl{db: db}
}

func (r *accountRepositoryImpl) take(q *gorm.DB) (*entity.MessagingAccount, error) {
	var acc entity.MessagingAccount
	err := q.Take(&acc).Error
	if err == nil {
		return &acc, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, translate("find account", err)
}

func (r *accountRepositoryImpl) FindByPhone(ctx context.Context, phone string) (*entity.MessagingAccount, error) {
	return r.take(r.db.WithContext(ctx).Where("phone_number = ?", phone))
}

func (r *accountRepositoryImpl) FindByJid(ctx context.Context, jid string) (*entity.MessagingAccount, error) {
	return r.take(r.db.WithContext(ctx).Where("jid = ?", jid))
}

func (r *accountRepositoryImpl) FindLatestByUser(ctx context.Context, userID string) (*entity.MessagingAccount, error) {
	return r.take(r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Order("id DESC"))
}

func (r *accountRepositoryImpl) Create(ctx context.Context, acc *entity.MessagingAccount) error {
	return translate("create account", r.db.WithContext(ctx).Create(acc).Error)
}

func (r *accountRepositoryImpl) Update(ctx context.Context, acc *entity.MessagingAccount) error {
	return translate("update account", r.db.WithContext(ctx).
		Model(acc).
		Select("user_id", "jid", "status", "updated_at").
		Updates(acc).Error)
}

// translate phone_number / jid 冲突归为 conflict，其余为 store_unavailable
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
