package service

import (
	"context"
	"fmt"
	"strings"

	"OmniAgent/internal/modules/account/application/dto/request"
	"OmniAgent/internal/modules/account/application/dto/respond"
	"OmniAgent/internal/modules/account/domain/entity"
	"OmniAgent/internal/modules/account/domain/repository"
	"OmniAgent/pkg/xerr"
	"OmniAgent/pkg/zlog"

	"go.uber.org/zap"
)

// AccountSyncService 维护 phone_number / jid / user_id 三者的绑定关系
type AccountSyncService interface {
	SaveAccount(ctx context.Context, req request.SaveAccountRequest) *respond.AccountResult
	UpdateStatus(ctx context.Context, req request.UpdateStatusRequest) *respond.AccountResult
	GetAccount(ctx context.Context, req request.GetAccountRequest) *respond.AccountResult
}

type accountSyncService struct {
	repo repository.AccountRepository
}

// NewAccountSyncService repo 为 nil 表示账号库未配置，所有调用返回 store_unavailable
func NewAccountSyncService(repo repository.AccountRepository) AccountSyncService {
	return &accountSyncService{repo: repo}
}

func newResult() *respond.AccountResult {
	return &respond.AccountResult{Status: respond.StatusError}
}

func fail(res *respond.AccountResult, kind xerr.Kind, msg string) *respond.AccountResult {
	res.Status = respond.StatusError
	res.Error = string(kind)
	res.Message = msg
	return res
}

func succeed(res *respond.AccountResult, acc *entity.MessagingAccount, msg string) *respond.AccountResult {
	res.Status = respond.StatusSuccess
	res.Found = true
	res.UserId = acc.UserId
	res.PhoneNumber = acc.PhoneNumber
	res.Jid = acc.Jid
	res.AccountStatus = string(acc.Status)
	res.Error = ""
	res.Message = msg
	return res
}

func (s *accountSyncService) SaveAccount(ctx context.Context, req request.SaveAccountRequest) *respond.AccountResult {
	userID := strings.TrimSpace(req.UserId)
	phone := strings.TrimSpace(req.PhoneNumber)
	jid := strings.TrimSpace(req.Jid)
	res := newResult()
	res.UserId, res.PhoneNumber, res.Jid = userID, phone, jid

	if userID == "" || phone == "" || jid == "" {
		return fail(res, xerr.KindValidation, "user_id, phone_number and jid are required")
	}
	if s.repo == nil {
		return fail(res, xerr.KindStoreUnavailable, "account store not configured")
	}

	acc, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		zlog.Error("find account by phone failed", zap.String("phone_number", phone), zap.Error(err))
		return fail(res, xerr.KindStoreUnavailable, "account store unavailable")
	}

	if acc == nil {
		acc = &entity.MessagingAccount{UserId: userID, PhoneNumber: phone, Jid: jid, Status: entity.AccountActive}
		err = s.repo.Create(ctx, acc)
		if err == nil {
			res.Created = true
			zlog.Info("whatsapp account created", zap.String("user_id", userID), zap.String("phone_number", phone))
			return succeed(res, acc, "account created")
		}
		if xerr.KindOf(err) != xerr.KindConflict {
			zlog.Error("create account failed", zap.String("phone_number", phone), zap.Error(err))
			return fail(res, xerr.KindStoreUnavailable, "account store unavailable")
		}
		// 并发登录抢先建了同号码的行，或者 jid 已被别的号码占用
		acc, err = s.repo.FindByPhone(ctx, phone)
		if err != nil {
			zlog.Error("find account by phone failed", zap.String("phone_number", phone), zap.Error(err))
			return fail(res, xerr.KindStoreUnavailable, "account store unavailable")
		}
		if acc == nil {
			return fail(res, xerr.KindConflict, fmt.Sprintf("jid %s is bound to another phone number", jid))
		}
	}

	acc.UserId = userID
	acc.Jid = jid
	acc.Status = entity.AccountActive
	if err := s.repo.Update(ctx, acc); err != nil {
		if xerr.KindOf(err) == xerr.KindConflict {
			return fail(res, xerr.KindConflict, fmt.Sprintf("jid %s is bound to another phone number", jid))
		}
		zlog.Error("update account failed", zap.String("phone_number", phone), zap.Error(err))
		return fail(res, xerr.KindStoreUnavailable, "account store unavailable")
	}
	zlog.Info("whatsapp account re-bound", zap.String("user_id", userID), zap.String("phone_number", phone))
	return succeed(res, acc, "account updated")
}

// UpdateStatus 带 jid 时只按 jid 定位：登出事件到达时该号码可能已被新会话改绑到别的 user_id
func (s *accountSyncService) UpdateStatus(ctx context.Context, req request.UpdateStatusRequest) *respond.AccountResult {
	userID := strings.TrimSpace(req.UserId)
	jid := strings.TrimSpace(req.Jid)
	status := entity.AccountStatus(strings.TrimSpace(req.Status))
	res := newResult()
	res.UserId, res.Jid = userID, jid

	if !status.Valid() {
		return fail(res, xerr.KindValidation, fmt.Sprintf("status must be active or inactive, got %q", req.Status))
	}
	if jid == "" && userID == "" {
		return fail(res, xerr.KindValidation, "jid or user_id is required")
	}
	if s.repo == nil {
		return fail(res, xerr.KindStoreUnavailable, "account store not configured")
	}

	var (
		acc *entity.MessagingAccount
		err error
	)
	if jid != "" {
		acc, err = s.repo.FindByJid(ctx, jid)
	} else {
		acc, err = s.repo.FindLatestByUser(ctx, userID)
	}
	if err != nil {
		zlog.Error("resolve account failed", zap.String("jid", jid), zap.String("user_id", userID), zap.Error(err))
		return fail(res, xerr.KindStoreUnavailable, "account store unavailable")
	}
	if acc == nil {
		zlog.Info("status update for unknown account", zap.String("jid", jid), zap.String("user_id", userID))
		return fail(res, xerr.KindNotFound, "account not found")
	}

	acc.Status = status
	if err := s.repo.Update(ctx, acc); err != nil {
		zlog.Error("update account status failed", zap.String("phone_number", acc.PhoneNumber), zap.Error(err))
		return fail(res, xerr.KindStoreUnavailable, "account store unavailable")
	}
	return succeed(res, acc, "status updated")
}

func (s *accountSyncService) GetAccount(ctx context.Context, req request.GetAccountRequest) *respond.AccountResult {
	phone := strings.TrimSpace(req.PhoneNumber)
	res := newResult()
	res.PhoneNumber = phone

	if phone == "" {
		return fail(res, xerr.KindValidation, "phone_number is required")
	}
	if s.repo == nil {
		return fail(res, xerr.KindStoreUnavailable, "account store not configured")
	}

	acc, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		zlog.Error("find account by phone failed", zap.String("phone_number", phone), zap.Error(err))
		return fail(res, xerr.KindStoreUnavailable, "account store unavailable")
	}
	if acc == nil {
		return fail(res, xerr.KindNotFound, "account not found")
	}
	return succeed(res, acc, "account found")
}
