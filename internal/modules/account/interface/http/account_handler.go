package handler

import (
	jwtMiddleware "OmniAgent/internal/middleware/jwt"
	"OmniAgent/internal/modules/account/application/dto/request"
	"OmniAgent/internal/modules/account/application/dto/respond"
	"OmniAgent/internal/modules/account/application/service"
	"OmniAgent/pkg/back"
	"OmniAgent/pkg/xerr"
	"OmniAgent/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccountHandler struct {
	svc service.AccountSyncService
}

func NewAccountHandler(svc service.AccountSyncService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Save(c *gin.Context) {
	var req request.SaveAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("bind save account request", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	if !jwtMiddleware.OwnsUser(c, req.UserId) {
		back.Error(c, xerr.Forbidden, "user_id does not match token")
		return
	}
	reply(c, h.svc.SaveAccount(c.Request.Context(), req))
}

func (h *AccountHandler) UpdateStatus(c *gin.Context) {
	var req request.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("bind update status request", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	if req.UserId != "" && !jwtMiddleware.OwnsUser(c, req.UserId) {
		back.Error(c, xerr.Forbidden, "user_id does not match token")
		return
	}
	reply(c, h.svc.UpdateStatus(c.Request.Context(), req))
}

func (h *AccountHandler) Get(c *gin.Context) {
	var req request.GetAccountRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	res := h.svc.GetAccount(c.Request.Context(), req)
	if res.Found && !jwtMiddleware.OwnsUser(c, res.UserId) {
		back.Error(c, xerr.Forbidden, "account belongs to another user")
		return
	}
	reply(c, res)
}

func reply(c *gin.Context, res *respond.AccountResult) {
	if res.Status == respond.StatusSuccess {
		back.Success(c, res)
		return
	}
	back.Fail(c, xerr.Kind(res.Error).Code(), res.Message, res)
}
