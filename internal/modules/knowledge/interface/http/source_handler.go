package handler

import (
	jwtMiddleware "OmniAgent/internal/middleware/jwt"
	"OmniAgent/internal/modules/knowledge/application/dto/request"
	"OmniAgent/internal/modules/knowledge/application/dto/respond"
	"OmniAgent/internal/modules/knowledge/application/service"
	"OmniAgent/pkg/back"
	"OmniAgent/pkg/xerr"
	"OmniAgent/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SourceHandler struct {
	svc service.SourceSyncService
}

func NewSourceHandler(svc service.SourceSyncService) *SourceHandler {
	return &SourceHandler{svc: svc}
}

func (h *SourceHandler) Ingest(c *gin.Context) {
	var req request.IngestSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("bind ingest request", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	if !jwtMiddleware.OwnsUser(c, req.UserId) {
		back.Error(c, xerr.Forbidden, "user_id does not match token")
		return
	}

	res := h.svc.Ingest(c.Request.Context(), req)
	reply(c, res.Status, res.Error, res.Message, res)
}

func (h *SourceHandler) Delete(c *gin.Context) {
	var req request.DeleteSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("bind delete request", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	if !jwtMiddleware.OwnsUser(c, req.UserId) {
		back.Error(c, xerr.Forbidden, "user_id does not match token")
		return
	}

	res := h.svc.DeleteSource(c.Request.Context(), req)
	reply(c, res.Status, res.Error, res.Message, res)
}

func (h *SourceHandler) List(c *gin.Context) {
	var req request.ListSourcesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	if !jwtMiddleware.OwnsUser(c, req.UserId) {
		back.Error(c, xerr.Forbidden, "user_id does not match token")
		return
	}

	res := h.svc.ListSources(c.Request.Context(), req)
	reply(c, res.Status, res.Error, res.Message, res)
}

func reply(c *gin.Context, status, kind, message string, data interface{}) {
	if status == respond.StatusSuccess {
		back.Success(c, data)
		return
	}
	back.Fail(c, xerr.Kind(kind).Code(), message, data)
}
