package handler

import (
	"github.com/gin-gonic/gin"

	"goim-friend/apps/friend-service/internal/converter"
	"goim-friend/pkg/errs"
	"goim-friend/pkg/httpx"
	"goim-friend/pkg/logger"
)

// errPresetAnswer 创建时不允许携带应答结果
var errPresetAnswer = errs.Validation("invite cannot be created already answered")

// CreateInvite 发送好友邀请
func (h *HTTPHandler) CreateInvite(c *gin.Context) {
	ctx := c.Request.Context()
	requesterID, ok := h.requester(c)
	if !ok {
		return
	}
	var req converter.CreateInviteRequest
	if !h.bind(c, &req) {
		return
	}
	if req.IsAccept != nil {
		httpx.WriteObject(c, h.converter.BuildInviteResponse(nil, errPresetAnswer, ""), errPresetAnswer)
		return
	}

	invite, err := h.svc.CreateInvite(ctx, requesterID, req.Target.Int64())
	if err != nil {
		h.logFailure(ctx, "Create invite failed", err,
			logger.F("ownerID", requesterID),
			logger.F("targetID", req.Target.Int64()))
	}
	httpx.WriteObject(c, h.converter.BuildInviteResponse(invite, err, "invite created"), err)
}

// AnswerInvite 应答好友邀请
func (h *HTTPHandler) AnswerInvite(c *gin.Context) {
	ctx := c.Request.Context()
	requesterID, ok := h.requester(c)
	if !ok {
		return
	}
	var req converter.AnswerInviteRequest
	if !h.bind(c, &req) {
		return
	}

	invite, err := h.svc.AnswerInvite(ctx, req.InviteID.Int64(), requesterID, *req.IsAccept)
	if err != nil {
		h.logFailure(ctx, "Answer invite failed", err,
			logger.F("inviteID", req.InviteID.Int64()),
			logger.F("responderID", requesterID))
	}
	httpx.WriteObject(c, h.converter.BuildInviteResponse(invite, err, "invite answered"), err)
}

// GetInvite 邀请详情
func (h *HTTPHandler) GetInvite(c *gin.Context) {
	ctx := c.Request.Context()
	requesterID, ok := h.requester(c)
	if !ok {
		return
	}
	var req converter.GetInviteRequest
	if !h.bind(c, &req) {
		return
	}

	invite, err := h.svc.GetInvite(ctx, req.InviteID.Int64(), requesterID)
	if err != nil {
		h.logFailure(ctx, "Get invite failed", err,
			logger.F("inviteID", req.InviteID.Int64()),
			logger.F("requesterID", requesterID))
	}
	httpx.WriteObject(c, h.converter.BuildInviteResponse(invite, err, "ok"), err)
}

// ListInvites 与我相关的全部邀请
func (h *HTTPHandler) ListInvites(c *gin.Context) {
	ctx := c.Request.Context()
	requesterID, ok := h.requester(c)
	if !ok {
		return
	}

	invites, err := h.svc.ListInvites(ctx, requesterID)
	if err != nil {
		h.logFailure(ctx, "List invites failed", err, logger.F("userID", requesterID))
	}
	httpx.WriteObject(c, h.converter.BuildInviteListResponse(invites, err), err)
}

// ListIncoming 收到的待处理邀请
func (h *HTTPHandler) ListIncoming(c *gin.Context) {
	ctx := c.Request.Context()
	requesterID, ok := h.requester(c)
	if !ok {
		return
	}

	invites, err := h.svc.ListIncoming(ctx, requesterID)
	if err != nil {
		h.logFailure(ctx, "List incoming invites failed", err, logger.F("userID", requesterID))
	}
	httpx.WriteObject(c, h.converter.BuildInviteListResponse(invites, err), err)
}

// ListOutgoing 发出的待处理邀请
func (h *HTTPHandler) ListOutgoing(c *gin.Context) {
	ctx := c.Request.Context()
	requesterID, ok := h.requester(c)
	if !ok {
		return
	}

	invites, err := h.svc.ListOutgoing(ctx, requesterID)
	if err != nil {
		h.logFailure(ctx, "List outgoing invites failed", err, logger.F("userID", requesterID))
	}
	httpx.WriteObject(c, h.converter.BuildInviteListResponse(invites, err), err)
}
