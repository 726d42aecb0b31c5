package handler

import (
	"github.com/gin-gonic/gin"

	"goim-friend/apps/friend-service/internal/converter"
	"goim-friend/pkg/httpx"
	"goim-friend/pkg/logger"
)

// GetFriendStatus 查询与指定用户的好友状态
func (h *HTTPHandler) GetFriendStatus(c *gin.Context) {
	ctx := c.Request.Context()
	requesterID, ok := h.requester(c)
	if !ok {
		return
	}
	var req converter.FriendRequest
	if !h.bind(c, &req) {
		return
	}

	status, err := h.svc.GetFriendStatus(ctx, requesterID, req.UserID.Int64())
	if err != nil {
		h.logFailure(ctx, "Get friend status failed", err,
			logger.F("viewerID", requesterID),
			logger.F("otherID", req.UserID.Int64()))
	}
	httpx.WriteObject(c, h.converter.BuildFriendStatusResponse(status, err), err)
}

// Unfriend 删除好友
func (h *HTTPHandler) Unfriend(c *gin.Context) {
	ctx := c.Request.Context()
	requesterID, ok := h.requester(c)
	if !ok {
		return
	}
	var req converter.FriendRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.svc.Unfriend(ctx, requesterID, req.UserID.Int64())
	if err != nil {
		h.logFailure(ctx, "Unfriend failed", err,
			logger.F("requesterID", requesterID),
			logger.F("otherID", req.UserID.Int64()))
	}
	httpx.WriteObject(c, h.converter.BuildBaseResponse(err, "friend removed"), err)
}

// ListFriends 我的好友列表
func (h *HTTPHandler) ListFriends(c *gin.Context) {
	ctx := c.Request.Context()
	requesterID, ok := h.requester(c)
	if !ok {
		return
	}

	friends, err := h.svc.ListFriends(ctx, requesterID)
	if err != nil {
		h.logFailure(ctx, "List friends failed", err, logger.F("userID", requesterID))
	}
	httpx.WriteObject(c, h.converter.BuildFriendListResponse(friends, err), err)
}
