package handler

import (
	"github.com/gin-gonic/gin"

	"goim-friend/apps/friend-service/internal/converter"
	"goim-friend/apps/friend-service/internal/model"
	"goim-friend/pkg/httpx"
	"goim-friend/pkg/logger"
)

// Register 注册用户
func (h *HTTPHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	var req converter.RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.svc.CreateUser(ctx, req.Username, req.FirstName, req.LastName)
	if err != nil {
		h.logFailure(ctx, "Register user failed", err, logger.F("username", req.Username))
	}
	resp := h.converter.BuildUserResponse(user, err, "user registered")
	if err == nil {
		issueToken(ctx, h.tokens, resp, h.log)
	}
	httpx.WriteObject(c, resp, err)
}

// GetUser 获取用户信息，未指定user_id时返回自己
func (h *HTTPHandler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()
	requesterID, ok := h.requester(c)
	if !ok {
		return
	}
	var req converter.GetUserRequest
	if !h.bind(c, &req) {
		return
	}

	userID := req.UserID.Int64()
	if userID == 0 {
		userID = requesterID
	}
	user, err := h.svc.GetUser(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "Get user failed", err, logger.F("userID", userID))
	}
	httpx.WriteObject(c, h.converter.BuildUserResponse(user, err, "ok"), err)
}

// ListUsers 用户列表
func (h *HTTPHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	if _, ok := h.requester(c); !ok {
		return
	}
	var req converter.ListUsersRequest
	if !h.bind(c, &req) {
		return
	}

	page, pageSize := model.NormalizePage(req.Page, req.PageSize)
	users, total, err := h.svc.ListUsers(ctx, page, pageSize)
	if err != nil {
		h.logFailure(ctx, "List users failed", err)
		httpx.WriteObject(c, h.converter.BuildBaseResponse(err, ""), err)
		return
	}
	httpx.WriteObject(c, &converter.UserListResponse{
		Success:  true,
		Message:  "ok",
		Users:    h.converter.UserModelsToDTO(users),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil)
}
