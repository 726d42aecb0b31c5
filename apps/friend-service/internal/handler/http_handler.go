package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"goim-friend/apps/friend-service/internal/converter"
	"goim-friend/apps/friend-service/internal/service"
	"goim-friend/pkg/errs"
	"goim-friend/pkg/httpx"
	"goim-friend/pkg/logger"
	"goim-friend/pkg/middleware"
)

// TokenIssuer 注册成功后签发访问令牌，auth.Issuer 实现了该接口
type TokenIssuer interface {
	Issue(userID int64, username string) (string, error)
}

// HTTPHandler HTTP协议处理器
type HTTPHandler struct {
	svc       *service.Service
	converter *converter.Converter
	limiter   middleware.RateLimiter
	tokens    TokenIssuer
	log       logger.Logger
}

// NewHTTPHandler 创建HTTP处理器，limiter 为 nil 时创建邀请不限流，tokens 为 nil 时注册不返回token
func NewHTTPHandler(svc *service.Service, limiter middleware.RateLimiter, tokens TokenIssuer, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:       svc,
		converter: converter.NewConverter(),
		limiter:   limiter,
		tokens:    tokens,
		log:       log,
	}
}

// RegisterRoutes 注册HTTP路由
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	user := r.Group("/api/v1/user")
	{
		user.POST("/register", h.Register) // 注册（无需认证）
		user.POST("/info", h.GetUser)      // 用户信息
		user.POST("/list", h.ListUsers)    // 用户列表
	}

	createChain := []gin.HandlerFunc{h.CreateInvite}
	if h.limiter != nil {
		createChain = append([]gin.HandlerFunc{middleware.RateLimit(h.limiter, h.log)}, createChain...)
	}

	invite := r.Group("/api/v1/invite")
	{
		invite.POST("/create", createChain...)   // 发送好友邀请
		invite.POST("/answer", h.AnswerInvite)   // 应答好友邀请
		invite.POST("/info", h.GetInvite)        // 邀请详情
		invite.POST("/list", h.ListInvites)      // 与我相关的全部邀请
		invite.POST("/incoming", h.ListIncoming) // 收到的待处理邀请
		invite.POST("/outgoing", h.ListOutgoing) // 发出的待处理邀请
	}

	friend := r.Group("/api/v1/friend")
	{
		friend.POST("/status", h.GetFriendStatus) // 查询好友状态
		friend.POST("/delete", h.Unfriend)        // 删除好友
		friend.POST("/list", h.ListFriends)       // 好友列表
	}
}

// requester 获取已认证用户，未认证时写入错误响应
func (h *HTTPHandler) requester(c *gin.Context) (int64, bool) {
	userID, ok := middleware.RequesterID(c)
	if !ok {
		httpx.WriteError(c, errs.Unauthorized("authentication required"))
		return 0, false
	}
	return userID, true
}

// bind 绑定并校验请求体，空请求体按空对象处理
func (h *HTTPHandler) bind(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(req)
	}
	if err != nil {
		h.log.Warn(c.Request.Context(), "Invalid request format",
			logger.F("path", c.Request.URL.Path),
			logger.F("error", err.Error()))
		httpx.WriteError(c, errs.Validation("invalid request format"))
		return false
	}
	return true
}

// logFailure 内部错误记为Error，业务拒绝记为Warn
func (h *HTTPHandler) logFailure(ctx context.Context, msg string, err error, fields ...logger.Field) {
	fields = append(fields, logger.F("error", err.Error()))
	if errs.GetCode(err) == errs.CodeInternal {
		h.log.Error(ctx, msg, fields...)
		return
	}
	h.log.Warn(ctx, msg, fields...)
}

// issueToken 为新注册用户签发token，签发失败只记录日志，用户已创建
func issueToken(ctx context.Context, tokens TokenIssuer, resp *converter.UserResponse, log logger.Logger) {
	if tokens == nil || resp.User == nil {
		return
	}
	token, err := tokens.Issue(resp.User.ID, resp.User.Username)
	if err != nil {
		log.Error(ctx, "Failed to issue token", logger.F("userID", resp.User.ID), logger.F("error", err.Error()))
		return
	}
	resp.Token = token
}
