package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"goim-friend/apps/friend-service/internal/dao"
	"goim-friend/pkg/errs"
	"goim-friend/pkg/logger"
)

// IDGenerator 分布式ID生成器
type IDGenerator interface {
	NextID() (int64, error)
}

// EventPublisher 事件发布者，kafka.Producer 实现了该接口
type EventPublisher interface {
	SendMessage(topic string, key, value []byte) error
}

// Service 好友服务
type Service struct {
	dao       dao.FriendDAO
	ids       IDGenerator
	publisher EventPublisher
	topic     string
	logger    logger.Logger
	now       func() time.Time
}

// NewService 创建好友服务实例，publisher 为 nil 时不发送事件
func NewService(friendDAO dao.FriendDAO, ids IDGenerator, publisher EventPublisher, topic string, log logger.Logger) *Service {
	return &Service{
		dao:       friendDAO,
		ids:       ids,
		publisher: publisher,
		topic:     topic,
		logger:    log,
		now:       time.Now,
	}
}

// lockPair 在事务内按ID升序锁定双方用户，任意一方不存在返回 NotFound
func lockPair(ctx context.Context, tx dao.FriendDAO, a, b int64) error {
	users, err := tx.LockUsers(ctx, a, b)
	if err != nil {
		return err
	}
	if len(users) < 2 {
		return errs.NotFound("user not found")
	}
	return nil
}

// requireUser 校验用户存在
func requireUser(ctx context.Context, d dao.FriendDAO, userID int64) error {
	if _, err := d.GetUser(ctx, userID); err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return errs.NotFound("user not found")
		}
		return errs.Internal("failed to get user", err)
	}
	return nil
}

// asDomainError 业务错误原样返回，其余包装为内部错误
func asDomainError(msg string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Internal(msg, err)
}

// endSpan 根据结果设置span状态
func endSpan(span trace.Span, err error, okMsg string) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errs.PublicMessage(err))
	} else {
		span.SetStatus(codes.Ok, okMsg)
	}
	span.End()
}
