package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"goim-friend/apps/friend-service/internal/dao"
	"goim-friend/apps/friend-service/internal/model"
	tracecontext "goim-friend/pkg/context"
	"goim-friend/pkg/errs"
	"goim-friend/pkg/logger"
	"goim-friend/pkg/telemetry"
)

// GetFriendStatus 从viewer视角查询与other的关系
//
// 优先级：is_friends > is_incoming > is_outgoing > not_friends
func (s *Service) GetFriendStatus(ctx context.Context, viewerID, otherID int64) (status model.FriendStatus, err error) {
	ctx, span := telemetry.StartSpan(ctx, "friend.service.GetFriendStatus")
	defer func() { endSpan(span, err, "friend status queried successfully") }()

	span.SetAttributes(
		attribute.Int64("friend.viewer_id", viewerID),
		attribute.Int64("friend.other_id", otherID),
	)

	if viewerID == otherID {
		return "", errs.Validation("cannot query self")
	}
	// 三次查询在同一快照内完成
	err = s.dao.ReadTransaction(ctx, func(tx dao.FriendDAO) error {
		if err := requireUser(ctx, tx, viewerID); err != nil {
			return err
		}
		if err := requireUser(ctx, tx, otherID); err != nil {
			return err
		}
		st, err := friendStatus(ctx, tx, viewerID, otherID)
		status = st
		return err
	})
	if err != nil {
		return "", asDomainError("failed to query friend status", err)
	}
	return status, nil
}

// friendStatus 按优先级依次判断好友、收到的邀请、发出的邀请
func friendStatus(ctx context.Context, tx dao.FriendDAO, viewerID, otherID int64) (model.FriendStatus, error) {
	isFriend, err := tx.IsFriend(ctx, viewerID, otherID)
	if err != nil {
		return "", errs.Internal("failed to check friendship", err)
	}
	if isFriend {
		return model.FriendStatusIsFriends, nil
	}

	incoming, err := tx.HasPendingInvite(ctx, otherID, viewerID)
	if err != nil {
		return "", errs.Internal("failed to check incoming invite", err)
	}
	if incoming {
		return model.FriendStatusIncoming, nil
	}

	outgoing, err := tx.HasPendingInvite(ctx, viewerID, otherID)
	if err != nil {
		return "", errs.Internal("failed to check outgoing invite", err)
	}
	if outgoing {
		return model.FriendStatusOutgoing, nil
	}

	return model.FriendStatusNotFriends, nil
}

// Unfriend 解除好友关系，双向删除，不修改邀请记录
func (s *Service) Unfriend(ctx context.Context, requesterID, otherID int64) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "friend.service.Unfriend")
	defer func() { endSpan(span, err, "friendship removed successfully") }()

	span.SetAttributes(
		attribute.Int64("friend.requester_id", requesterID),
		attribute.Int64("friend.other_id", otherID),
	)
	ctx = tracecontext.WithUserID(ctx, requesterID)

	if requesterID == otherID {
		return errs.Validation("not friends")
	}

	var events []model.Event
	err = s.dao.Transaction(ctx, func(tx dao.FriendDAO) error {
		events = events[:0]

		if err := lockPair(ctx, tx, requesterID, otherID); err != nil {
			return err
		}

		isFriend, err := tx.IsFriend(ctx, requesterID, otherID)
		if err != nil {
			return err
		}
		if !isFriend {
			return errs.Validation("not friends")
		}

		if _, err := tx.RemoveFriendPair(ctx, requesterID, otherID); err != nil {
			return err
		}
		events = append(events, newFriendshipEvent(model.EventFriendshipRemoved, requesterID, otherID, s.now()))
		return nil
	})
	if err != nil {
		if errs.GetCode(err) == errs.CodeInternal {
			s.logger.Error(ctx, "Failed to remove friendship",
				logger.F("requesterID", requesterID),
				logger.F("otherID", otherID),
				logger.F("error", err.Error()))
		}
		return asDomainError("failed to remove friendship", err)
	}

	s.logger.Info(ctx, "Friendship removed",
		logger.F("requesterID", requesterID),
		logger.F("otherID", otherID))

	s.publish(ctx, events)
	return nil
}

// ListFriends 获取好友列表
func (s *Service) ListFriends(ctx context.Context, userID int64) ([]*model.User, error) {
	if err := requireUser(ctx, s.dao, userID); err != nil {
		return nil, err
	}
	friends, err := s.dao.ListFriends(ctx, userID)
	if err != nil {
		return nil, errs.Internal("failed to list friends", err)
	}
	return friends, nil
}
