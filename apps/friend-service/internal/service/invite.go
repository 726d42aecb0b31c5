package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"goim-friend/apps/friend-service/internal/dao"
	"goim-friend/apps/friend-service/internal/model"
	tracecontext "goim-friend/pkg/context"
	"goim-friend/pkg/errs"
	"goim-friend/pkg/logger"
	"goim-friend/pkg/telemetry"
)

// CreateInvite 创建好友邀请
//
// 若对方已有发给自己的待处理邀请，则在同一事务内将双方邀请都置为accepted并建立好友关系。
func (s *Service) CreateInvite(ctx context.Context, ownerID, targetID int64) (invite *model.Invite, err error) {
	ctx, span := telemetry.StartSpan(ctx, "friend.service.CreateInvite")
	defer func() { endSpan(span, err, "invite created successfully") }()

	span.SetAttributes(
		attribute.Int64("invite.owner_id", ownerID),
		attribute.Int64("invite.target_id", targetID),
	)
	ctx = tracecontext.WithUserID(ctx, ownerID)

	if ownerID == targetID {
		return nil, errs.Validation("cannot invite self")
	}

	inviteID, err := s.ids.NextID()
	if err != nil {
		return nil, errs.Internal("failed to generate invite id", err)
	}

	var events []model.Event
	err = s.dao.Transaction(ctx, func(tx dao.FriendDAO) error {
		events = events[:0]
		now := s.now()

		if err := lockPair(ctx, tx, ownerID, targetID); err != nil {
			return err
		}

		isFriend, err := tx.IsFriend(ctx, ownerID, targetID)
		if err != nil {
			return err
		}
		if isFriend {
			return errs.Validation("already friends")
		}

		pending, err := tx.HasPendingInvite(ctx, ownerID, targetID)
		if err != nil {
			return err
		}
		if pending {
			return errs.Conflict("invite already pending")
		}

		invite = &model.Invite{
			ID:        inviteID,
			OwnerID:   ownerID,
			TargetID:  targetID,
			Status:    model.InviteStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateInvite(ctx, invite); err != nil {
			if errors.Is(err, dao.ErrDuplicate) {
				return errs.Conflict("invite already pending")
			}
			return err
		}
		events = append(events, newInviteEvent(model.EventInviteCreated, invite, ownerID, now))

		reverse, err := tx.FindPendingInvites(ctx, targetID, ownerID)
		if err != nil {
			return err
		}
		if len(reverse) == 0 {
			return nil
		}

		// 互相邀请：双方邀请都置为accepted
		for _, r := range reverse {
			if _, err := tx.AnswerPendingInvite(ctx, r.ID, model.InviteStatusAccepted, now); err != nil {
				return err
			}
			r.Status = model.InviteStatusAccepted
			events = append(events, newInviteEvent(model.EventInviteAnswered, r, ownerID, now))
		}
		if _, err := tx.AnswerPendingInvite(ctx, invite.ID, model.InviteStatusAccepted, now); err != nil {
			return err
		}
		invite.Status = model.InviteStatusAccepted
		invite.AnsweredAt = &now
		events = append(events, newInviteEvent(model.EventInviteAnswered, invite, ownerID, now))

		if err := tx.AddFriendPair(ctx, ownerID, targetID); err != nil {
			return err
		}
		events = append(events, newFriendshipEvent(model.EventFriendshipCreated, ownerID, targetID, now))
		return nil
	})
	if err != nil {
		if errs.GetCode(err) == errs.CodeInternal {
			s.logger.Error(ctx, "Failed to create invite",
				logger.F("ownerID", ownerID),
				logger.F("targetID", targetID),
				logger.F("error", err.Error()))
		}
		return nil, asDomainError("failed to create invite", err)
	}

	span.SetAttributes(
		attribute.Int64("invite.id", invite.ID),
		attribute.String("invite.status", string(invite.Status)),
	)
	s.logger.Info(ctx, "Invite created",
		logger.F("inviteID", invite.ID),
		logger.F("ownerID", ownerID),
		logger.F("targetID", targetID),
		logger.F("status", string(invite.Status)))

	s.publish(ctx, events)
	return invite, nil
}

// AnswerInvite 应答好友邀请，只有接收方可以应答，且只能应答一次
func (s *Service) AnswerInvite(ctx context.Context, inviteID, responderID int64, accept bool) (invite *model.Invite, err error) {
	ctx, span := telemetry.StartSpan(ctx, "friend.service.AnswerInvite")
	defer func() { endSpan(span, err, "invite answered successfully") }()

	span.SetAttributes(
		attribute.Int64("invite.id", inviteID),
		attribute.Int64("invite.responder_id", responderID),
		attribute.Bool("invite.accept", accept),
	)
	ctx = tracecontext.WithUserID(ctx, responderID)
	ctx = tracecontext.WithInviteID(ctx, inviteID)

	// 先读出双方ID，事务内按 users -> invites 的顺序加锁
	current, err := s.dao.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, errs.NotFound("invite not found")
		}
		return nil, errs.Internal("failed to get invite", err)
	}

	status := model.DecisionStatus(accept)
	var events []model.Event
	err = s.dao.Transaction(ctx, func(tx dao.FriendDAO) error {
		events = events[:0]
		now := s.now()

		if err := lockPair(ctx, tx, current.OwnerID, current.TargetID); err != nil {
			return err
		}

		locked, err := tx.GetInviteForUpdate(ctx, inviteID)
		if err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				return errs.NotFound("invite not found")
			}
			return err
		}

		if locked.Status != model.InviteStatusPending {
			return errs.Conflict("already answered")
		}
		switch responderID {
		case locked.TargetID:
		case locked.OwnerID:
			return errs.Forbidden("sender cannot answer own invite")
		default:
			return errs.Forbidden("not a party to this invite")
		}

		ok, err := tx.AnswerPendingInvite(ctx, inviteID, status, now)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Conflict("already answered")
		}
		locked.Status = status
		locked.AnsweredAt = &now
		locked.UpdatedAt = now
		events = append(events, newInviteEvent(model.EventInviteAnswered, locked, responderID, now))

		if accept {
			if err := tx.AddFriendPair(ctx, locked.OwnerID, locked.TargetID); err != nil {
				return err
			}
			events = append(events, newFriendshipEvent(model.EventFriendshipCreated, responderID, locked.OwnerID, now))
		}
		invite = locked
		return nil
	})
	if err != nil {
		if errs.GetCode(err) == errs.CodeInternal {
			s.logger.Error(ctx, "Failed to answer invite",
				logger.F("inviteID", inviteID),
				logger.F("responderID", responderID),
				logger.F("error", err.Error()))
		}
		return nil, asDomainError("failed to answer invite", err)
	}

	s.logger.Info(ctx, "Invite answered",
		logger.F("inviteID", inviteID),
		logger.F("responderID", responderID),
		logger.F("status", string(status)))

	s.publish(ctx, events)
	return invite, nil
}

// GetInvite 获取邀请详情，仅邀请双方可见
func (s *Service) GetInvite(ctx context.Context, inviteID, requesterID int64) (*model.Invite, error) {
	invite, err := s.dao.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, errs.NotFound("invite not found")
		}
		return nil, errs.Internal("failed to get invite", err)
	}
	if !invite.IsParty(requesterID) {
		return nil, errs.Forbidden("not a party to this invite")
	}
	return invite, nil
}

// ListInvites 获取与用户相关的全部邀请，按创建时间倒序
func (s *Service) ListInvites(ctx context.Context, userID int64) ([]*model.Invite, error) {
	invites, err := s.dao.ListUserInvites(ctx, userID)
	if err != nil {
		return nil, errs.Internal("failed to list invites", err)
	}
	return invites, nil
}

// ListIncoming 收到的待处理邀请
func (s *Service) ListIncoming(ctx context.Context, userID int64) ([]*model.Invite, error) {
	invites, err := s.dao.ListIncoming(ctx, userID)
	if err != nil {
		return nil, errs.Internal("failed to list incoming invites", err)
	}
	return invites, nil
}

// ListOutgoing 发出的待处理邀请
func (s *Service) ListOutgoing(ctx context.Context, userID int64) ([]*model.Invite, error) {
	invites, err := s.dao.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, errs.Internal("failed to list outgoing invites", err)
	}
	return invites, nil
}
