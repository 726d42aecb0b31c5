package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"goim-friend/apps/friend-service/internal/model"
	"goim-friend/pkg/logger"
)

func newInviteEvent(eventType string, invite *model.Invite, actorID int64, at time.Time) model.Event {
	peerID := invite.TargetID
	if actorID == invite.TargetID {
		peerID = invite.OwnerID
	}
	return model.Event{
		Type:      eventType,
		InviteID:  invite.ID,
		ActorID:   actorID,
		PeerID:    peerID,
		Status:    string(invite.Status),
		Timestamp: at.UnixMilli(),
	}
}

func newFriendshipEvent(eventType string, actorID, peerID int64, at time.Time) model.Event {
	return model.Event{
		Type:      eventType,
		ActorID:   actorID,
		PeerID:    peerID,
		Timestamp: at.UnixMilli(),
	}
}

// pairKey 按用户对生成消息key，保证同一对用户的事件落在同一分区
func pairKey(a, b int64) []byte {
	if a > b {
		a, b = b, a
	}
	return []byte(fmt.Sprintf("%d:%d", a, b))
}

// publish 事务提交后发送事件，失败只记录日志
func (s *Service) publish(ctx context.Context, events []model.Event) {
	if s.publisher == nil {
		return
	}
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			s.logger.Error(ctx, "Failed to marshal event",
				logger.F("type", event.Type),
				logger.F("error", err.Error()))
			continue
		}
		if err := s.publisher.SendMessage(s.topic, pairKey(event.ActorID, event.PeerID), value); err != nil {
			s.logger.Warn(ctx, "Failed to publish event",
				logger.F("type", event.Type),
				logger.F("topic", s.topic),
				logger.F("error", err.Error()))
		}
	}
}
