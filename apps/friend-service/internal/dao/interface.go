package dao

import (
	"context"
	"errors"
	"time"

	"goim-friend/apps/friend-service/internal/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// ErrDuplicate 唯一约束冲突
var ErrDuplicate = errors.New("duplicate record")

// FriendDAO 好友数据访问接口
//
// 写操作需要在Transaction内执行：先按ID升序锁定双方用户行，再读写邀请，
// 所有写路径的加锁顺序一致（users -> invites）。
type FriendDAO interface {
	// Transaction 在事务中执行fn，fn收到的FriendDAO绑定到该事务
	Transaction(ctx context.Context, fn func(tx FriendDAO) error) error
	// ReadTransaction 在只读快照事务中执行fn，多次查询看到同一时刻的数据
	ReadTransaction(ctx context.Context, fn func(tx FriendDAO) error) error

	// 用户管理
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]*model.User, int64, error)
	LockUsers(ctx context.Context, userIDs ...int64) ([]*model.User, error)

	// 好友关系管理
	AddFriendPair(ctx context.Context, userID, friendID int64) error
	RemoveFriendPair(ctx context.Context, userID, friendID int64) (int64, error)
	IsFriend(ctx context.Context, userID, friendID int64) (bool, error)
	ListFriends(ctx context.Context, userID int64) ([]*model.User, error)

	// 好友邀请管理
	CreateInvite(ctx context.Context, invite *model.Invite) error
	GetInvite(ctx context.Context, inviteID int64) (*model.Invite, error)
	GetInviteForUpdate(ctx context.Context, inviteID int64) (*model.Invite, error)
	HasPendingInvite(ctx context.Context, ownerID, targetID int64) (bool, error)
	FindPendingInvites(ctx context.Context, ownerID, targetID int64) ([]*model.Invite, error)
	AnswerPendingInvite(ctx context.Context, inviteID int64, status model.InviteStatus, at time.Time) (bool, error)
	ListIncoming(ctx context.Context, userID int64) ([]*model.Invite, error)
	ListOutgoing(ctx context.Context, userID int64) ([]*model.Invite, error)
	ListUserInvites(ctx context.Context, userID int64) ([]*model.Invite, error)
}
