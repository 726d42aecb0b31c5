package dao

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"goim-friend/apps/friend-service/internal/model"
	"goim-friend/pkg/database"
)

// friendDAO 好友数据访问对象
type friendDAO struct {
	database *database.Database
	db       *gorm.DB
}

// NewFriendDAO 创建好友DAO实例
func NewFriendDAO(db *database.Database) FriendDAO {
	return &friendDAO{database: db, db: db.GetDB()}
}

// Migrate 迁移表结构
func Migrate(db *database.Database) error {
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate friend tables: %w", err)
	}
	return nil
}

// Transaction 在事务中执行
func (d *friendDAO) Transaction(ctx context.Context, fn func(tx FriendDAO) error) error {
	return d.database.Transaction(ctx, func(tx *gorm.DB) error {
		return fn(&friendDAO{database: d.database, db: tx})
	})
}

// ReadTransaction 在快照事务中执行只读查询
func (d *friendDAO) ReadTransaction(ctx context.Context, fn func(tx FriendDAO) error) error {
	return d.database.Transaction(ctx, func(tx *gorm.DB) error {
		return fn(&friendDAO{database: d.database, db: tx})
	}, d.database.SnapshotOptions())
}

// forUpdate PostgreSQL下追加行锁，SQLite单写者无需行锁
func (d *friendDAO) forUpdate(q *gorm.DB) *gorm.DB {
	if d.db.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// CreateUser 创建用户
func (d *friendDAO) CreateUser(ctx context.Context, user *model.User) error {
	if err := d.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser 获取用户
func (d *friendDAO) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	if err := d.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ListUsers 分页获取用户
func (d *friendDAO) ListUsers(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64

	query := d.db.WithContext(ctx).Model(&model.User{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// LockUsers 按ID升序锁定用户行，返回实际存在的用户
func (d *friendDAO) LockUsers(ctx context.Context, userIDs ...int64) ([]*model.User, error) {
	ids := uniqueSorted(userIDs)

	var users []*model.User
	q := d.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC")
	if err := d.forUpdate(q).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to lock users: %w", err)
	}
	return users, nil
}

// AddFriendPair 双向添加好友关系，已存在时忽略
func (d *friendDAO) AddFriendPair(ctx context.Context, userID, friendID int64) error {
	rows := []model.Friend{
		{UserID: userID, FriendID: friendID},
		{UserID: friendID, FriendID: userID},
	}
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to add friend pair: %w", err)
	}
	return nil
}

// RemoveFriendPair 双向删除好友关系，返回删除的行数
func (d *friendDAO) RemoveFriendPair(ctx context.Context, userID, friendID int64) (int64, error) {
	result := d.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", userID, friendID, friendID, userID).
		Delete(&model.Friend{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to remove friend pair: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// IsFriend 检查是否为好友
func (d *friendDAO) IsFriend(ctx context.Context, userID, friendID int64) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&model.Friend{}).
		Where("user_id = ? AND friend_id = ?", userID, friendID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check friend: %w", err)
	}
	return count > 0, nil
}

// ListFriends 获取好友列表
func (d *friendDAO) ListFriends(ctx context.Context, userID int64) ([]*model.User, error) {
	var users []*model.User
	if err := d.db.WithContext(ctx).
		Joins("JOIN friends ON friends.friend_id = users.id").
		Where("friends.user_id = ?", userID).
		Order("users.username ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return users, nil
}

// CreateInvite 创建邀请
func (d *friendDAO) CreateInvite(ctx context.Context, invite *model.Invite) error {
	if err := d.db.WithContext(ctx).Create(invite).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// GetInvite 获取邀请
func (d *friendDAO) GetInvite(ctx context.Context, inviteID int64) (*model.Invite, error) {
	return d.getInvite(d.db.WithContext(ctx), inviteID)
}

// GetInviteForUpdate 获取并锁定邀请
func (d *friendDAO) GetInviteForUpdate(ctx context.Context, inviteID int64) (*model.Invite, error) {
	return d.getInvite(d.forUpdate(d.db.WithContext(ctx)), inviteID)
}

func (d *friendDAO) getInvite(q *gorm.DB, inviteID int64) (*model.Invite, error) {
	var invite model.Invite
	if err := q.First(&invite, inviteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return &invite, nil
}

// HasPendingInvite 是否存在待处理的 owner->target 邀请
func (d *friendDAO) HasPendingInvite(ctx context.Context, ownerID, targetID int64) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&model.Invite{}).
		Where("owner_id = ? AND target_id = ? AND status = ?", ownerID, targetID, model.InviteStatusPending).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check pending invite: %w", err)
	}
	return count > 0, nil
}

// FindPendingInvites 查找并锁定待处理的 owner->target 邀请
func (d *friendDAO) FindPendingInvites(ctx context.Context, ownerID, targetID int64) ([]*model.Invite, error) {
	var invites []*model.Invite
	q := d.db.WithContext(ctx).
		Where("owner_id = ? AND target_id = ? AND status = ?", ownerID, targetID, model.InviteStatusPending).
		Order("id ASC")
	if err := d.forUpdate(q).Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("failed to find pending invites: %w", err)
	}
	return invites, nil
}

// AnswerPendingInvite 仅当邀请仍为pending时更新状态（compare-and-set），返回是否更新成功
func (d *friendDAO) AnswerPendingInvite(ctx context.Context, inviteID int64, status model.InviteStatus, at time.Time) (bool, error) {
	result := d.db.WithContext(ctx).Model(&model.Invite{}).
		Where("id = ? AND status = ?", inviteID, model.InviteStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"answered_at": at,
			"updated_at":  at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to answer invite: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListIncoming 收到的待处理邀请
func (d *friendDAO) ListIncoming(ctx context.Context, userID int64) ([]*model.Invite, error) {
	return d.listInvites(ctx, "target_id = ? AND status = ?", userID, model.InviteStatusPending)
}

// ListOutgoing 发出的待处理邀请
func (d *friendDAO) ListOutgoing(ctx context.Context, userID int64) ([]*model.Invite, error) {
	return d.listInvites(ctx, "owner_id = ? AND status = ?", userID, model.InviteStatusPending)
}

// ListUserInvites 与用户相关的全部邀请
func (d *friendDAO) ListUserInvites(ctx context.Context, userID int64) ([]*model.Invite, error) {
	return d.listInvites(ctx, "owner_id = ? OR target_id = ?", userID, userID)
}

func (d *friendDAO) listInvites(ctx context.Context, where string, args ...interface{}) ([]*model.Invite, error) {
	var invites []*model.Invite
	if err := d.db.WithContext(ctx).Where(where, args...).
		Order("created_at DESC, id DESC").
		Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

// uniqueSorted 去重并升序排列
func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
