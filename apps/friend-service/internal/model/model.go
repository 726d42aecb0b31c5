package model

import "time"

// User 用户
type User struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Username  string    `json:"username" gorm:"type:varchar(150);not null;uniqueIndex"`
	FirstName string    `json:"first_name" gorm:"type:varchar(150)"`
	LastName  string    `json:"last_name" gorm:"type:varchar(150)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName .
func (User) TableName() string {
	return "users"
}

// Friend 好友关系，每对好友两行（双向各一行）
type Friend struct {
	UserID    int64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	FriendID  int64     `json:"friend_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName .
func (Friend) TableName() string {
	return "friends"
}

// Invite 好友邀请，只追加不删除，作为历史记录保留
type Invite struct {
	ID         int64        `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OwnerID    int64        `json:"owner" gorm:"not null;index:idx_invites_owner;uniqueIndex:idx_invites_pending_pair,where:status = 'pending'"`
	TargetID   int64        `json:"target" gorm:"not null;index:idx_invites_target;uniqueIndex:idx_invites_pending_pair,where:status = 'pending'"`
	Status     InviteStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	CreatedAt  time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
	AnsweredAt *time.Time   `json:"answered_at"`
}

// TableName .
func (Invite) TableName() string {
	return "invites"
}

// IsParty 用户是否为邀请的发起方或接收方
func (i *Invite) IsParty(userID int64) bool {
	return userID == i.OwnerID || userID == i.TargetID
}

// Event 领域事件，提交成功后发送到Kafka
type Event struct {
	Type      string `json:"type"`
	InviteID  int64  `json:"invite_id,omitempty"`
	ActorID   int64  `json:"actor_id"`
	PeerID    int64  `json:"peer_id"`
	Status    string `json:"status,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// AllModels 需要迁移的表
func AllModels() []interface{} {
	return []interface{}{&User{}, &Friend{}, &Invite{}}
}
