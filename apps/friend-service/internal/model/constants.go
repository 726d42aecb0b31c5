package model

// 默认配置
const (
	DefaultPageSize   = 20
	MaxPageSize       = 100
	MaxUsernameLength = 150
)

// NormalizePage 规范化分页参数，page从1开始
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// InviteStatus 邀请状态，只能从pending迁移一次
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
)

// IsAccept 三态投影：pending为nil，accepted为true，declined为false
func (s InviteStatus) IsAccept() *bool {
	var v bool
	switch s {
	case InviteStatusAccepted:
		v = true
	case InviteStatusDeclined:
		v = false
	default:
		return nil
	}
	return &v
}

// Valid 是否为合法状态
func (s InviteStatus) Valid() bool {
	switch s {
	case InviteStatusPending, InviteStatusAccepted, InviteStatusDeclined:
		return true
	}
	return false
}

// DecisionStatus 应答结果对应的状态
func DecisionStatus(accept bool) InviteStatus {
	if accept {
		return InviteStatusAccepted
	}
	return InviteStatusDeclined
}

// FriendStatus 从viewer视角看到的关系
type FriendStatus string

const (
	FriendStatusNotFriends FriendStatus = "not_friends"
	FriendStatusIsFriends  FriendStatus = "is_friends"
	FriendStatusIncoming   FriendStatus = "is_incoming"
	FriendStatusOutgoing   FriendStatus = "is_outgoing"
)

// 事件类型
const (
	EventInviteCreated     = "invite.created"
	EventInviteAnswered    = "invite.answered"
	EventFriendshipCreated = "friendship.created"
	EventFriendshipRemoved = "friendship.removed"
)
