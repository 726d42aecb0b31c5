package converter

import (
	"fmt"
	"strconv"
	"strings"
)

// ID 64位ID，解码时兼容数字和字符串两种写法
type ID int64

// UnmarshalJSON .
func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	*id = ID(v)
	return nil
}

// Int64 .
func (id ID) Int64() int64 {
	return int64(id)
}

// RegisterRequest 注册用户请求
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,max=150"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

// GetUserRequest 获取用户请求，user_id为空时返回自己
type GetUserRequest struct {
	UserID ID `json:"user_id" binding:"gte=0"`
}

// ListUsersRequest 用户列表请求
type ListUsersRequest struct {
	Page     int `json:"page" binding:"gte=0"`
	PageSize int `json:"page_size" binding:"gte=0"`
}

// CreateInviteRequest 创建邀请请求
type CreateInviteRequest struct {
	Target   ID    `json:"target" binding:"required,gt=0"`
	IsAccept *bool `json:"is_accept"`
}

// AnswerInviteRequest 应答邀请请求
type AnswerInviteRequest struct {
	InviteID ID    `json:"invite_id" binding:"required,gt=0"`
	IsAccept *bool `json:"is_accept" binding:"required"`
}

// GetInviteRequest 获取邀请请求
type GetInviteRequest struct {
	InviteID ID `json:"invite_id" binding:"required,gt=0"`
}

// FriendRequest 针对另一个用户的好友操作请求
type FriendRequest struct {
	UserID ID `json:"user_id" binding:"required,gt=0"`
}

// EmptyRequest 无参数请求
type EmptyRequest struct{}

// UserDTO 用户
type UserDTO struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CreatedAt int64  `json:"created_at"`
}

// InviteDTO 邀请，is_accept为status的三态投影
type InviteDTO struct {
	ID         int64  `json:"id"`
	Owner      int64  `json:"owner"`
	Target     int64  `json:"target"`
	Status     string `json:"status"`
	IsAccept   *bool  `json:"is_accept"`
	CreatedAt  int64  `json:"created_at"`
	AnsweredAt *int64 `json:"answered_at"`
}

// BaseResponse 通用响应
type BaseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserResponse 用户响应
type UserResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	User    *UserDTO `json:"user,omitempty"`
	Token   string   `json:"token,omitempty"` // 仅注册时返回
}

// UserListResponse 用户列表响应
type UserListResponse struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	Users    []*UserDTO `json:"users"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// InviteResponse 邀请响应
type InviteResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Invite  *InviteDTO `json:"invite,omitempty"`
}

// InviteListResponse 邀请列表响应
type InviteListResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Invites []*InviteDTO `json:"invites"`
}

// FriendStatusResponse 好友状态响应
type FriendStatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// FriendListResponse 好友列表响应
type FriendListResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Friends []*UserDTO `json:"friends"`
}
