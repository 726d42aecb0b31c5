package converter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"google.golang.org/protobuf/types/known/structpb"

	"goim-friend/apps/friend-service/internal/model"
	"goim-friend/pkg/errs"
)

// float64 能精确表示的最大整数
const maxSafeInteger = 1<<53 - 1

// Converter 转换器，提供Model到响应结构的转换
type Converter struct {
	once     sync.Once
	validate *validator.Validate
}

// NewConverter 创建转换器实例
func NewConverter() *Converter {
	return &Converter{}
}

// UserModelToDTO 将用户Model转换为DTO
func (c *Converter) UserModelToDTO(user *model.User) *UserDTO {
	if user == nil {
		return nil
	}
	return &UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt.Unix(),
	}
}

// UserModelsToDTO 将用户Model列表转换为DTO列表
func (c *Converter) UserModelsToDTO(users []*model.User) []*UserDTO {
	result := make([]*UserDTO, 0, len(users))
	for _, user := range users {
		if dto := c.UserModelToDTO(user); dto != nil {
			result = append(result, dto)
		}
	}
	return result
}

// InviteModelToDTO 将邀请Model转换为DTO
func (c *Converter) InviteModelToDTO(invite *model.Invite) *InviteDTO {
	if invite == nil {
		return nil
	}
	dto := &InviteDTO{
		ID:        invite.ID,
		Owner:     invite.OwnerID,
		Target:    invite.TargetID,
		Status:    string(invite.Status),
		IsAccept:  invite.Status.IsAccept(),
		CreatedAt: invite.CreatedAt.Unix(),
	}
	if invite.AnsweredAt != nil {
		answeredAt := invite.AnsweredAt.Unix()
		dto.AnsweredAt = &answeredAt
	}
	return dto
}

// InviteModelsToDTO 将邀请Model列表转换为DTO列表
func (c *Converter) InviteModelsToDTO(invites []*model.Invite) []*InviteDTO {
	result := make([]*InviteDTO, 0, len(invites))
	for _, invite := range invites {
		if dto := c.InviteModelToDTO(invite); dto != nil {
			result = append(result, dto)
		}
	}
	return result
}

// BuildInviteResponse 构建邀请响应
func (c *Converter) BuildInviteResponse(invite *model.Invite, err error, okMsg string) *InviteResponse {
	if err != nil {
		return &InviteResponse{Success: false, Message: errs.PublicMessage(err)}
	}
	return &InviteResponse{Success: true, Message: okMsg, Invite: c.InviteModelToDTO(invite)}
}

// BuildInviteListResponse 构建邀请列表响应
func (c *Converter) BuildInviteListResponse(invites []*model.Invite, err error) *InviteListResponse {
	if err != nil {
		return &InviteListResponse{Success: false, Message: errs.PublicMessage(err), Invites: []*InviteDTO{}}
	}
	return &InviteListResponse{Success: true, Message: "ok", Invites: c.InviteModelsToDTO(invites)}
}

// BuildFriendStatusResponse 构建好友状态响应
func (c *Converter) BuildFriendStatusResponse(status model.FriendStatus, err error) *FriendStatusResponse {
	if err != nil {
		return &FriendStatusResponse{Success: false, Message: errs.PublicMessage(err)}
	}
	return &FriendStatusResponse{Success: true, Message: "ok", Status: string(status)}
}

// BuildFriendListResponse 构建好友列表响应
func (c *Converter) BuildFriendListResponse(friends []*model.User, err error) *FriendListResponse {
	if err != nil {
		return &FriendListResponse{Success: false, Message: errs.PublicMessage(err), Friends: []*UserDTO{}}
	}
	return &FriendListResponse{Success: true, Message: "ok", Friends: c.UserModelsToDTO(friends)}
}

// BuildUserResponse 构建用户响应
func (c *Converter) BuildUserResponse(user *model.User, err error, okMsg string) *UserResponse {
	if err != nil {
		return &UserResponse{Success: false, Message: errs.PublicMessage(err)}
	}
	return &UserResponse{Success: true, Message: okMsg, User: c.UserModelToDTO(user)}
}

// BuildBaseResponse 构建通用响应
func (c *Converter) BuildBaseResponse(err error, okMsg string) *BaseResponse {
	if err != nil {
		return &BaseResponse{Success: false, Message: errs.PublicMessage(err)}
	}
	return &BaseResponse{Success: true, Message: okMsg}
}

// Validate 按 binding 标签校验请求，与gin的绑定校验规则一致
func (c *Converter) Validate(req interface{}) error {
	c.once.Do(func() {
		c.validate = validator.New()
		c.validate.SetTagName("binding")
	})
	if err := c.validate.Struct(req); err != nil {
		return errs.Validation(fmt.Sprintf("invalid request: %v", err))
	}
	return nil
}

// FromStruct 将 structpb.Struct 解码到请求结构
func (c *Converter) FromStruct(s *structpb.Struct, out interface{}) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return errs.Validation("invalid request payload")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.Validation(fmt.Sprintf("invalid request payload: %v", err))
	}
	return c.Validate(out)
}

// ToStruct 将响应结构编码为 structpb.Struct，超出float64精度的整数编码为字符串
func (c *Converter) ToStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	normalizeNumbers(m)
	return structpb.NewStruct(m)
}

func normalizeNumbers(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
		return x
	case []interface{}:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			if i > maxSafeInteger || i < -maxSafeInteger {
				return x.String()
			}
			return float64(i)
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	}
	return v
}
