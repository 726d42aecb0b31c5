package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"goim-friend/apps/friend-service/internal/converter"
	"goim-friend/apps/friend-service/internal/service"
	tracecontext "goim-friend/pkg/context"
	"goim-friend/pkg/errs"
	"goim-friend/pkg/logger"
)

// FriendServiceName gRPC服务名
const FriendServiceName = "goim.friend.v1.FriendService"

// FriendServiceServer 好友gRPC服务，请求和响应均为 google.protobuf.Struct
type FriendServiceServer interface {
	CreateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CreateInvite(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	AnswerInvite(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetInvite(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListInvites(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetFriendStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Unfriend(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListIncoming(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListOutgoing(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListFriends(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(FriendServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryMethod 构造一元方法描述
func unaryMethod(name string, call structMethod) grpc.MethodDesc {
	fullMethod := "/" + FriendServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(FriendServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(FriendServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FriendServiceDesc gRPC服务描述
var FriendServiceDesc = grpc.ServiceDesc{
	ServiceName: FriendServiceName,
	HandlerType: (*FriendServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateUser", FriendServiceServer.CreateUser),
		unaryMethod("CreateInvite", FriendServiceServer.CreateInvite),
		unaryMethod("AnswerInvite", FriendServiceServer.AnswerInvite),
		unaryMethod("GetInvite", FriendServiceServer.GetInvite),
		unaryMethod("ListInvites", FriendServiceServer.ListInvites),
		unaryMethod("GetFriendStatus", FriendServiceServer.GetFriendStatus),
		unaryMethod("Unfriend", FriendServiceServer.Unfriend),
		unaryMethod("ListIncoming", FriendServiceServer.ListIncoming),
		unaryMethod("ListOutgoing", FriendServiceServer.ListOutgoing),
		unaryMethod("ListFriends", FriendServiceServer.ListFriends),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterFriendServiceServer 注册好友gRPC服务
func RegisterFriendServiceServer(s grpc.ServiceRegistrar, srv FriendServiceServer) {
	s.RegisterService(&FriendServiceDesc, srv)
}

// GRPCHandler gRPC协议处理器
type GRPCHandler struct {
	svc       *service.Service
	converter *converter.Converter
	tokens    TokenIssuer
	log       logger.Logger
}

// NewGRPCHandler 创建gRPC处理器，tokens 为 nil 时注册不返回token
func NewGRPCHandler(svc *service.Service, tokens TokenIssuer, log logger.Logger) *GRPCHandler {
	return &GRPCHandler{
		svc:       svc,
		converter: converter.NewConverter(),
		tokens:    tokens,
		log:       log,
	}
}

// requester 从认证后的上下文获取用户ID
func (g *GRPCHandler) requester(ctx context.Context) (int64, error) {
	userID := tracecontext.GetUserID(ctx)
	if userID <= 0 {
		return 0, errs.Unauthorized("authentication required")
	}
	return userID, nil
}

func (g *GRPCHandler) reply(ctx context.Context, v interface{}) (*structpb.Struct, error) {
	out, err := g.converter.ToStruct(v)
	if err != nil {
		g.log.Error(ctx, "Failed to encode gRPC response", logger.F("error", err.Error()))
		return nil, errs.Internal("failed to encode response", err)
	}
	return out, nil
}

// CreateUser 注册用户
func (g *GRPCHandler) CreateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req converter.RegisterRequest
	if err := g.converter.FromStruct(in, &req); err != nil {
		return nil, err
	}
	user, err := g.svc.CreateUser(ctx, req.Username, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	resp := g.converter.BuildUserResponse(user, nil, "user registered")
	issueToken(ctx, g.tokens, resp, g.log)
	return g.reply(ctx, resp)
}

// CreateInvite 发送好友邀请
func (g *GRPCHandler) CreateInvite(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := g.requester(ctx)
	if err != nil {
		return nil, err
	}
	var req converter.CreateInviteRequest
	if err := g.converter.FromStruct(in, &req); err != nil {
		return nil, err
	}
	if req.IsAccept != nil {
		return nil, errPresetAnswer
	}
	invite, err := g.svc.CreateInvite(ctx, requesterID, req.Target.Int64())
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, g.converter.BuildInviteResponse(invite, nil, "invite created"))
}

// AnswerInvite 应答好友邀请
func (g *GRPCHandler) AnswerInvite(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := g.requester(ctx)
	if err != nil {
		return nil, err
	}
	var req converter.AnswerInviteRequest
	if err := g.converter.FromStruct(in, &req); err != nil {
		return nil, err
	}
	invite, err := g.svc.AnswerInvite(ctx, req.InviteID.Int64(), requesterID, *req.IsAccept)
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, g.converter.BuildInviteResponse(invite, nil, "invite answered"))
}

// GetInvite 邀请详情
func (g *GRPCHandler) GetInvite(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := g.requester(ctx)
	if err != nil {
		return nil, err
	}
	var req converter.GetInviteRequest
	if err := g.converter.FromStruct(in, &req); err != nil {
		return nil, err
	}
	invite, err := g.svc.GetInvite(ctx, req.InviteID.Int64(), requesterID)
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, g.converter.BuildInviteResponse(invite, nil, "ok"))
}

// ListInvites 与我相关的全部邀请
func (g *GRPCHandler) ListInvites(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := g.requester(ctx)
	if err != nil {
		return nil, err
	}
	invites, err := g.svc.ListInvites(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, g.converter.BuildInviteListResponse(invites, nil))
}

// GetFriendStatus 查询好友状态
func (g *GRPCHandler) GetFriendStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := g.requester(ctx)
	if err != nil {
		return nil, err
	}
	var req converter.FriendRequest
	if err := g.converter.FromStruct(in, &req); err != nil {
		return nil, err
	}
	status, err := g.svc.GetFriendStatus(ctx, requesterID, req.UserID.Int64())
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, g.converter.BuildFriendStatusResponse(status, nil))
}

// Unfriend 删除好友
func (g *GRPCHandler) Unfriend(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := g.requester(ctx)
	if err != nil {
		return nil, err
	}
	var req converter.FriendRequest
	if err := g.converter.FromStruct(in, &req); err != nil {
		return nil, err
	}
	if err := g.svc.Unfriend(ctx, requesterID, req.UserID.Int64()); err != nil {
		return nil, err
	}
	return g.reply(ctx, g.converter.BuildBaseResponse(nil, "friend removed"))
}

// ListIncoming 收到的待处理邀请
func (g *GRPCHandler) ListIncoming(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := g.requester(ctx)
	if err != nil {
		return nil, err
	}
	invites, err := g.svc.ListIncoming(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, g.converter.BuildInviteListResponse(invites, nil))
}

// ListOutgoing 发出的待处理邀请
func (g *GRPCHandler) ListOutgoing(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := g.requester(ctx)
	if err != nil {
		return nil, err
	}
	invites, err := g.svc.ListOutgoing(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, g.converter.BuildInviteListResponse(invites, nil))
}

// ListFriends 我的好友列表
func (g *GRPCHandler) ListFriends(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := g.requester(ctx)
	if err != nil {
		return nil, err
	}
	friends, err := g.svc.ListFriends(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, g.converter.BuildFriendListResponse(friends, nil))
}
