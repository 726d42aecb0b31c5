package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const friendServicePrefix = "/goim.friend.v1.FriendService/"

// FriendClient 好友服务gRPC客户端，载荷为 google.protobuf.Struct
type FriendClient struct {
	cc grpc.ClientConnInterface
}

// NewFriendClient 创建好友服务客户端
func NewFriendClient(cc grpc.ClientConnInterface) *FriendClient {
	return &FriendClient{cc: cc}
}

// Call 调用指定方法，req 为空时发送空对象
func (c *FriendClient) Call(ctx context.Context, method string, req map[string]interface{}) (*structpb.Struct, error) {
	if req == nil {
		req = map[string]interface{}{}
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("invalid request payload: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, friendServicePrefix+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}
