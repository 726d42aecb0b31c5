package client

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	kratoslog "github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// newEchoServer 回显任意方法的请求，附带方法名和authorization元数据
func newEchoServer(t *testing.T) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ interface{}, stream grpc.ServerStream) error {
		in := new(structpb.Struct)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		if in.Fields == nil {
			in.Fields = map[string]*structpb.Value{}
		}
		method, _ := grpc.MethodFromServerStream(stream)
		in.Fields["method"] = structpb.NewStringValue(method)
		if md, ok := metadata.FromIncomingContext(stream.Context()); ok && len(md.Get("authorization")) > 0 {
			in.Fields["authorization"] = structpb.NewStringValue(md.Get("authorization")[0])
		}
		return stream.SendMsg(in)
	}))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis
}

func newTestManager(lis *bufconn.Listener, opts ...grpc.DialOption) *ClientManager {
	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	return NewClientManager(kratoslog.NewStdLogger(io.Discard), append([]grpc.DialOption{dialer}, opts...)...)
}

func TestGetGRPCClientReusesConnection(t *testing.T) {
	cm := newTestManager(newEchoServer(t))

	a, err := cm.GetGRPCClient("passthrough:///bufnet")
	require.NoError(t, err)
	b, err := cm.GetGRPCClient("passthrough:///bufnet")
	require.NoError(t, err)
	assert.Same(t, a, b)

	require.NoError(t, cm.CloseAll())
	c, err := cm.GetGRPCClient("passthrough:///bufnet")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	require.NoError(t, cm.CloseAll())
}

func TestFriendClientCallsServiceMethod(t *testing.T) {
	cm := newTestManager(newEchoServer(t), WithBearerToken("abc"))
	t.Cleanup(func() { _ = cm.CloseAll() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := cm.GetGRPCClientWithRetry(ctx, "passthrough:///bufnet", 2)
	require.NoError(t, err)

	out, err := NewFriendClient(conn).Call(ctx, "GetFriendStatus", map[string]interface{}{"user_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/goim.friend.v1.FriendService/GetFriendStatus", out.Fields["method"].GetStringValue())
	assert.Equal(t, "Bearer abc", out.Fields["authorization"].GetStringValue())
	assert.Equal(t, "42", out.Fields["user_id"].GetStringValue())
}

func TestFriendClientNilRequest(t *testing.T) {
	cm := newTestManager(newEchoServer(t))
	t.Cleanup(func() { _ = cm.CloseAll() })

	conn, err := cm.GetGRPCClient("passthrough:///bufnet")
	require.NoError(t, err)

	out, err := NewFriendClient(conn).Call(context.Background(), "ListFriends", nil)
	require.NoError(t, err)
	_, hasAuth := out.Fields["authorization"]
	assert.False(t, hasAuth)
}
