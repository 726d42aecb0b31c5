package handler

import (
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	kratoslog "github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"goim-friend/pkg/auth"
	"goim-friend/pkg/logger"
	"goim-friend/pkg/middleware"
)

type grpcClient struct {
	t    *testing.T
	conn *grpc.ClientConn
}

func newGRPCClient(t *testing.T) *grpcClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	am := middleware.NewAuthMiddleware(kratoslog.NewStdLogger(io.Discard), testSecret)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(am.GRPCAuth(), middleware.GRPCErrorMapping()))
	RegisterFriendServiceServer(srv, NewGRPCHandler(newTestService(t), auth.NewIssuer(testSecret, time.Hour), logger.NewNopLogger()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &grpcClient{t: t, conn: conn}
}

func (c *grpcClient) invoke(method string, userID int64, in map[string]interface{}) (*structpb.Struct, error) {
	c.t.Helper()
	ctx := context.Background()
	if userID != 0 {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tokenFor(c.t, userID))
	}
	req, err := structpb.NewStruct(in)
	require.NoError(c.t, err)
	out := new(structpb.Struct)
	err = c.conn.Invoke(ctx, "/"+FriendServiceName+"/"+method, req, out)
	return out, err
}

// userID 响应中的ID可能是数字或字符串
func userID(t *testing.T, resp *structpb.Struct) string {
	t.Helper()
	user := resp.Fields["user"].GetStructValue()
	require.NotNil(t, user)
	return idString(user.Fields["id"])
}

func idString(v *structpb.Value) string {
	if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
		return s.StringValue
	}
	return strconv.FormatInt(int64(v.GetNumberValue()), 10)
}

func parseID(t *testing.T, s string) int64 {
	t.Helper()
	id, err := strconv.ParseInt(s, 10, 64)
	require.NoError(t, err)
	return id
}

func TestGRPCInviteFlow(t *testing.T) {
	c := newGRPCClient(t)

	aliceResp, err := c.invoke("CreateUser", 0, map[string]interface{}{"username": "alice"})
	require.NoError(t, err)
	bobResp, err := c.invoke("CreateUser", 0, map[string]interface{}{"username": "bob"})
	require.NoError(t, err)

	aliceID, bobID := userID(t, aliceResp), userID(t, bobResp)
	alice, bob := parseID(t, aliceID), parseID(t, bobID)

	created, err := c.invoke("CreateInvite", alice, map[string]interface{}{"target": bobID})
	require.NoError(t, err)
	invite := created.Fields["invite"].GetStructValue()
	require.NotNil(t, invite)
	assert.Equal(t, "pending", invite.Fields["status"].GetStringValue())
	_, isNull := invite.Fields["is_accept"].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)

	// 对方反向邀请触发自动互加
	reverse, err := c.invoke("CreateInvite", bob, map[string]interface{}{"target": aliceID})
	require.NoError(t, err)
	assert.Equal(t, "accepted", reverse.Fields["invite"].GetStructValue().Fields["status"].GetStringValue())

	st, err := c.invoke("GetFriendStatus", alice, map[string]interface{}{"user_id": bobID})
	require.NoError(t, err)
	assert.Equal(t, "is_friends", st.Fields["status"].GetStringValue())

	friends, err := c.invoke("ListFriends", bob, map[string]interface{}{})
	require.NoError(t, err)
	assert.Len(t, friends.Fields["friends"].GetListValue().GetValues(), 1)

	_, err = c.invoke("Unfriend", bob, map[string]interface{}{"user_id": aliceID})
	require.NoError(t, err)

	_, err = c.invoke("Unfriend", bob, map[string]interface{}{"user_id": aliceID})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCErrorCodes(t *testing.T) {
	c := newGRPCClient(t)

	_, err := c.invoke("ListInvites", 0, map[string]interface{}{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	aliceResp, err := c.invoke("CreateUser", 0, map[string]interface{}{"username": "alice"})
	require.NoError(t, err)
	alice := parseID(t, userID(t, aliceResp))

	_, err = c.invoke("CreateUser", 0, map[string]interface{}{"username": "alice"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = c.invoke("GetInvite", alice, map[string]interface{}{"invite_id": "99"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.invoke("CreateInvite", alice, map[string]interface{}{"target": "1", "is_accept": false})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.invoke("AnswerInvite", alice, map[string]interface{}{"invite_id": "1"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	incoming, err := c.invoke("ListIncoming", alice, map[string]interface{}{})
	require.NoError(t, err)
	assert.Empty(t, incoming.Fields["invites"].GetListValue().GetValues())
}

func TestGRPCCreateUserReturnsToken(t *testing.T) {
	c := newGRPCClient(t)

	resp, err := c.invoke("CreateUser", 0, map[string]interface{}{"username": "frank"})
	require.NoError(t, err)
	token := resp.Fields["token"].GetStringValue()
	require.NotEmpty(t, token)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
	req, err := structpb.NewStruct(map[string]interface{}{})
	require.NoError(t, err)
	out := new(structpb.Struct)
	require.NoError(t, c.conn.Invoke(ctx, "/"+FriendServiceName+"/ListFriends", req, out))
	assert.True(t, out.Fields["success"].GetBoolValue())
}
