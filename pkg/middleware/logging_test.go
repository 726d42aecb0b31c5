package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	kratoslog "github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"goim-friend/pkg/auth"
	tracecontext "goim-friend/pkg/context"
)

type logEntry struct {
	level  kratoslog.Level
	fields map[string]interface{}
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) Log(level kratoslog.Level, keyvals ...interface{}) error {
	fields := make(map[string]interface{}, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fields[keyvals[i].(string)] = keyvals[i+1]
	}
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, fields: fields})
	l.mu.Unlock()
	return nil
}

func (l *captureLogger) last(t *testing.T) logEntry {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotEmpty(t, l.entries)
	return l.entries[len(l.entries)-1]
}

func TestGRPCLoggingRecordsRequesterAndInvite(t *testing.T) {
	capture := &captureLogger{}
	logging := NewLoggingMiddleware(capture).GRPCLogging()
	authn := NewAuthMiddleware(kratoslog.NewStdLogger(io.Discard), testSecret).GRPCAuth()
	info := &grpc.UnaryServerInfo{FullMethod: "/goim.friend.v1.FriendService/AnswerInvite"}

	token, err := auth.GenerateJWT(7, "bob", testSecret, time.Hour)
	require.NoError(t, err)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	ctx = tracecontext.WithRequestID(ctx, "req-9")

	_, err = logging(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return authn(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			_ = tracecontext.WithInviteID(ctx, 9)
			return nil, status.Error(codes.FailedPrecondition, "already answered")
		})
	})
	require.Error(t, err)

	entry := capture.last(t)
	assert.Equal(t, kratoslog.LevelWarn, entry.level)
	assert.Equal(t, "gRPC request completed with error", entry.fields["msg"])
	assert.Equal(t, "FailedPrecondition", entry.fields["code"])
	assert.Equal(t, "already answered", entry.fields["error"])
	assert.Equal(t, "req-9", entry.fields["request_id"])
	assert.Equal(t, int64(7), entry.fields["user_id"])
	assert.Equal(t, int64(9), entry.fields["invite_id"])
}

func TestGRPCLoggingServerErrorLevel(t *testing.T) {
	capture := &captureLogger{}
	logging := NewLoggingMiddleware(capture).GRPCLogging()
	info := &grpc.UnaryServerInfo{FullMethod: "/goim.friend.v1.FriendService/ListFriends"}

	_, err := logging(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Internal, "internal server error")
	})
	require.Error(t, err)

	entry := capture.last(t)
	assert.Equal(t, kratoslog.LevelError, entry.level)
	_, hasUser := entry.fields["user_id"]
	assert.False(t, hasUser)

	_, err = logging(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, kratoslog.LevelInfo, capture.last(t).level)
}

func TestGinLoggingRecordsRequesterAndInvite(t *testing.T) {
	capture := &captureLogger{}
	r := gin.New()
	r.Use(NewLoggingMiddleware(capture).GinLogging())
	r.Use(NewAuthMiddleware(kratoslog.NewStdLogger(io.Discard), testSecret).GinAuth())
	r.POST("/api/v1/invite/info", func(c *gin.Context) {
		_ = tracecontext.WithInviteID(c.Request.Context(), 3)
		c.Status(http.StatusNotFound)
	})

	token, err := auth.GenerateJWT(11, "carol", testSecret, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invite/info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := capture.last(t)
	assert.Equal(t, kratoslog.LevelWarn, entry.level)
	assert.Equal(t, http.StatusNotFound, entry.fields["status"])
	assert.Equal(t, int64(11), entry.fields["user_id"])
	assert.Equal(t, int64(3), entry.fields["invite_id"])
}
