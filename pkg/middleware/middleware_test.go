package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
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
	"goim-friend/pkg/errs"
	"goim-friend/pkg/logger"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine() *gin.Engine {
	am := NewAuthMiddleware(kratoslog.NewStdLogger(io.Discard), testSecret)
	r := gin.New()
	r.Use(am.GinAuth())
	r.POST("/api/v1/friend/status", func(c *gin.Context) {
		id, ok := RequesterID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok, "ctx": tracecontext.GetUserID(c.Request.Context())})
	})
	r.POST("/api/v1/user/register", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestGinAuthRejectsMissingToken(t *testing.T) {
	w := httptest.NewRecorder()
	newAuthEngine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/friend/status", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestGinAuthRejectsBadToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/friend/status", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	newAuthEngine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGinAuthSetsRequester(t *testing.T) {
	token, err := auth.GenerateJWT(42, "alice", testSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friend/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthEngine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42,"ok":true,"ctx":42}`, w.Body.String())
}

func TestGinAuthSkipsPublicPaths(t *testing.T) {
	w := httptest.NewRecorder()
	newAuthEngine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/user/register", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGRPCAuth(t *testing.T) {
	am := NewAuthMiddleware(kratoslog.NewStdLogger(io.Discard), testSecret)
	interceptor := am.GRPCAuth()
	info := &grpc.UnaryServerInfo{FullMethod: "/goim.friend.v1.FriendService/GetFriendStatus"}

	var seen int64
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = tracecontext.GetUserID(ctx)
		return "ok", nil
	}

	_, err := interceptor(context.Background(), nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := auth.GenerateJWT(7, "bob", testSecret, time.Hour)
	require.NoError(t, err)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	resp, err := interceptor(ctx, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, int64(7), seen)

	health := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	_, err = interceptor(context.Background(), nil, health, handler)
	assert.NoError(t, err)
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func newLimitedEngine(counter WindowCounter, limit int) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserIDKey, int64(9))
		c.Next()
	})
	r.Use(RateLimit(NewFixedWindowLimiter(counter, "invite", limit, time.Minute), logger.NewNopLogger()))
	r.POST("/create", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	r := newLimitedEngine(counter, 2)

	codesSeen := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/create", nil))
		codesSeen = append(codesSeen, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codesSeen)
	assert.Equal(t, int64(3), counter.counts["invite:user:9"])
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := newLimitedEngine(&fakeCounter{err: errors.New("redis down")}, 1)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/create", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	l := NewFixedWindowLimiter(&fakeCounter{err: errors.New("unused")}, "invite", 0, 0)
	ok, err := l.Allow(context.Background(), "k")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewNopLogger()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestGRPCErrorMapping(t *testing.T) {
	interceptor := GRPCErrorMapping()
	info := &grpc.UnaryServerInfo{FullMethod: "/goim.friend.v1.FriendService/AnswerInvite"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, errs.Forbidden("sender cannot answer own invite")
	})
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.PermissionDenied, st.Code())
	assert.Equal(t, "sender cannot answer own invite", st.Message())
}
