package logger

import (
	"context"
	"testing"

	kratoslog "github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	tracecontext "goim-friend/pkg/context"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestLoggerAddsRequestIDAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewZapLogger(zap.New(core))

	ctx := tracecontext.WithRequestID(context.Background(), "req-9")
	l.Info(ctx, "Invite created", F("inviteID", int64(3)))
	l.Debug(ctx, "dropped below level")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Invite created", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, int64(3), fields["inviteID"])
}

func TestWithContextAddsUserID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewZapLogger(zap.New(core))

	ctx := tracecontext.WithUserID(context.Background(), 11)
	l.WithContext(ctx).Warn(context.Background(), "rate limited")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(11), logs.All()[0].ContextMap()["user_id"])
}

func TestKratosAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	kl := NewKratosLogger(NewZapLogger(zap.New(core)))

	require.NoError(t, kl.Log(kratoslog.LevelError, "msg", "Hook start failed", "name", "servers"))
	require.NoError(t, kl.Log(kratoslog.LevelInfo))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "Hook start failed", entry.Message)
	assert.Equal(t, "servers", entry.ContextMap()["name"])
}

func TestKratosAdapterKeepsUnpairedValue(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	kl := NewKratosLogger(NewZapLogger(zap.New(core)))

	require.NoError(t, kl.Log(kratoslog.LevelWarn, "msg", "gRPC request completed with error", "user_id", int64(7), "dangling"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(7), fields["user_id"])
	assert.Equal(t, "dangling", fields["KEYVALS UNPAIRED"])
}
