package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	kratoslog "github.com/go-kratos/kratos/v2/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	tracecontext "goim-friend/pkg/context"
)

// LoggingMiddleware 日志中间件
type LoggingMiddleware struct {
	logger kratoslog.Logger
}

// NewLoggingMiddleware 创建日志中间件
func NewLoggingMiddleware(logger kratoslog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger: logger,
	}
}

// accessRecordGinKey gin.Context中访问记录的键
const accessRecordGinKey = "access_record"

// GinLogging Gin日志中间件，访问日志附带认证用户和邀请ID
func (lm *LoggingMiddleware) GinLogging() gin.HandlerFunc {
	formatter := gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		keyvals := []interface{}{
			"msg", "HTTP request",
			"method", param.Method,
			"path", param.Path,
			"status", param.StatusCode,
			"latency", param.Latency.String(),
			"client_ip", param.ClientIP,
			"user_agent", param.Request.UserAgent(),
		}
		rec, _ := param.Keys[accessRecordGinKey].(*tracecontext.AccessRecord)
		keyvals = append(keyvals, accessKeyvals(param.Request.Context(), rec)...)
		if param.ErrorMessage != "" {
			keyvals = append(keyvals, "error", param.ErrorMessage)
		}

		lm.logger.Log(httpLevel(param.StatusCode), keyvals...)
		return ""
	})

	return func(c *gin.Context) {
		ctx, rec := tracecontext.WithAccessRecord(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Set(accessRecordGinKey, rec)
		formatter(c)
	}
}

// GRPCLogging gRPC日志拦截器
func (lm *LoggingMiddleware) GRPCLogging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		lm.logger.Log(kratoslog.LevelDebug,
			"msg", "gRPC request started",
			"method", info.FullMethod,
		)

		// 认证和业务层设置的ID回写到访问记录
		ctx, rec := tracecontext.WithAccessRecord(ctx)
		resp, err := handler(ctx, req)

		st := status.Convert(err)
		keyvals := []interface{}{
			"method", info.FullMethod,
			"duration", time.Since(start).String(),
			"code", st.Code().String(),
		}
		keyvals = append(keyvals, accessKeyvals(ctx, rec)...)

		if err != nil {
			lm.logger.Log(grpcLevel(st.Code()),
				append([]interface{}{"msg", "gRPC request completed with error", "error", st.Message()}, keyvals...)...)
		} else {
			lm.logger.Log(kratoslog.LevelInfo,
				append([]interface{}{"msg", "gRPC request completed"}, keyvals...)...)
		}

		return resp, err
	}
}

// accessKeyvals 请求ID、用户ID和邀请ID，未设置的字段不输出
func accessKeyvals(ctx context.Context, rec *tracecontext.AccessRecord) []interface{} {
	var keyvals []interface{}
	if requestID := tracecontext.GetRequestID(ctx); requestID != "" {
		keyvals = append(keyvals, "request_id", requestID)
	}
	if rec == nil {
		return keyvals
	}
	if userID := rec.UserID(); userID > 0 {
		keyvals = append(keyvals, "user_id", userID)
	}
	if inviteID := rec.InviteID(); inviteID > 0 {
		keyvals = append(keyvals, "invite_id", inviteID)
	}
	return keyvals
}

// grpcLevel 客户端错误记为警告，服务端错误记为错误
func grpcLevel(code codes.Code) kratoslog.Level {
	switch code {
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
		return kratoslog.LevelError
	default:
		return kratoslog.LevelWarn
	}
}

func httpLevel(statusCode int) kratoslog.Level {
	switch {
	case statusCode >= 500:
		return kratoslog.LevelError
	case statusCode >= 400:
		return kratoslog.LevelWarn
	default:
		return kratoslog.LevelInfo
	}
}

// GRPCRecovery gRPC恢复拦截器
func (lm *LoggingMiddleware) GRPCRecovery() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				lm.logger.Log(kratoslog.LevelError,
					"msg", "gRPC request panic recovered",
					"method", info.FullMethod,
					"panic", r,
				)
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}
