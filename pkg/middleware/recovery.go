package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"

	"goim-friend/pkg/errs"
	"goim-friend/pkg/httpx"
	"goim-friend/pkg/logger"
)

// Recovery 错误恢复中间件
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "Panic recovered",
					logger.F("error", fmt.Sprint(r)),
					logger.F("method", c.Request.Method),
					logger.F("path", c.Request.URL.Path))

				httpx.AbortWithError(c, errs.Internal("panic recovered", fmt.Errorf("%v", r)))
			}
		}()

		c.Next()
	}
}

// GRPCErrorMapping 将业务错误转换为gRPC状态码
func GRPCErrorMapping() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, errs.ToGRPCStatus(err)
		}
		return resp, nil
	}
}
