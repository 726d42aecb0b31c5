package main

import (
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"

	"goim-friend/apps/friend-service/internal/dao"
	"goim-friend/apps/friend-service/internal/handler"
	"goim-friend/apps/friend-service/internal/service"
	"goim-friend/pkg/auth"
	"goim-friend/pkg/middleware"
	"goim-friend/pkg/server"
	"goim-friend/pkg/snowflake"
)

func main() {
	// 创建应用程序
	app, err := server.NewApplication("friend-service")
	if err != nil {
		panic(err)
	}
	cfg := app.GetConfig()

	// 启用HTTP和gRPC服务器
	app.EnableHTTP()
	app.EnableGRPC()

	// 迁移表结构
	if err := dao.Migrate(app.GetDatabase()); err != nil {
		panic(err)
	}

	ids, err := snowflake.NewSnowflake(cfg.App.MachineID)
	if err != nil {
		panic(err)
	}

	// Kafka未启用时不发送事件
	var publisher service.EventPublisher
	if producer := app.GetKafkaProducer(); producer != nil {
		publisher = producer
	}

	// 初始化DAO层和Service层
	friendDAO := dao.NewFriendDAO(app.GetDatabase())
	svc := service.NewService(friendDAO, ids, publisher, cfg.Kafka.Topic, app.GetLogger())

	// 创建邀请按用户限流
	limiter := middleware.NewFixedWindowLimiter(app.GetRedisClient(), "ratelimit:invite", cfg.Invite.RateLimit, cfg.Invite.RateWindow)

	// 注册接口签发的token与认证中间件使用同一密钥
	tokens := auth.NewIssuer(cfg.App.JWTSecret, cfg.App.TokenTTL)

	// 初始化Handler
	httpHandler := handler.NewHTTPHandler(svc, limiter, tokens, app.GetLogger())
	grpcHandler := handler.NewGRPCHandler(svc, tokens, app.GetLogger())

	// 注册HTTP路由
	app.RegisterHTTPRoutes(func(engine *gin.Engine) {
		httpHandler.RegisterRoutes(engine)
	})

	// 注册gRPC服务
	app.RegisterGRPCService(func(grpcSrv *grpc.Server) {
		handler.RegisterFriendServiceServer(grpcSrv, grpcHandler)
	})

	// 运行应用程序
	if err := app.Run(); err != nil {
		panic(err)
	}
}
