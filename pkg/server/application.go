package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	kratoslog "github.com/go-kratos/kratos/v2/log"
	"google.golang.org/grpc"

	"goim-friend/pkg/config"
	"goim-friend/pkg/database"
	"goim-friend/pkg/kafka"
	"goim-friend/pkg/lifecycle"
	"goim-friend/pkg/logger"
	"goim-friend/pkg/middleware"
	"goim-friend/pkg/redis"
	"goim-friend/pkg/telemetry"
)

// Application 应用程序框架
type Application struct {
	serviceName    string
	config         *config.Config
	logger         kratoslog.Logger
	originalLogger logger.Logger
	serverManager  *ServerManager
	lifecycle      *lifecycle.LifecycleManager

	// 基础设施组件
	database      *database.Database
	redisClient   *redis.RedisClient
	kafkaProducer *kafka.Producer
	telemetry     *telemetry.Provider

	// 中间件
	authMiddleware    *middleware.AuthMiddleware
	loggingMiddleware *middleware.LoggingMiddleware
	otelMiddleware    *middleware.OTelMiddleware

	// 注册函数
	httpRouteRegister   func(*gin.Engine)
	grpcServiceRegister func(*grpc.Server)
}

// NewApplication 创建应用程序
func NewApplication(serviceName string) (*Application, error) {
	cfg, err := config.LoadConfig(serviceName)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(cfg.App.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	originalLogger := logger.GetLogger()

	kratosLogger := logger.NewServiceKratosLogger(originalLogger, cfg.App.Name, cfg.App.Version)

	app := &Application{
		serviceName:       serviceName,
		config:            cfg,
		logger:            kratosLogger,
		originalLogger:    originalLogger,
		serverManager:     NewServerManager(cfg, kratosLogger),
		lifecycle:         lifecycle.NewLifecycleManager(kratosLogger),
		authMiddleware:    middleware.NewAuthMiddleware(kratosLogger, cfg.App.JWTSecret),
		loggingMiddleware: middleware.NewLoggingMiddleware(kratosLogger),
		otelMiddleware:    middleware.NewOTelMiddleware(cfg.App.Name, originalLogger),
	}
	app.serverManager.OnFailure(app.lifecycle.Fail)

	if err := app.initInfrastructure(); err != nil {
		app.closeInfrastructure(context.Background())
		return nil, err
	}

	return app, nil
}

// initInfrastructure 初始化基础设施组件
func (app *Application) initInfrastructure() error {
	if err := telemetry.InitGlobal(telemetry.FromAppConfig(app.config.App, app.config.Telemetry)); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	app.telemetry = telemetry.GetGlobalProvider()

	db, err := database.Open(app.config.Database, app.config.App.LogLevel)
	if err != nil {
		app.logger.Log(kratoslog.LevelError, "msg", "Failed to connect to database", "driver", app.config.Database.Driver, "error", err)
		return err
	}
	app.database = db

	app.redisClient = redis.NewRedisClient(app.config.Redis)
	if err := app.redisClient.Ping(context.Background()); err != nil {
		// 限流器在Redis不可用时放行，不阻塞启动
		app.logger.Log(kratoslog.LevelWarn, "msg", "Redis unavailable, rate limiting degraded", "error", err)
	}

	if app.config.Kafka.Enabled {
		producer, err := kafka.InitProducer(app.config.Kafka.Brokers, app.originalLogger)
		if err != nil {
			app.logger.Log(kratoslog.LevelError, "msg", "Failed to connect to Kafka", "error", err)
			return err
		}
		app.kafkaProducer = producer
	}

	return nil
}

// EnableHTTP 启用HTTP服务器
func (app *Application) EnableHTTP() HTTPServer {
	httpServer := app.serverManager.EnableHTTP(app.Health)

	httpServer.RegisterRoutes(func(engine *gin.Engine) {
		engine.Use(middleware.Recovery(app.originalLogger))
		engine.Use(app.otelMiddleware.GinMiddleware()...)
		engine.Use(app.loggingMiddleware.GinLogging())
		engine.Use(app.authMiddleware.GinAuth())
	})

	return httpServer
}

// EnableGRPC 启用gRPC服务器
func (app *Application) EnableGRPC() GRPCServer {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(app.otelMiddleware.GRPCStatsHandler()),
		grpc.ChainUnaryInterceptor(
			app.loggingMiddleware.GRPCRecovery(),
			app.otelMiddleware.GRPCUnaryServerInterceptor(),
			app.loggingMiddleware.GRPCLogging(),
			app.authMiddleware.GRPCAuth(),
			middleware.GRPCErrorMapping(),
		),
	}
	if t := app.config.Server.GRPC.Timeout; t > 0 {
		opts = append(opts, grpc.ConnectionTimeout(t))
	}
	return app.serverManager.EnableGRPC(opts...)
}

// RegisterHTTPRoutes 注册HTTP路由
func (app *Application) RegisterHTTPRoutes(registerFunc func(*gin.Engine)) {
	app.httpRouteRegister = registerFunc
}

// RegisterGRPCService 注册gRPC服务
func (app *Application) RegisterGRPCService(registerFunc func(*grpc.Server)) {
	app.grpcServiceRegister = registerFunc
}

// Health 依赖健康检查
func (app *Application) Health(ctx context.Context) error {
	return app.database.Health(ctx)
}

// GetDatabase 获取数据库连接
func (app *Application) GetDatabase() *database.Database {
	return app.database
}

// GetRedisClient 获取Redis客户端
func (app *Application) GetRedisClient() *redis.RedisClient {
	return app.redisClient
}

// GetKafkaProducer 获取Kafka生产者，未启用时为nil
func (app *Application) GetKafkaProducer() *kafka.Producer {
	return app.kafkaProducer
}

// GetLogger 获取业务日志器
func (app *Application) GetLogger() logger.Logger {
	return app.originalLogger
}

// GetKratosLogger 获取Kratos日志器
func (app *Application) GetKratosLogger() kratoslog.Logger {
	return app.logger
}

// GetConfig 获取配置
func (app *Application) GetConfig() *config.Config {
	return app.config
}

// Run 运行应用程序
func (app *Application) Run() error {
	if err := app.registerLifecycleHooks(); err != nil {
		return err
	}

	if err := app.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle: %w", err)
	}

	app.lifecycle.Wait()
	return nil
}

// registerLifecycleHooks 注册生命周期钩子
func (app *Application) registerLifecycleHooks() error {
	if app.httpRouteRegister != nil {
		if err := app.serverManager.RegisterHTTPRoutes(app.httpRouteRegister); err != nil {
			return err
		}
	}
	if app.grpcServiceRegister != nil {
		if err := app.serverManager.RegisterGRPCService(app.grpcServiceRegister); err != nil {
			return err
		}
	}

	// 基础设施清理钩子，最后停止
	app.lifecycle.AddHook(lifecycle.Hook{
		Name:     "infrastructure",
		Priority: 10,
		OnStop: func(ctx context.Context) error {
			app.closeInfrastructure(ctx)
			return nil
		},
	})

	app.lifecycle.AddHook(lifecycle.Hook{
		Name:     "servers",
		Priority: 100,
		OnStart: func(ctx context.Context) error {
			return app.serverManager.StartAll(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return app.serverManager.StopAll(ctx)
		},
	})

	return nil
}

// closeInfrastructure 关闭基础设施，生产者先于数据库关闭以刷出在途事件
func (app *Application) closeInfrastructure(ctx context.Context) {
	if app.kafkaProducer != nil {
		if err := app.kafkaProducer.Close(); err != nil {
			app.logger.Log(kratoslog.LevelError, "msg", "Failed to close Kafka producer", "error", err)
		}
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Log(kratoslog.LevelError, "msg", "Failed to close Redis", "error", err)
		}
	}
	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Log(kratoslog.LevelError, "msg", "Failed to close database", "error", err)
		}
	}
	if app.telemetry != nil {
		if err := app.telemetry.Shutdown(ctx); err != nil {
			app.logger.Log(kratoslog.LevelError, "msg", "Failed to shutdown telemetry", "error", err)
		}
	}
}
