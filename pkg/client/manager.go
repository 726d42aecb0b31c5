package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	kratoslog "github.com/go-kratos/kratos/v2/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// ClientManager gRPC连接管理器，按地址复用连接
type ClientManager struct {
	logger      kratoslog.Logger
	dialOptions []grpc.DialOption
	grpcClients map[string]*grpc.ClientConn
	mu          sync.Mutex
}

// NewClientManager 创建连接管理器，opts 追加到默认的明文传输选项之后
func NewClientManager(logger kratoslog.Logger, opts ...grpc.DialOption) *ClientManager {
	dialOptions := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	return &ClientManager{
		logger:      logger,
		dialOptions: dialOptions,
		grpcClients: make(map[string]*grpc.ClientConn),
	}
}

// GetGRPCClient 获取gRPC客户端连接
func (cm *ClientManager) GetGRPCClient(addr string) (*grpc.ClientConn, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn, exists := cm.grpcClients[addr]; exists {
		if conn.GetState() != connectivity.Shutdown {
			return conn, nil
		}
		// 连接已关闭，删除并重新创建
		delete(cm.grpcClients, addr)
	}

	conn, err := grpc.NewClient(addr, cm.dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to %s: %w", addr, err)
	}

	cm.grpcClients[addr] = conn
	cm.logger.Log(kratoslog.LevelInfo, "msg", "gRPC client connected", "addr", addr)
	return conn, nil
}

// GetGRPCClientWithRetry 获取连接并等待就绪，失败时按递增间隔重试
func (cm *ClientManager) GetGRPCClientWithRetry(ctx context.Context, addr string, maxRetries int) (*grpc.ClientConn, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		conn, err := cm.GetGRPCClient(addr)
		if err == nil {
			if err = waitReady(ctx, conn); err == nil {
				return conn, nil
			}
		}

		lastErr = err
		cm.logger.Log(kratoslog.LevelWarn, "msg", "gRPC connection failed, retrying",
			"addr", addr, "attempt", i+1, "error", err)

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i+1) * time.Second):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", addr, maxRetries, lastErr)
}

func waitReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return fmt.Errorf("connection shut down")
		}
		if !conn.WaitForStateChange(ctx, state) {
			return ctx.Err()
		}
	}
}

// CloseAll 关闭所有客户端连接
func (cm *ClientManager) CloseAll() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var errs []error
	for addr, conn := range cm.grpcClients {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", addr, err))
		} else {
			cm.logger.Log(kratoslog.LevelInfo, "msg", "gRPC client closed", "addr", addr)
		}
	}
	cm.grpcClients = make(map[string]*grpc.ClientConn)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing clients: %v", errs)
	}
	return nil
}

// WithBearerToken 为每次调用附加Authorization元数据
func WithBearerToken(token string) grpc.DialOption {
	return grpc.WithChainUnaryInterceptor(func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if token != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	})
}
