package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Invite    InviteConfig    `mapstructure:"invite"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name      string        `mapstructure:"name"`
	Version   string        `mapstructure:"version"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	LogLevel  string        `mapstructure:"log_level"`
	MachineID int64         `mapstructure:"machine_id"` // snowflake机器ID
	TokenTTL  time.Duration `mapstructure:"token_ttl"`  // 注册时签发的token有效期
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GRPCConfig gRPC服务配置
type GRPCConfig struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver     string           `mapstructure:"driver"` // postgres / sqlite
	PostgreSQL PostgreSQLConfig `mapstructure:"postgresql"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	MaxRetries int              `mapstructure:"max_retries"` // 死锁/序列化失败重试次数
}

// PostgreSQLConfig PostgreSQL配置
type PostgreSQLConfig struct {
	DSN    string `mapstructure:"dsn"`
	DBName string `mapstructure:"db_name"`
}

// SQLiteConfig SQLite配置，本地开发使用
type SQLiteConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// TelemetryConfig OpenTelemetry配置
type TelemetryConfig struct {
	Exporter     string  `mapstructure:"exporter"` // stdout / otlp / none
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// InviteConfig 好友邀请配置
type InviteConfig struct {
	RateLimit  int           `mapstructure:"rate_limit"`  // 窗口内允许创建的邀请数，0表示不限流
	RateWindow time.Duration `mapstructure:"rate_window"` // 限流窗口
}

// LoadConfig 加载配置：默认值 < config.yaml < 环境变量
func LoadConfig(serviceName string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")

	// APP_JWT_SECRET 覆盖 app.jwt_secret
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, serviceName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper, serviceName string) {
	v.SetDefault("app.name", serviceName)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.jwt_secret", "focusandinsist")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.machine_id", 1)
	v.SetDefault("app.token_ttl", "24h")

	v.SetDefault("server.http.addr", ":21003")
	v.SetDefault("server.http.timeout", "30s")
	v.SetDefault("server.grpc.addr", ":22003")
	v.SetDefault("server.grpc.timeout", "30s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.postgresql.dsn", "host=localhost user=postgres password=postgres dbname="+serviceName+"DB port=5432 sslmode=disable TimeZone=Asia/Shanghai")
	v.SetDefault("database.postgresql.db_name", serviceName+"DB")
	v.SetDefault("database.sqlite.dsn", "file:"+serviceName+".db?_foreign_keys=on")
	v.SetDefault("database.max_retries", 3)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", true)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "friend-events")

	v.SetDefault("telemetry.exporter", "stdout")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.sample_rate", 1.0)

	v.SetDefault("invite.rate_limit", 30)
	v.SetDefault("invite.rate_window", "1m")
}

// decode 解析并校验配置
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// 环境变量只能给出逗号分隔的broker列表
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}

	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if cfg.App.JWTSecret == "" {
		return nil, fmt.Errorf("app.jwt_secret must not be empty")
	}
	if cfg.Database.MaxRetries < 0 {
		cfg.Database.MaxRetries = 0
	}

	return &cfg, nil
}
