package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// UploadConfig 定义分块上传管线的配置
type UploadConfig struct {
	ChunkSize   int64         // 分块大小（字节），默认 10 MiB
	MaxFileSize int64         // 单文件最大字节数，默认 2 GiB
	SessionTTL  time.Duration // 上传会话生存时间，过期后由后台清扫回收
	StoragePath string        // 分块暂存根目录
	PresignTTL  time.Duration // 直传预签名 URL 有效期
	FFmpegPath  string        // ffmpeg 可执行文件路径（视频缩略图）
}

// MinioConfig 定义 MinIO 对象存储配置
type MinioConfig struct {
	Endpoint        string // MinIO 服务地址，格式 "host:port"
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string // 存储桶名称
	UseSSL          bool
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	LogFile     string // 日志文件路径，留空只输出到 stdout
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，为空时使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Address  string // Redis 服务地址，留空禁用缓存层
	Password string
	DB       int
}

// JWTConfig 定义 JWT 认证相关配置
type JWTConfig struct {
	Secret       string        // JWT 签名密钥，必须至少 32 字符
	Issuer       string        // JWT 签发者标识
	AccessExpiry time.Duration // 访问令牌有效期
}

// RateLimitConfig 定义上传接口的限流配置
type RateLimitConfig struct {
	UploadRPS   float64 // 单客户端每秒允许的上传请求数
	UploadBurst int     // 突发额度
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Minio     MinioConfig
	CORS      CORSConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: TASKBOARD_
// 例如: TASKBOARD_SERVER_PORT, TASKBOARD_UPLOAD_CHUNK_SIZE
func Load() (*Config, error) {
	// .env 文件是可选的，加载失败静默忽略
	loadEnvFile()

	viper.SetEnvPrefix("taskboard")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("upload.chunk_size", 10*1024*1024)
	viper.SetDefault("upload.max_file_size", 2*1024*1024*1024)
	viper.SetDefault("upload.session_ttl", "24h")
	viper.SetDefault("upload.storage_path", "./data/upload-staging")
	viper.SetDefault("upload.presign_ttl", "15m")
	viper.SetDefault("upload.ffmpeg_path", "ffmpeg")
	viper.SetDefault("minio.endpoint", "")
	viper.SetDefault("minio.access_key_id", "")
	viper.SetDefault("minio.secret_access_key", "")
	viper.SetDefault("minio.bucket", "taskboard-media")
	viper.SetDefault("minio.use_ssl", false)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.issuer", "taskboard")
	viper.SetDefault("jwt.access_expiry", "12h")
	viper.SetDefault("ratelimit.upload_rps", 50)
	viper.SetDefault("ratelimit.upload_burst", 100)

	chunkSize := viper.GetInt64("upload.chunk_size")
	if chunkSize <= 0 {
		return nil, fmt.Errorf("upload.chunk_size must be positive")
	}

	maxFileSize := viper.GetInt64("upload.max_file_size")
	if maxFileSize < chunkSize {
		return nil, fmt.Errorf("upload.max_file_size must be at least one chunk (%d bytes)", chunkSize)
	}

	sessionTTL, err := time.ParseDuration(viper.GetString("upload.session_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid upload.session_ttl: %w", err)
	}

	presignTTL, err := time.ParseDuration(viper.GetString("upload.presign_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid upload.presign_ttl: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("jwt.access_expiry"))
	if err != nil {
		accessExpiry = 12 * time.Hour
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	jwtSecret := viper.GetString("jwt.secret")

	// 安全检查：禁止使用默认的 JWT secret
	if jwtSecret == "change-me-in-production" {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret cannot be the default value. Please set TASKBOARD_JWT_SECRET environment variable")
	}
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret must be at least 32 characters long")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Upload: UploadConfig{
			ChunkSize:   chunkSize,
			MaxFileSize: maxFileSize,
			SessionTTL:  sessionTTL,
			StoragePath: viper.GetString("upload.storage_path"),
			PresignTTL:  presignTTL,
			FFmpegPath:  viper.GetString("upload.ffmpeg_path"),
		},
		Minio: MinioConfig{
			Endpoint:        viper.GetString("minio.endpoint"),
			AccessKeyID:     viper.GetString("minio.access_key_id"),
			SecretAccessKey: viper.GetString("minio.secret_access_key"),
			Bucket:          viper.GetString("minio.bucket"),
			UseSSL:          viper.GetBool("minio.use_ssl"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			LogFile:     viper.GetString("log.file"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:       jwtSecret,
			Issuer:       viper.GetString("jwt.issuer"),
			AccessExpiry: accessExpiry,
		},
		RateLimit: RateLimitConfig{
			UploadRPS:   viper.GetFloat64("ratelimit.upload_rps"),
			UploadBurst: viper.GetInt("ratelimit.upload_burst"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 先找当前目录，再找父目录（从 backend/ 子目录运行时）。
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
