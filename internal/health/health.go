package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"taskboard/backend/internal/storage"
)

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.Store
	redis  *redis.Client
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器，redisClient 可为 nil
func NewHealthChecker(store storage.Store, redisClient *redis.Client, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		redis:  redisClient,
		logger: logger,
	}

	hc.addChecks()

	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks() {
	// 存储连通性检查
	hc.health.AddLivenessCheck("storage", func() error {
		return hc.store.Health()
	})

	// Redis 连接检查（启用缓存时）
	if hc.redis != nil {
		hc.health.AddReadinessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return hc.redis.Ping(ctx).Err()
		})
	}
}

// Handler 返回健康检查处理器
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// CheckHealth 执行健康检查
func (hc *HealthChecker) CheckHealth() map[string]string {
	results := make(map[string]string)

	if err := hc.store.Health(); err != nil {
		results["storage"] = fmt.Sprintf("ERROR: %v", err)
	} else {
		results["storage"] = "OK"
	}

	if hc.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := hc.redis.Ping(ctx).Err(); err != nil {
			results["redis"] = fmt.Sprintf("ERROR: %v", err)
		} else {
			results["redis"] = "OK"
		}
		cancel()
	} else {
		results["redis"] = "NOT_AVAILABLE"
	}

	results["timestamp"] = time.Now().Format(time.RFC3339)

	return results
}
