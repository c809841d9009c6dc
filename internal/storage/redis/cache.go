// Package redis 提供热点读路径的 Redis 缓存。
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskboard/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// Cache Redis 缓存实现
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// NewCache 创建 Redis 缓存实例
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	ctx := context.Background()

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ctx:    ctx,
	}, nil
}

// Client 返回底层 Redis 客户端，供健康检查使用
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}

// ========== 用户缓存 ==========

// CacheUser 缓存用户信息
func (c *Cache) CacheUser(user *domain.User, ttl time.Duration) error {
	return c.setJSON(fmt.Sprintf("user:%s", user.ID), user, ttl)
}

// GetCachedUser 获取缓存的用户信息
func (c *Cache) GetCachedUser(userID string) (*domain.User, error) {
	var user domain.User
	if err := c.getJSON(fmt.Sprintf("user:%s", userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteCachedUser 删除缓存的用户信息
func (c *Cache) DeleteCachedUser(userID string) error {
	return c.client.Del(c.ctx, fmt.Sprintf("user:%s", userID)).Err()
}

// ========== 上传会话缓存 ==========
//
// 分块上传期间每个分块请求都要加载会话元数据，这是系统最热的读
// 路径；会话不可变（只会被整体删除），按 TTL 缓存安全。

// CacheUploadSession 缓存上传会话
func (c *Cache) CacheUploadSession(session *domain.UploadSession, ttl time.Duration) error {
	return c.setJSON(fmt.Sprintf("upload_session:%s", session.ID), session, ttl)
}

// GetCachedUploadSession 获取缓存的上传会话
func (c *Cache) GetCachedUploadSession(sessionID string) (*domain.UploadSession, error) {
	var session domain.UploadSession
	if err := c.getJSON(fmt.Sprintf("upload_session:%s", sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteCachedUploadSession 删除缓存的上传会话
func (c *Cache) DeleteCachedUploadSession(sessionID string) error {
	return c.client.Del(c.ctx, fmt.Sprintf("upload_session:%s", sessionID)).Err()
}

// ========== 看板缓存 ==========

// CacheBoard 缓存看板信息
func (c *Cache) CacheBoard(board *domain.Board, ttl time.Duration) error {
	return c.setJSON(fmt.Sprintf("board:%s", board.ID), board, ttl)
}

// GetCachedBoard 获取缓存的看板信息
func (c *Cache) GetCachedBoard(boardID string) (*domain.Board, error) {
	var board domain.Board
	if err := c.getJSON(fmt.Sprintf("board:%s", boardID), &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// DeleteCachedBoard 删除缓存的看板信息
func (c *Cache) DeleteCachedBoard(boardID string) error {
	return c.client.Del(c.ctx, fmt.Sprintf("board:%s", boardID)).Err()
}

// ========== 附件缓存 ==========

// CacheAttachment 缓存附件信息
func (c *Cache) CacheAttachment(attachment *domain.Attachment, ttl time.Duration) error {
	return c.setJSON(fmt.Sprintf("attachment:%s", attachment.ID), attachment, ttl)
}

// GetCachedAttachment 获取缓存的附件信息
func (c *Cache) GetCachedAttachment(id string) (*domain.Attachment, error) {
	var attachment domain.Attachment
	if err := c.getJSON(fmt.Sprintf("attachment:%s", id), &attachment); err != nil {
		return nil, err
	}
	return &attachment, nil
}

// DeleteCachedAttachment 删除缓存的附件信息
func (c *Cache) DeleteCachedAttachment(id string) error {
	return c.client.Del(c.ctx, fmt.Sprintf("attachment:%s", id)).Err()
}

// ========== 内部辅助 ==========

func (c *Cache) setJSON(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, key, data, ttl).Err()
}

func (c *Cache) getJSON(key string, out interface{}) error {
	data, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal([]byte(data), out)
}
