// Package cache 提供跨进程共享的班段组合目录缓存（Redis）
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paiban/planning/internal/config"
	apperrors "github.com/paiban/planning/pkg/errors"
	"github.com/paiban/planning/pkg/daycombo"
	"github.com/paiban/planning/pkg/logger"
)

const keyPrefix = "paiban:daycombo"

// NewRedisClient 按配置创建 Redis 客户端并测试连通性
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("Redis 连接测试失败: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("Redis 连接成功")
	return rdb, nil
}

// ComboStore 以 (岗位, 指纹) 为键存取 JSON 序列化的组合目录
// client 为 nil 时所有读取均未命中，写入为空操作
type ComboStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewComboStore 创建目录存储
func NewComboStore(client *redis.Client, ttl time.Duration) *ComboStore {
	return &ComboStore{client: client, ttl: ttl}
}

// Enabled 是否连接了 Redis
func (s *ComboStore) Enabled() bool {
	return s != nil && s.client != nil
}

// Key 返回目录的缓存键
func Key(unitID int64, fingerprint string) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, unitID, fingerprint)
}

// Get 读取目录，未命中返回 (nil, false, nil)
func (s *ComboStore) Get(ctx context.Context, unitID int64, fingerprint string) (*daycombo.Catalogue, bool, error) {
	if !s.Enabled() {
		return nil, false, nil
	}

	data, err := s.client.Get(ctx, Key(unitID, fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeCacheError, "读取组合目录缓存失败")
	}

	cat, err := decode(data)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeCacheError, "组合目录缓存已损坏")
	}
	return cat, true, nil
}

// Set 写入目录
func (s *ComboStore) Set(ctx context.Context, cat *daycombo.Catalogue) error {
	if !s.Enabled() {
		return nil
	}

	data, err := encode(cat)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "序列化组合目录失败")
	}
	if err := s.client.Set(ctx, Key(cat.UnitID, cat.Fingerprint), data, s.ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "写入组合目录缓存失败")
	}
	return nil
}

func encode(cat *daycombo.Catalogue) ([]byte, error) {
	return json.Marshal(cat)
}

func decode(data []byte) (*daycombo.Catalogue, error) {
	var cat daycombo.Catalogue
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}
