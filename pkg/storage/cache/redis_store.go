package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"beatmapvault/pkg/core"
	"beatmapvault/pkg/storage"
	"beatmapvault/pkg/types"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bsv:blob:"

// CachedStore 是一个装饰器，它为底层的 storage.Store 添加 Redis 存在性缓存
// 对象按内容寻址且只增不删，所以 "存在" 一旦成立就永远成立，缓存不会脏
type CachedStore struct {
	backend storage.Store
	client  *redis.Client
	ttl     time.Duration
	log     *slog.Logger
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
}

func NewCachedStore(backend storage.Store, cfg Config) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(backend, client, cfg.TTL), nil
}

// NewWithClient 复用已有的 Redis 客户端
func NewWithClient(backend storage.Store, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     ttl,
		log:     slog.Default().With(slog.String("component", "blob-cache")),
	}
}

func (s *CachedStore) cacheKey(hash types.Hash) string {
	return keyPrefix + string(hash)
}

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	key := s.cacheKey(hash)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// 缓存故障降级：Redis 挂了就直接查底层存储
		s.log.Warn("redis exists failed, falling back to backend", slog.Any("err", err))
	} else if val > 0 {
		return true, nil
	}

	found, err := s.backend.Has(ctx, hash)
	if err != nil {
		return false, err
	}

	if found {
		// 异步回填，不阻塞主流程；上层 ctx 取消也要能完成
		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.client.Set(fillCtx, key, "1", s.ttl)
		}()
	}

	return found, nil
}

// Put 利用 Has 的缓存做预检，已存在的内容不会再打到底层存储
func (s *CachedStore) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.backend.Put(ctx, obj); err != nil {
		return err
	}

	// 只有底层写成功了才写缓存；这里的错误不影响主流程
	if err := s.client.Set(ctx, s.cacheKey(obj.ID()), "1", s.ttl).Err(); err != nil {
		s.log.Warn("redis set failed", slog.String("hash", obj.ID().Short()), slog.Any("err", err))
	}
	return nil
}

// Get 透传 - 不缓存文件内容
// 音频和背景图可能有几十 MB，Redis 只存存在性
func (s *CachedStore) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	return s.backend.Get(ctx, hash)
}

// Close 释放 Redis 连接
func (s *CachedStore) Close() error {
	return s.client.Close()
}
