package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"beatmapvault/pkg/chain"
	"beatmapvault/pkg/content"
	"beatmapvault/pkg/guard"
	"beatmapvault/pkg/logging"
	"beatmapvault/pkg/meta"
	"beatmapvault/pkg/registry"
	"beatmapvault/pkg/storage"
	"beatmapvault/pkg/storage/cache"
	"beatmapvault/pkg/storage/disk"
	"beatmapvault/pkg/storage/s3"
	"beatmapvault/pkg/submission"

	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器
// 它持有所有 "单例" 服务
type App struct {
	Log *slog.Logger

	DB    *meta.DB
	Repo  *meta.Repository
	Blobs storage.Store

	Contents   *content.Store
	Chain      *chain.Manager
	Registry   *registry.Registry
	Guard      *guard.Guard
	Submission *submission.Service

	closers []io.Closer
}

// NewApp 按 Viper 配置组装所有组件，不关心具体的 CLI 命令
func NewApp(ctx context.Context) (*App, error) {
	log := logging.Setup(viper.GetString("log.level"), viper.GetString("log.format"))

	// 1. 元数据库
	db, err := meta.NewDB(ctx, dbConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// 2. 字节存储
	blobs, err := initStore(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	a := &App{Log: log, DB: db, Blobs: blobs}
	a.closers = append(a.closers, db)
	if c, ok := blobs.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	// 3. 领域服务
	a.Repo = meta.NewRepository(db)
	a.Contents = content.NewStore(a.Repo, blobs, log)
	a.Chain = chain.NewManager(a.Repo, blobs, log)
	a.Registry = registry.New(a.Repo, a.Chain, log)
	a.Guard = guard.New(a.Repo, log)
	a.Submission = submission.NewService(a.Contents, a.Chain, a.Registry,
		submission.WithConcurrency(viper.GetInt("submission.concurrency")),
		submission.WithLogger(log),
	)
	return a, nil
}

// Close 按创建的逆序释放资源
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func dbConfig() meta.Config {
	return meta.Config{
		Driver:   viper.GetString("database.driver"),
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
		Path:     viper.GetString("database.path"),
		LogLevel: logging.GormLevel(viper.GetString("log.level")),
	}
}

// initStore 根据 storage.type 选择字节存储后端，配置了 redis 时再包一层存在性缓存
func initStore(ctx context.Context) (storage.Store, error) {
	var backend storage.Store

	switch storageType := viper.GetString("storage.type"); storageType {
	case "", "disk":
		path := viper.GetString("storage.path")
		if path == "" {
			return nil, fmt.Errorf("storage.path is required for disk storage")
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, err
		}
		store, err := disk.NewAdapter(path)
		if err != nil {
			return nil, err
		}
		backend = store

	case "s3":
		store, err := s3.NewAdapter(ctx, s3.Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			Region:          viper.GetString("s3.region"),
			Bucket:          viper.GetString("s3.bucket"),
			Prefix:          viper.GetString("s3.prefix"),
			AccessKeyID:     viper.GetString("s3.access_key"),
			SecretAccessKey: viper.GetString("s3.secret_key"),
		})
		if err != nil {
			return nil, err
		}
		backend = store

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}

	redisURL := viper.GetString("cache.redis_url")
	if redisURL == "" {
		return backend, nil
	}
	return cache.NewCachedStore(backend, cache.Config{
		RedisURL: redisURL,
		TTL:      viper.GetDuration("cache.ttl"),
	})
}
