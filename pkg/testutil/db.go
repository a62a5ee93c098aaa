// Package testutil 提供各个包测试共享的基础设施
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"beatmapvault/pkg/meta"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

// NewDB 为每个测试创建一个隔离的 SQLite 数据库 (临时文件，测试结束自动清理)
// 使用文件而不是 shared-cache 内存库：并发测试在内存共享缓存下会触发 "table is locked"
func NewDB(t *testing.T) *meta.DB {
	t.Helper()

	db, err := meta.NewDB(context.Background(), meta.Config{
		Driver:   meta.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "meta.db"),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewRepository 是 NewDB + meta.NewRepository 的快捷方式
func NewRepository(t *testing.T) *meta.Repository {
	t.Helper()
	return meta.NewRepository(NewDB(t))
}
