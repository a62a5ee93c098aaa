package meta

import (
	"context"
	"path/filepath"
	"testing"

	"beatmapvault/pkg/core"
	"beatmapvault/pkg/types"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

// -----------------------------------------------------------------------------
// 通用辅助函数 (Helpers)
// -----------------------------------------------------------------------------

// setupTestRepo 构建隔离的测试环境
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDB(context.Background(), Config{
		Driver:   DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "meta.db"),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db)
}

// mockHash 生成合法的测试用 Hash
func mockHash(input string) types.Hash {
	return core.CalculateBlobHash([]byte(input))
}

// mustInsertContent 插入 Content，失败则终止
func mustInsertContent(t *testing.T, repo *Repository, input string) types.ContentID {
	t.Helper()
	id, err := repo.InsertContent(context.Background(), mockHash(input), int64(len(input)))
	require.NoError(t, err)
	return id
}

// mustInsertVersion 插入 Version，失败则终止
func mustInsertVersion(t *testing.T, repo *Repository, pkg types.PackageID, prev *types.VersionID) types.VersionID {
	t.Helper()
	v := &VersionModel{BeatmapsetID: pkg, PreviousVersionID: prev}
	require.NoError(t, repo.InsertVersion(context.Background(), v))
	require.NotZero(t, v.ID)
	return v.ID
}

func ptr[T any](v T) *T { return &v }
