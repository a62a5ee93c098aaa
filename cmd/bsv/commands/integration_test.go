package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"beatmapvault/pkg/guard"
	"beatmapvault/pkg/meta"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

// setupIntegrationEnv 使用 真实文件系统 + sqlite 文件库 搭建隔离环境
// 每次 run 都会通过 PersistentPreRunE 重新组装 App，与真实 CLI 行为一致
func setupIntegrationEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	viper.Reset()
	viper.Set("database.driver", meta.DriverSQLite)
	viper.Set("database.path", filepath.Join(dir, "meta.db"))
	viper.Set("storage.type", "disk")
	viper.Set("storage.path", filepath.Join(dir, "objects"))
	viper.Set("log.level", "error")
	viper.Set("log.format", "json")

	BSV = nil
	t.Cleanup(func() {
		if BSV != nil {
			_ = BSV.Close()
			BSV = nil
		}
	})
	return dir
}

// run 执行一条 CLI 命令并返回 stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// flag 变量是包级的，多次 Execute 之间需要手动复位
	submitMeta = nil
	resetConfirm = false
	waitExpect, waitNull, waitUnbounded = "", false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(root))
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0644))
	}
}

func TestCLI_SubmitHeadLogFilesCat(t *testing.T) {
	dir := setupIntegrationEnv(t)
	src := filepath.Join(dir, "set")

	out := mustRun(t, "head", "1")
	assert.Contains(t, out, "has no versions")

	writeTree(t, src, map[string]string{"a.osu": "v1", "audio.mp3": "mp3"})
	out = mustRun(t, "submit", "1", src, "--meta", "user=2")
	assert.Contains(t, out, "created version 1")

	writeTree(t, src, map[string]string{"a.osu": "v2", "audio.mp3": "mp3"})
	out = mustRun(t, "submit", "1", src)
	assert.Contains(t, out, "created version 2 (1 stored, 1 carried forward)")

	out = mustRun(t, "submit", "1", src)
	assert.Contains(t, out, "unchanged")

	assert.Equal(t, "2\n", mustRun(t, "head", "1"))

	out = mustRun(t, "log", "1")
	assert.Contains(t, out, "version 2")
	assert.Contains(t, out, "Parent:   1")
	assert.Contains(t, out, "user=2")

	out = mustRun(t, "files", "2")
	assert.Contains(t, out, "a.osu")
	assert.Contains(t, out, "audio.mp3")

	assert.Equal(t, "v2", mustRun(t, "cat", "2", "a.osu"))
	assert.Equal(t, "v1", mustRun(t, "cat", "1", "a.osu"))

	_, err := run(t, "cat", "2", "missing.osu")
	assert.Error(t, err)

	assert.Contains(t, mustRun(t, "verify", "1"), "chain ok")

	out = mustRun(t, "show", "2")
	assert.Contains(t, out, "Files:    2")

	target := filepath.Join(dir, "restored")
	assert.Contains(t, mustRun(t, "export", "1", target), "exported 2 files")
	got, err := os.ReadFile(filepath.Join(target, "a.osu"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
}

func TestCLI_ResetIsGuarded(t *testing.T) {
	dir := setupIntegrationEnv(t)
	src := filepath.Join(dir, "set")
	writeTree(t, src, map[string]string{"a.osu": "v1"})
	mustRun(t, "submit", "7", src)

	// 不带 --yes 只报告 guard 结论
	out := mustRun(t, "reset")
	assert.Contains(t, out, "guard: safe")
	assert.Equal(t, "1\n", mustRun(t, "head", "7"))

	// 打上生产标记后拒绝执行
	db, err := meta.NewDB(context.Background(), meta.Config{
		Driver:   meta.DriverSQLite,
		Path:     viper.GetString("database.path"),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, meta.NewRepository(db).SetCounter(context.Background(), guard.ProductionMarker, 1))
	require.NoError(t, db.Close())

	_, err = run(t, "reset", "--yes")
	require.ErrorIs(t, err, guard.ErrSafetyViolation)
	assert.Equal(t, "1\n", mustRun(t, "head", "7"), "被拒绝的 reset 不能修改任何数据")
}

func TestCLI_Reset(t *testing.T) {
	dir := setupIntegrationEnv(t)
	src := filepath.Join(dir, "set")
	writeTree(t, src, map[string]string{"a.osu": "v1"})
	mustRun(t, "submit", "7", src)

	assert.Contains(t, mustRun(t, "reset", "--yes"), "reinitialised")
	assert.Contains(t, mustRun(t, "head", "7"), "has no versions")
}

func TestCLI_Wait(t *testing.T) {
	setupIntegrationEnv(t)

	out := mustRun(t, "wait", "SELECT COUNT(*) FROM beatmapset_versions", "--expect", "0")
	assert.Contains(t, out, "converged")

	mustRun(t, "wait", "SELECT count FROM counts WHERE name = 'nothing'", "--null")

	_, err := run(t, "wait", "SELECT 1")
	assert.ErrorContains(t, err, "exactly one of --expect or --null")
}
