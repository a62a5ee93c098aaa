package core

import (
	"testing"

	"beatmapvault/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 辅助工具
// -----------------------------------------------------------------------------

// mockHash 生成一个合法的 64 字符 Hex 字符串
// 用于满足 Link 对 Hex 格式的要求
func mockHash(input string) types.Hash {
	return CalculateBlobHash([]byte(input))
}

// entry 构造一个指向 input 内容的清单条目
func entry(name, input string) ManifestEntry {
	return ManifestEntry{Filename: name, Content: NewLink(mockHash(input)), Size: int64(len(input))}
}

// mustNewManifest 创建 Manifest，如果失败直接终止测试
func mustNewManifest(t *testing.T, entries []ManifestEntry, msgAndArgs ...any) *Manifest {
	t.Helper()
	m, err := NewManifest(entries)
	require.NoError(t, err, msgAndArgs...)
	return m
}
