package registry

import (
	"context"
	"testing"

	"beatmapvault/pkg/chain"
	"beatmapvault/pkg/meta"
	"beatmapvault/pkg/storage/disk"
	"beatmapvault/pkg/testutil"
	"beatmapvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Registry, *meta.Repository) {
	t.Helper()
	repo := testutil.NewRepository(t)
	blobs, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)
	return New(repo, chain.NewManager(repo, blobs, nil), nil), repo
}

func mustContent(t *testing.T, repo *meta.Repository, hash types.Hash) types.ContentID {
	t.Helper()
	id, err := repo.InsertContent(context.Background(), hash, 1)
	require.NoError(t, err)
	return id
}

const testHash = types.Hash("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")

func TestHeadOf_Absent(t *testing.T) {
	reg, _ := setup(t)
	ctx := context.Background()

	_, ok, err := reg.HeadOf(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "未登记的 beatmapset 没有 head")

	require.NoError(t, reg.Register(ctx, 1))
	_, ok, err = reg.HeadOf(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "登记但没有版本的 beatmapset 也没有 head")
}

func TestAppend_AdvancesHead(t *testing.T) {
	reg, repo := setup(t)
	ctx := context.Background()
	require.NoError(t, reg.Register(ctx, 1))
	require.NoError(t, reg.Register(ctx, 1))

	c := mustContent(t, repo, testHash)

	v1, err := reg.Append(ctx, 1, []chain.Entry{{Filename: "a.map", Content: c}})
	require.NoError(t, err)
	head, ok, err := reg.HeadOf(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v1, head)

	v2, err := reg.Append(ctx, 1, []chain.Entry{{Filename: "a.map", Content: c}})
	require.NoError(t, err)
	head, _, err = reg.HeadOf(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, v2, head)

	v, err := repo.GetVersion(ctx, v2)
	require.NoError(t, err)
	require.NotNil(t, v.PreviousVersionID)
	assert.Equal(t, v1, *v.PreviousVersionID)
}

func TestAppend_UnknownPackage(t *testing.T) {
	reg, _ := setup(t)
	_, err := reg.Append(context.Background(), 9, nil)
	assert.ErrorIs(t, err, ErrUnknownPackage)
}

func TestHeadOf_PackagesAreIndependent(t *testing.T) {
	reg, repo := setup(t)
	ctx := context.Background()
	require.NoError(t, reg.Register(ctx, 1))
	require.NoError(t, reg.Register(ctx, 2))
	c := mustContent(t, repo, testHash)

	v1, err := reg.Append(ctx, 1, []chain.Entry{{Filename: "a", Content: c}})
	require.NoError(t, err)
	v2, err := reg.Append(ctx, 2, []chain.Entry{{Filename: "a", Content: c}})
	require.NoError(t, err)

	h1, _, err := reg.HeadOf(ctx, 1)
	require.NoError(t, err)
	h2, _, err := reg.HeadOf(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, v1, h1)
	assert.Equal(t, v2, h2)
}

func TestHeadOf_CorruptedHead(t *testing.T) {
	reg, repo := setup(t)
	ctx := context.Background()
	require.NoError(t, reg.Register(ctx, 1))

	c := mustContent(t, repo, testHash)
	v1, err := reg.Append(ctx, 1, []chain.Entry{{Filename: "a.map", Content: c}})
	require.NoError(t, err)
	_, err = reg.Append(ctx, 1, []chain.Entry{{Filename: "b.map", Content: c}})
	require.NoError(t, err)

	// 去掉后继唯一约束后从 v1 分叉，制造两个 head
	require.NoError(t, repo.DB().GetConn().Exec("DROP INDEX idx_versions_previous").Error)
	require.NoError(t, repo.InsertVersion(ctx, &meta.VersionModel{BeatmapsetID: 1, PreviousVersionID: &v1}))

	_, ok, err := reg.HeadOf(ctx, 1)
	assert.ErrorIs(t, err, ErrCorruptedHead)
	assert.ErrorIs(t, err, chain.ErrChainCorrupted)
	assert.False(t, ok)

	// 链已损坏时拒绝继续追加
	_, err = reg.Append(ctx, 1, []chain.Entry{{Filename: "c.map", Content: c}})
	assert.ErrorIs(t, err, ErrCorruptedHead)
}
