package submission

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"beatmapvault/pkg/chain"
	"beatmapvault/pkg/content"
	"beatmapvault/pkg/meta"
	"beatmapvault/pkg/registry"
	"beatmapvault/pkg/storage/disk"
	"beatmapvault/pkg/testutil"
	"beatmapvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo    *meta.Repository
	chain   *chain.Manager
	reg     *registry.Registry
	service *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repo := testutil.NewRepository(t)
	blobs, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)

	manager := chain.NewManager(repo, blobs, nil)
	reg := registry.New(repo, manager, nil)
	return &fixture{
		repo:    repo,
		chain:   manager,
		reg:     reg,
		service: NewService(content.NewStore(repo, blobs, nil), manager, reg, WithConcurrency(4)),
	}
}

func files(pairs ...string) []File {
	out := make([]File, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, File{Name: pairs[i], Data: []byte(pairs[i+1])})
	}
	return out
}

func (f *fixture) entries(t *testing.T, v types.VersionID) map[string]chain.File {
	t.Helper()
	list, err := f.chain.Entries(context.Background(), v)
	require.NoError(t, err)
	out := make(map[string]chain.File, len(list))
	for _, e := range list {
		out[e.Filename] = e
	}
	return out
}

func TestSubmit_FirstVersion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.service.Submit(ctx, 1, files("a.osu", "v1", "audio.mp3", "mp3"), map[string]any{"user_id": 2})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Nil(t, res.Previous)
	assert.Equal(t, 2, res.Stored)
	assert.Zero(t, res.Reused)

	head, ok, err := f.reg.HeadOf(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.Version, head)

	v, err := f.chain.Get(ctx, res.Version)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.Meta["user_id"])
}

func TestSubmit_CopyForward(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.service.Submit(ctx, 1, files("a.osu", "v1", "audio.mp3", "mp3"), nil)
	require.NoError(t, err)

	second, err := f.service.Submit(ctx, 1, files("a.osu", "v2", "audio.mp3", "mp3", "bg.jpg", "jpg"), nil)
	require.NoError(t, err)
	assert.True(t, second.Created)
	require.NotNil(t, second.Previous)
	assert.Equal(t, first.Version, *second.Previous)
	assert.Equal(t, 1, second.Reused, "audio.mp3 未改变，应沿用 ContentID")
	assert.Equal(t, 2, second.Stored)

	e1 := f.entries(t, first.Version)
	e2 := f.entries(t, second.Version)
	assert.Equal(t, e1["audio.mp3"].Content, e2["audio.mp3"].Content)
	assert.NotEqual(t, e1["a.osu"].Content, e2["a.osu"].Content)
	assert.Len(t, e2, 3)
}

func TestSubmit_RenamedFileSharesContent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.service.Submit(ctx, 1, files("old.wav", "hit"), nil)
	require.NoError(t, err)
	second, err := f.service.Submit(ctx, 1, files("new.wav", "hit"), nil)
	require.NoError(t, err)

	// 不同文件名不走 copy-forward，但内容去重仍然命中
	assert.Zero(t, second.Reused)
	assert.Equal(t, f.entries(t, first.Version)["old.wav"].Content, f.entries(t, second.Version)["new.wav"].Content)

	var rows int64
	require.NoError(t, f.repo.DB().GetConn().Model(&meta.ContentModel{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestSubmit_UnchangedKeepsHead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.service.Submit(ctx, 1, files("a.osu", "v1", "b.osu", "v1b"), nil)
	require.NoError(t, err)

	// 相同文件集合，顺序不同
	again, err := f.service.Submit(ctx, 1, files("b.osu", "v1b", "a.osu", "v1"), nil)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.Version, again.Version)
	assert.Equal(t, 2, again.Reused)

	n, err := f.repo.CountVersions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSubmit_RemovedFileIsNotCarried(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.service.Submit(ctx, 1, files("a.osu", "v1", "extra.png", "png"), nil)
	require.NoError(t, err)
	second, err := f.service.Submit(ctx, 1, files("a.osu", "v1"), nil)
	require.NoError(t, err)

	assert.True(t, second.Created)
	e := f.entries(t, second.Version)
	assert.Len(t, e, 1)
	assert.Contains(t, e, "a.osu")
}

func TestSubmit_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.service.Submit(ctx, 1, nil, nil)
	assert.ErrorIs(t, err, ErrEmptySubmission)

	_, err = f.service.Submit(ctx, 1, files("a.osu", "x", "a.osu", "y"), nil)
	assert.ErrorIs(t, err, chain.ErrDuplicateFilename)

	_, err = f.service.Submit(ctx, 1, files("", "x"), nil)
	assert.ErrorIs(t, err, chain.ErrInvalidFilename)

	var rows int64
	require.NoError(t, f.repo.DB().GetConn().Model(&meta.ContentModel{}).Count(&rows).Error)
	assert.Zero(t, rows, "非法请求不应写入任何内容")
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	write := func(rel, data string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0644))
	}
	write("a.osu", "osu")
	write("sb/bg.jpg", "jpg")
	write(".git/HEAD", "ref")
	write("notes.bak", "x")
	write(".bsvignore", "*.bak\n")

	got, err := LoadDir(root)
	require.NoError(t, err)

	names := make([]string, len(got))
	for i, f := range got {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"a.osu", "sb/bg.jpg"}, names)
	assert.Equal(t, []byte("jpg"), got[1].Data)
}
