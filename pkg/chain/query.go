package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"beatmapvault/pkg/core"
	"beatmapvault/pkg/meta"
	"beatmapvault/pkg/types"
)

// Get 读取单个 Version
func (m *Manager) Get(ctx context.Context, id types.VersionID) (*Version, error) {
	v, err := m.repo.GetVersion(ctx, id)
	if errors.Is(err, meta.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrVersionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return toVersion(v)
}

// Entries 返回 Version 的全部文件，按文件名排序
func (m *Manager) Entries(ctx context.Context, id types.VersionID) ([]File, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := m.repo.ListVersionFiles(ctx, id)
	if err != nil {
		return nil, err
	}
	files := make([]File, len(rows))
	for i, r := range rows {
		files[i] = File{Filename: r.Filename, Content: r.ContentID, Hash: r.Hash, Size: r.Size}
	}
	return files, nil
}

// Manifest 从 blob 存储读回 Version 的清单
func (m *Manager) Manifest(ctx context.Context, id types.VersionID) (*core.Manifest, error) {
	v, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rc, err := m.blobs.Get(ctx, v.ManifestHash)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest %s of version %d: %w", v.ManifestHash.Short(), id, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	manifest, err := core.DecodeManifest(data)
	if err != nil {
		return nil, err
	}
	if manifest.ID() != v.ManifestHash {
		return nil, fmt.Errorf("%w: manifest of version %d hashes to %s, expected %s",
			ErrChainCorrupted, id, manifest.ID().Short(), v.ManifestHash.Short())
	}
	return manifest, nil
}

// History 从 head 开始沿前驱回溯，返回 [head, ..., root]
// 步数以该 beatmapset 的版本总数为上限，超过即说明链上有环
func (m *Manager) History(ctx context.Context, head types.VersionID) ([]Version, error) {
	first, err := m.Get(ctx, head)
	if err != nil {
		return nil, err
	}
	limit, err := m.repo.CountVersions(ctx, first.Package)
	if err != nil {
		return nil, err
	}

	history := []Version{*first}
	cur := first
	for cur.Previous != nil {
		if int64(len(history)) >= limit {
			return nil, fmt.Errorf("%w: beatmapset %d walked %d steps from version %d without reaching a root",
				ErrChainCorrupted, first.Package, len(history), head)
		}
		prev, err := m.Get(ctx, *cur.Previous)
		if err != nil {
			return nil, fmt.Errorf("%w: version %d: %v", ErrChainCorrupted, cur.ID, err)
		}
		if prev.Package != first.Package {
			return nil, fmt.Errorf("%w: version %d links across beatmapsets", ErrChainCorrupted, cur.ID)
		}
		history = append(history, *prev)
		cur = prev
	}
	return history, nil
}

// VerifyChain 检查 beatmapset 的版本恰好构成一条从唯一 head 到根的链
func (m *Manager) VerifyChain(ctx context.Context, pkg types.PackageID) error {
	total, err := m.repo.CountVersions(ctx, pkg)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	head, err := m.repo.HeadVersion(ctx, pkg)
	switch {
	case errors.Is(err, meta.ErrAmbiguousHead):
		return fmt.Errorf("%w: beatmapset %d has more than one head", ErrChainCorrupted, pkg)
	case errors.Is(err, meta.ErrNotFound):
		return fmt.Errorf("%w: beatmapset %d has versions but no head", ErrChainCorrupted, pkg)
	case err != nil:
		return err
	}

	history, err := m.History(ctx, head.ID)
	if err != nil {
		return err
	}
	if int64(len(history)) != total {
		return fmt.Errorf("%w: beatmapset %d has %d versions but only %d are reachable from head %d",
			ErrChainCorrupted, pkg, total, len(history), head.ID)
	}
	return nil
}

func toVersion(v *meta.VersionModel) (*Version, error) {
	out := &Version{
		ID:           v.ID,
		Package:      v.BeatmapsetID,
		Previous:     v.PreviousVersionID,
		CreatedAt:    v.CreatedAt,
		ManifestHash: v.ManifestHash,
	}
	if len(v.Meta) > 0 {
		if err := json.Unmarshal(v.Meta, &out.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode meta of version %d: %w", v.ID, err)
		}
	}
	return out, nil
}
