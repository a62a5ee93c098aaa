// Package registry 维护 beatmapset 的登记与当前 head
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"beatmapvault/pkg/chain"
	"beatmapvault/pkg/meta"
	"beatmapvault/pkg/types"
)

var (
	ErrUnknownPackage = chain.ErrUnknownPackage

	// ErrCorruptedHead 表示 beatmapset 同时存在多个 head
	ErrCorruptedHead = fmt.Errorf("%w: multiple head versions", chain.ErrChainCorrupted)
)

// Registry 回答 "这个 beatmapset 当前是哪个版本"
// head 不单独存储：它就是没有后继的那个 Version，由链约束保证唯一
type Registry struct {
	repo    *meta.Repository
	manager *chain.Manager
	log     *slog.Logger
}

func New(repo *meta.Repository, manager *chain.Manager, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		repo:    repo,
		manager: manager,
		log:     log.With(slog.String("component", "registry")),
	}
}

// Register 幂等地登记一个 beatmapset
func (r *Registry) Register(ctx context.Context, pkg types.PackageID) error {
	return r.repo.EnsureBeatmapset(ctx, pkg)
}

// HeadOf 返回 beatmapset 的当前 head；还没有任何版本时 ok 为 false
func (r *Registry) HeadOf(ctx context.Context, pkg types.PackageID) (types.VersionID, bool, error) {
	head, err := r.repo.HeadVersion(ctx, pkg)
	switch {
	case err == nil:
		return head.ID, true, nil
	case errors.Is(err, meta.ErrNotFound):
		return 0, false, nil
	case errors.Is(err, meta.ErrAmbiguousHead):
		r.log.Error("beatmapset has more than one head", slog.Uint64("beatmapset_id", uint64(pkg)))
		return 0, false, fmt.Errorf("%w: beatmapset %d", ErrCorruptedHead, pkg)
	default:
		return 0, false, err
	}
}

// Append 在当前 head 之后追加一个版本
//
// 读 head 与写入之间没有锁：如果期间有其他写者抢先追加，
// 链约束会拒绝本次写入并返回 chain.ErrHeadMoved，由调用方决定是否重试。
func (r *Registry) Append(ctx context.Context, pkg types.PackageID, entries []chain.Entry, opts ...chain.Option) (types.VersionID, error) {
	ok, err := r.repo.BeatmapsetExists(ctx, pkg)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPackage, pkg)
	}

	head, found, err := r.HeadOf(ctx, pkg)
	if err != nil {
		return 0, err
	}
	var prev *types.VersionID
	if found {
		prev = &head
	}
	return r.manager.CreateVersion(ctx, pkg, prev, entries, opts...)
}
