// Package submission 把一次 beatmapset 上传组装成一个新版本
//
// 流程：存储所有文件内容 -> 与当前 head 比较 (copy-forward) -> 追加版本。
// 链的一致性由 chain 的约束保证，这里只负责组装 entries。
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"beatmapvault/pkg/chain"
	"beatmapvault/pkg/content"
	"beatmapvault/pkg/core"
	"beatmapvault/pkg/registry"
	"beatmapvault/pkg/types"

	"golang.org/x/sync/errgroup"
)

var ErrEmptySubmission = errors.New("submission contains no files")

// File 是上传中的一个文件
type File struct {
	Name string
	Data []byte
}

// Result 描述一次提交的结果
type Result struct {
	Version types.VersionID

	// Created 为 false 表示文件集合与 head 完全一致，没有创建新版本
	Created bool

	Previous *types.VersionID
	Stored   int // 新写入 (或去重命中) 的文件数
	Reused   int // 与 head 同名同内容、直接沿用 ContentID 的文件数
}

// Service 是提交的编排者
type Service struct {
	contents    *content.Store
	chain       *chain.Manager
	registry    *registry.Registry
	concurrency int
	log         *slog.Logger
}

type Option func(*Service)

// WithConcurrency 限制同时写入的文件数
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(contents *content.Store, manager *chain.Manager, reg *registry.Registry, opts ...Option) *Service {
	s := &Service{
		contents:    contents,
		chain:       manager,
		registry:    reg,
		concurrency: runtime.NumCPU(),
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "submission"))
	return s
}

// Submit 为 beatmapset 提交一组完整的文件
//
// files 必须是该版本的全部文件：未列出的文件不会从 head 继承。
// 与 head 文件名、内容都相同的文件直接沿用 head 的 ContentID；
// 整体与 head 相同时不创建新版本。
func (s *Service) Submit(ctx context.Context, pkg types.PackageID, files []File, meta map[string]any) (*Result, error) {
	if len(files) == 0 {
		return nil, ErrEmptySubmission
	}

	// 1. 入口处先做文件名校验，避免写了一堆内容才发现请求非法
	entries := make([]chain.Entry, len(files))
	for i, f := range files {
		entries[i].Filename = f.Name
	}
	if err := chain.ValidateEntries(entries); err != nil {
		return nil, err
	}

	if err := s.registry.Register(ctx, pkg); err != nil {
		return nil, err
	}

	// 2. 读取当前 head 的文件表
	res := &Result{}
	headFiles := map[string]chain.File{}
	var head *chain.Version
	if id, ok, err := s.registry.HeadOf(ctx, pkg); err != nil {
		return nil, err
	} else if ok {
		if head, err = s.chain.Get(ctx, id); err != nil {
			return nil, err
		}
		existing, err := s.chain.Entries(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, f := range existing {
			headFiles[f.Filename] = f
		}
		res.Previous = &head.ID
	}

	// 3. 并发写入内容；head 中同名同内容的文件直接沿用
	resolved := make([]chain.File, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, f := range files {
		hash := core.CalculateBlobHash(f.Data)
		size := int64(len(f.Data))

		if prev, ok := headFiles[f.Name]; ok && prev.Hash == hash && prev.Size == size {
			resolved[i] = prev
			res.Reused++
			continue
		}

		res.Stored++
		g.Go(func() error {
			id, err := s.contents.Store(gctx, f.Data)
			if err != nil {
				return fmt.Errorf("failed to store %q: %w", f.Name, err)
			}
			resolved[i] = chain.File{Filename: f.Name, Content: id, Hash: hash, Size: size}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 4. 文件集合没有变化则不产生新版本
	manifest, err := chain.BuildManifest(resolved)
	if err != nil {
		return nil, err
	}
	if head != nil && head.ManifestHash == manifest.ID() {
		s.log.Info("submission unchanged, keeping head",
			slog.Uint64("beatmapset_id", uint64(pkg)),
			slog.Uint64("version_id", uint64(head.ID)),
		)
		res.Version = head.ID
		return res, nil
	}

	// 5. 以读到的 head 为前驱追加：期间 head 被推进会得到 chain.ErrHeadMoved
	for i, f := range resolved {
		entries[i].Content = f.Content
	}
	var opts []chain.Option
	if len(meta) > 0 {
		opts = append(opts, chain.WithMeta(meta))
	}
	id, err := s.chain.CreateVersion(ctx, pkg, res.Previous, entries, opts...)
	if err != nil {
		return nil, err
	}

	res.Version = id
	res.Created = true
	s.log.Info("submission accepted",
		slog.Uint64("beatmapset_id", uint64(pkg)),
		slog.Uint64("version_id", uint64(id)),
		slog.Int("stored", res.Stored),
		slog.Int("reused", res.Reused),
	)
	return res, nil
}
