// Package chain 管理每个 beatmapset 的版本链
//
// 版本链是一条单链表：每个 Version 最多有一个前驱、最多有一个后继，
// 每个 beatmapset 最多有一个根。这些结构性保证由数据库约束实现，
// Manager 负责在写入前做语义校验，并把约束冲突翻译成领域错误。
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"beatmapvault/pkg/core"
	"beatmapvault/pkg/meta"
	"beatmapvault/pkg/storage"
	"beatmapvault/pkg/types"

	"gorm.io/datatypes"
)

// MaxFilenameLength 与 beatmapset_version_files.filename 的列宽一致
const MaxFilenameLength = 500

var (
	ErrInvalidChainLink  = errors.New("previous version does not exist or belongs to another beatmapset")
	ErrDuplicateFilename = errors.New("duplicate filename in version")
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrUnknownContent    = errors.New("entry references unknown content")
	ErrUnknownPackage    = errors.New("beatmapset is not registered")
	ErrVersionNotFound   = errors.New("version not found")

	// ErrHeadMoved 表示有其他写者抢先在同一个 head 上追加了版本
	// 调用方应重新读取 head 后决定是否重试
	ErrHeadMoved = errors.New("head version moved by a concurrent writer")

	// ErrChainCorrupted 表示链上出现了环或多个 head，正常写路径下不可能发生
	ErrChainCorrupted = errors.New("version chain is corrupted")
)

// Entry 是待写入的一个文件槽位
type Entry struct {
	Filename string
	Content  types.ContentID
}

// File 是已持久化 Version 中的一个文件 (带出内容的 hash 与 size)
type File struct {
	Filename string
	Content  types.ContentID
	Hash     types.Hash
	Size     int64
}

// Version 是对外暴露的版本记录
type Version struct {
	ID           types.VersionID
	Package      types.PackageID
	Previous     *types.VersionID
	CreatedAt    time.Time
	ManifestHash types.Hash
	Meta         map[string]any
}

// Option 配置 CreateVersion
type Option func(*createOptions)

type createOptions struct {
	meta map[string]any
}

// WithMeta 附加版本元数据 (提交者、客户端等)，以 JSON 存储
func WithMeta(meta map[string]any) Option {
	return func(o *createOptions) { o.meta = meta }
}

// Manager 是版本链的唯一写入口
type Manager struct {
	repo  *meta.Repository
	blobs storage.Store
	log   *slog.Logger
}

func NewManager(repo *meta.Repository, blobs storage.Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		repo:  repo,
		blobs: blobs,
		log:   log.With(slog.String("component", "chain")),
	}
}

// CreateVersion 在一个事务中创建 Version 及其全部文件槽位
//
// prev 为 nil 表示创建根版本。entries 原样持久化，不做任何 copy-forward。
// 失败时数据库中不会留下任何可观察的痕迹。
func (m *Manager) CreateVersion(ctx context.Context, pkg types.PackageID, prev *types.VersionID, entries []Entry, opts ...Option) (types.VersionID, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	// 1. 纯内存校验，不碰数据库
	if err := ValidateEntries(entries); err != nil {
		return 0, err
	}
	metaJSON, err := encodeMeta(o.meta)
	if err != nil {
		return 0, err
	}

	var created types.VersionID
	err = m.repo.Transaction(ctx, func(tx *meta.Repository) error {
		// 2. beatmapset 必须已登记
		ok, err := tx.BeatmapsetExists(ctx, pkg)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownPackage, pkg)
		}

		// 3. 前驱必须存在且属于同一个 beatmapset
		if prev != nil {
			pv, err := tx.GetVersion(ctx, *prev)
			if errors.Is(err, meta.ErrNotFound) {
				return fmt.Errorf("%w: version %d does not exist", ErrInvalidChainLink, *prev)
			}
			if err != nil {
				return err
			}
			if pv.BeatmapsetID != pkg {
				return fmt.Errorf("%w: version %d belongs to beatmapset %d, not %d",
					ErrInvalidChainLink, *prev, pv.BeatmapsetID, pkg)
			}
		}

		// 4. 所有引用的 Content 必须存在，顺便拿到 hash/size 构建清单
		files, err := resolveFiles(ctx, tx, entries)
		if err != nil {
			return err
		}
		manifest, err := BuildManifest(files)
		if err != nil {
			return err
		}
		if err := m.blobs.Put(ctx, manifest); err != nil {
			return fmt.Errorf("failed to persist manifest: %w", err)
		}

		// 5. 写 Version 行：链约束冲突意味着 head 已被别人推进
		v := &meta.VersionModel{
			BeatmapsetID:      pkg,
			PreviousVersionID: prev,
			ManifestHash:      manifest.ID(),
			Meta:              metaJSON,
		}
		if err := tx.InsertVersion(ctx, v); err != nil {
			switch {
			case errors.Is(err, meta.ErrConstraint):
				return fmt.Errorf("%w: %v", ErrHeadMoved, err)
			case errors.Is(err, meta.ErrReference):
				return fmt.Errorf("%w: %v", ErrInvalidChainLink, err)
			}
			return err
		}

		// 6. 写文件槽位
		rows := make([]meta.VersionFileModel, len(entries))
		for i, e := range entries {
			rows[i] = meta.VersionFileModel{ContentID: e.Content, VersionID: v.ID, Filename: e.Filename}
		}
		if err := tx.InsertVersionFiles(ctx, rows); err != nil {
			switch {
			case errors.Is(err, meta.ErrReference):
				return fmt.Errorf("%w: %v", ErrUnknownContent, err)
			case errors.Is(err, meta.ErrConstraint):
				return fmt.Errorf("%w: %v", ErrDuplicateFilename, err)
			}
			return err
		}

		created = v.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.log.Info("version created",
		slog.Uint64("beatmapset_id", uint64(pkg)),
		slog.Uint64("version_id", uint64(created)),
		slog.Int("files", len(entries)),
	)
	return created, nil
}

// ValidateEntries 校验文件名合法且互不重复
func ValidateEntries(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Filename == "" {
			return fmt.Errorf("%w: filename is empty", ErrInvalidFilename)
		}
		if utf8.RuneCountInString(e.Filename) > MaxFilenameLength {
			return fmt.Errorf("%w: filename has %d characters, limit is %d",
				ErrInvalidFilename, utf8.RuneCountInString(e.Filename), MaxFilenameLength)
		}
		if _, ok := seen[e.Filename]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateFilename, e.Filename)
		}
		seen[e.Filename] = struct{}{}
	}
	return nil
}

// resolveFiles 校验所有 ContentID 都存在，并返回带 hash/size 的文件列表
func resolveFiles(ctx context.Context, tx *meta.Repository, entries []Entry) ([]File, error) {
	ids := make([]types.ContentID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Content)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	contents, err := tx.FindContents(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[types.ContentID]meta.ContentModel, len(contents))
	for _, c := range contents {
		byID[c.ID] = c
	}

	files := make([]File, len(entries))
	for i, e := range entries {
		c, ok := byID[e.Content]
		if !ok {
			return nil, fmt.Errorf("%w: file %q references content %d", ErrUnknownContent, e.Filename, e.Content)
		}
		files[i] = File{Filename: e.Filename, Content: e.Content, Hash: c.Hash, Size: c.Size}
	}
	return files, nil
}

// BuildManifest 把文件列表转换成确定性的清单对象
func BuildManifest(files []File) (*core.Manifest, error) {
	entries := make([]core.ManifestEntry, len(files))
	for i, f := range files {
		entries[i] = core.ManifestEntry{
			Filename: f.Filename,
			Content:  core.NewLink(f.Hash),
			Size:     f.Size,
		}
	}
	manifest, err := core.NewManifest(entries)
	if errors.Is(err, core.ErrDuplicateEntry) {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateFilename, err)
	}
	return manifest, err
}

func encodeMeta(m map[string]any) (datatypes.JSON, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode version meta: %w", err)
	}
	return datatypes.JSON(b), nil
}
