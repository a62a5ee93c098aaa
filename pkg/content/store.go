// Package content 实现全局去重的内容寻址存储
//
// 一个 Content 由其字节的 SHA-256 和字节长度确定。相同的字节无论来自哪个
// beatmapset、哪个版本、哪个文件名，都只会有一条记录。
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"beatmapvault/pkg/core"
	"beatmapvault/pkg/meta"
	"beatmapvault/pkg/storage"
	"beatmapvault/pkg/types"
)

var (
	// ErrHashCollisionOrCorruption 表示已有记录与新内容 Hash 相同但长度不同
	// 这是数据完整性问题，绝不能静默复用
	ErrHashCollisionOrCorruption = errors.New("hash collision or corruption detected")

	ErrNotFound = errors.New("content not found")
)

// Index 是 Store 需要的最小元数据接口 (由 meta.Repository 实现)
type Index interface {
	FindContentByHash(ctx context.Context, hash types.Hash) (*meta.ContentModel, error)
	InsertContent(ctx context.Context, hash types.Hash, size int64) (types.ContentID, error)
	GetContent(ctx context.Context, id types.ContentID) (*meta.ContentModel, error)
}

// Content 是对外暴露的内容记录
type Content struct {
	ID   types.ContentID
	Hash types.Hash
	Size int64
}

// Store 负责内容的去重写入
// 不持有任何锁：并发正确性完全依赖数据库上 sha2_hash 的唯一约束
type Store struct {
	index Index
	blobs storage.Store
	log   *slog.Logger
}

func NewStore(index Index, blobs storage.Store, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		index: index,
		blobs: blobs,
		log:   log.With(slog.String("component", "content")),
	}
}

// Store 写入一段内容并返回其 ContentID
//
// 对于任意两次字节完全相同的调用，无论如何交错执行，返回的 ContentID 都相同。
func (s *Store) Store(ctx context.Context, data []byte) (types.ContentID, error) {
	blob := core.NewBlob(data)
	hash, size := blob.ID(), blob.Size()

	// 1. 去重短路：已有记录则校验长度后直接返回，不写任何东西
	existing, err := s.index.FindContentByHash(ctx, hash)
	if err == nil {
		return s.verify(existing, size)
	}
	if !errors.Is(err, meta.ErrNotFound) {
		return 0, fmt.Errorf("failed to look up content %s: %w", hash.Short(), err)
	}

	// 2. 先落字节，再插记录：数据库里的任何一行都保证能取回对应的字节
	if err := s.blobs.Put(ctx, blob); err != nil {
		return 0, fmt.Errorf("failed to persist content %s: %w", hash.Short(), err)
	}

	// 3. 插入记录
	id, err := s.index.InsertContent(ctx, hash, size)
	if err == nil {
		s.log.Debug("content stored", slog.String("hash", hash.Short()), slog.Int64("size", size), slog.Uint64("file_id", uint64(id)))
		return id, nil
	}
	if !errors.Is(err, meta.ErrDuplicateContent) {
		return 0, err
	}

	// 4. 并发竞争落败：别人抢先插入了同一 Hash，重新查询并返回赢家的 ID
	s.log.Debug("lost content insert race, re-reading winner", slog.String("hash", hash.Short()))
	winner, err := s.index.FindContentByHash(ctx, hash)
	if err != nil {
		return 0, fmt.Errorf("failed to re-read content %s after insert race: %w", hash.Short(), err)
	}
	return s.verify(winner, size)
}

// verify 校验已有记录的长度与本次内容一致
func (s *Store) verify(existing *meta.ContentModel, size int64) (types.ContentID, error) {
	if existing.Size != size {
		s.log.Error("hash collision or corruption detected",
			slog.String("hash", existing.Hash.String()),
			slog.Uint64("file_id", uint64(existing.ID)),
			slog.Int64("stored_size", existing.Size),
			slog.Int64("actual_size", size),
		)
		return 0, fmt.Errorf("%w: file %d (hash %s) has stored size %d, got %d",
			ErrHashCollisionOrCorruption, existing.ID, existing.Hash.Short(), existing.Size, size)
	}
	return existing.ID, nil
}

// StoreReader 读取全部内容后调用 Store
func (s *Store) StoreReader(ctx context.Context, r io.Reader) (types.ContentID, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read content: %w", err)
	}
	return s.Store(ctx, data)
}

// Get 返回 Content 记录
func (s *Store) Get(ctx context.Context, id types.ContentID) (*Content, error) {
	c, err := s.index.GetContent(ctx, id)
	if errors.Is(err, meta.ErrNotFound) {
		return nil, fmt.Errorf("%w: file %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &Content{ID: c.ID, Hash: c.Hash, Size: c.Size}, nil
}

// Open 打开 Content 的字节流，调用方负责 Close
func (s *Store) Open(ctx context.Context, id types.ContentID) (io.ReadCloser, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rc, err := s.blobs.Get(ctx, c.Hash)
	if errors.Is(err, storage.ErrNotFound) {
		// 记录存在但字节丢失，属于存储层事故
		return nil, fmt.Errorf("content %d (hash %s) is indexed but missing from blob storage: %w", id, c.Hash.Short(), err)
	}
	return rc, err
}
