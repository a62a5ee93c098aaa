package storage

import (
	"context"
	"errors"
	"io"

	"beatmapvault/pkg/core"
	"beatmapvault/pkg/types"
)

var (
	ErrNotFound = errors.New("object not found")
)

// Store 是文件字节的持久化后端，按内容哈希寻址
// 实现可以是本地磁盘、S3 兼容存储，或者带缓存的装饰器
//
// Content 的元数据 (hash, size, file_id) 在数据库里，这里只负责字节本身。
type Store interface {
	// Put 持久化一个对象，必须是幂等的：同一个 Hash 写多次没有副作用
	Put(ctx context.Context, obj core.Object) error

	// Get 根据 Hash 读取原始数据，调用方负责 Close
	Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error)

	// Has 检查对象是否存在
	Has(ctx context.Context, hash types.Hash) (bool, error)
}
