package core

import "beatmapvault/pkg/types"

// Blob 代表一个完整的文件内容
// 去重粒度是整个文件：相同字节 => 相同 Hash => 同一条 Content 记录
type Blob struct {
	hash types.Hash
	data []byte
}

func NewBlob(data []byte) *Blob {
	return &Blob{
		hash: CalculateBlobHash(data),
		data: data,
	}
}

func (b *Blob) Type() ObjectType { return TypeBlob }
func (b *Blob) ID() types.Hash   { return b.hash }
func (b *Blob) Bytes() []byte    { return b.data }
func (b *Blob) Size() int64      { return int64(len(b.data)) }
