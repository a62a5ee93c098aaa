package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"beatmapvault/pkg/types"
)

var ErrDuplicateEntry = errors.New("duplicate filename in manifest")

// ManifestEntry 描述 Version 中的一个文件槽位
// 只记录内容哈希和大小，不记录 ContentID：清单与具体数据库解耦，可以跨环境比较
type ManifestEntry struct {
	Filename string `cbor:"n"`
	Content  Link   `cbor:"h"`
	Size     int64  `cbor:"s"`
}

// Manifest 是一个 Version 文件集合的确定性快照
// 相同的文件集合 (与提交顺序无关) 总是得到相同的 Hash
type Manifest struct {
	hash     types.Hash `cbor:"-"`
	rawBytes []byte     `cbor:"-"`

	TypeVal ObjectType      `cbor:"t"`
	Entries []ManifestEntry `cbor:"e"`
}

// NewManifest 按文件名排序后编码，重复文件名视为错误
func NewManifest(entries []ManifestEntry) (*Manifest, error) {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b ManifestEntry) int {
		return strings.Compare(a.Filename, b.Filename)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Filename == sorted[i-1].Filename {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntry, sorted[i].Filename)
		}
	}
	if sorted == nil {
		// 空集合也要有稳定编码 (空数组而不是 null)
		sorted = []ManifestEntry{}
	}

	m := &Manifest{
		TypeVal: TypeManifest,
		Entries: sorted,
	}
	h, b, err := CalculateHash(m)
	if err != nil {
		return nil, err
	}
	m.hash = h
	m.rawBytes = b
	return m, nil
}

// DecodeManifest 从 blob 存储读回的字节还原 Manifest，并重新计算 Hash
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := DecodeObject(data, &m); err != nil {
		return nil, fmt.Errorf("corrupted manifest: %w", err)
	}
	if m.TypeVal != TypeManifest {
		return nil, fmt.Errorf("object is not a manifest (type %q)", m.TypeVal)
	}
	return NewManifest(m.Entries)
}

func (m *Manifest) Type() ObjectType { return TypeManifest }
func (m *Manifest) ID() types.Hash   { return m.hash }
func (m *Manifest) Bytes() []byte    { return m.rawBytes }

// TotalSize 返回所有文件大小之和
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, e := range m.Entries {
		total += e.Size
	}
	return total
}
