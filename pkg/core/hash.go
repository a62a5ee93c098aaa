package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"beatmapvault/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// 确定性 (Canonical) CBOR 编码选项
// Manifest 的哈希依赖于此：同样的文件集合必须得到同样的字节
var encOptions = cbor.EncOptions{
	// Map Key 排序，保证编码唯一
	Sort: cbor.SortCanonical,

	// 数组和 Map 必须在头部声明长度
	IndefLength: cbor.IndefLengthForbidden,

	// 整数最短编码 (文件大小等字段)
	BigIntConvert: cbor.BigIntConvertShortest,
}

var em, _ = encOptions.EncMode()

// 解码选项：Manifest 会从 blob 存储读回，需要防御损坏或被篡改的数据
var decOptions = cbor.DecOptions{
	// 一个 beatmapset 的文件数不会接近这个量级
	MaxArrayElements: 10000,
	MaxMapPairs:      10000,
	MaxNestedLevels:  16,

	IndefLength: cbor.IndefLengthForbidden,
	DupMapKey:   cbor.DupMapKeyEnforcedAPF,
	BignumTag:   cbor.BignumTagForbidden,
}

// dm 供包内部使用 (link.go / manifest.go)
var dm, _ = decOptions.DecMode()

// CalculateHash 计算结构化对象的 Hash 和序列化数据
func CalculateHash(v any) (types.Hash, []byte, error) {
	data, err := em.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal object: %w", err)
	}
	return CalculateBlobHash(data), data, nil
}

// CalculateBlobHash 计算文件原始字节的 SHA-256
func CalculateBlobHash(data []byte) types.Hash {
	sum := sha256.Sum256(data)
	return types.Hash(hex.EncodeToString(sum[:]))
}

// DecodeObject 通用的解码函数
func DecodeObject(data []byte, v any) error {
	return dm.Unmarshal(data, v)
}
