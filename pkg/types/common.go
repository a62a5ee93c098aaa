// pkg/types/common.go
package types

import "strconv"

// Hash 代表文件内容的唯一指纹 (SHA256 Hex String)
// 这是一个“值对象”，应当是不可变的。
type Hash string

func (h Hash) String() string { return string(h) }

// 验证 Hash 合法性
func (h Hash) IsZero() bool  { return h == "" }
func (h Hash) IsValid() bool { return len(h) == 64 } // 简单的长度检查

// Short 返回前 8 位，用于日志和 CLI 输出
func (h Hash) Short() string {
	if len(h) < 8 {
		return string(h)
	}
	return string(h[:8])
}

// ContentID 是 Content 记录的代理主键 (file_id)
// 稳定且永不复用
type ContentID uint64

func (id ContentID) String() string { return strconv.FormatUint(uint64(id), 10) }

// VersionID 是 Version 记录的代理主键 (version_id)
type VersionID uint64

func (id VersionID) String() string { return strconv.FormatUint(uint64(id), 10) }

// PackageID 标识一个 beatmapset
type PackageID uint32

func (id PackageID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParsePackageID 解析 CLI/配置中传入的 beatmapset id
func ParsePackageID(s string) (PackageID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return PackageID(v), nil
}

// ParseVersionID 解析 version id
func ParseVersionID(s string) (VersionID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return VersionID(v), nil
}
