package core

import "beatmapvault/pkg/types"

// ObjectType 定义了存储层中的对象类型
type ObjectType string

const (
	TypeBlob     ObjectType = "blob"     // 原始文件内容 (音频、图片、.osu 等)
	TypeManifest ObjectType = "manifest" // 某个 Version 的文件清单快照
)

// Object 是所有可持久化对象的通用接口
type Object interface {
	// Type 返回对象类型
	Type() ObjectType

	// ID 返回对象的哈希值
	ID() types.Hash

	// Bytes 返回对象的序列化数据 (用于存储)
	Bytes() []byte
}
