package meta

import (
	"time"

	"beatmapvault/pkg/types"

	"gorm.io/datatypes"
)

// Beatmapset 是 Version 链的归属者 (Package)
// 本系统只关心它是否存在，其余字段由外部系统维护
type Beatmapset struct {
	ID        types.PackageID `gorm:"column:beatmapset_id;primaryKey;autoIncrement:false"`
	CreatedAt time.Time

	// 外键 beatmapset_versions.beatmapset_id -> beatmapsets.beatmapset_id 挂在这一侧声明
	Versions []VersionModel `gorm:"foreignKey:BeatmapsetID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (Beatmapset) TableName() string {
	return "beatmapsets"
}

// ContentModel 是去重后的文件内容记录 (Content)
// 只追加，永不修改或删除
type ContentModel struct {
	ID types.ContentID `gorm:"column:file_id;primaryKey;autoIncrement"`

	// Hash 全局唯一：并发插入同一内容时，由这个约束裁决谁赢
	Hash types.Hash `gorm:"column:sha2_hash;type:char(64);not null;uniqueIndex:idx_files_sha2_hash"`

	// Size 与 Hash 一起校验，防止哈希截断/损坏时静默复用错误的内容
	Size int64 `gorm:"column:file_size;not null"`
}

func (ContentModel) TableName() string {
	return "beatmapset_files"
}

// VersionModel 是某个 beatmapset 在某一时刻的不可变快照
//
// 链结构由两个唯一约束保证是一条单链表：
//   - previous_version_id 唯一：每个 Version 最多一个后继
//   - 每个 beatmapset 最多一个没有前驱的 Version (部分唯一索引)
type VersionModel struct {
	ID           types.VersionID `gorm:"column:version_id;primaryKey;autoIncrement"`
	BeatmapsetID types.PackageID `gorm:"column:beatmapset_id;not null;index:idx_versions_beatmapset;uniqueIndex:idx_versions_single_root,where:previous_version_id IS NULL"`
	CreatedAt    time.Time       `gorm:"column:created_at;not null"`

	PreviousVersionID *types.VersionID `gorm:"column:previous_version_id;uniqueIndex:idx_versions_previous"`

	// ManifestHash 指向 blob 存储中该版本的文件清单 (core.Manifest)
	ManifestHash types.Hash `gorm:"column:manifest_hash;type:char(64)"`

	// Meta 存储提交相关的非结构化信息 (提交者、客户端版本等)
	Meta datatypes.JSON `gorm:"column:meta"`

	Previous *VersionModel `gorm:"foreignKey:PreviousVersionID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (VersionModel) TableName() string {
	return "beatmapset_versions"
}

// VersionFileModel 是 Version 中的一个文件槽位 (VersionEntry)
// 同一个 Content 可以以不同文件名出现在同一个 Version 中，所以 filename 也是主键的一部分
type VersionFileModel struct {
	ContentID types.ContentID `gorm:"column:file_id;primaryKey;autoIncrement:false"`
	VersionID types.VersionID `gorm:"column:version_id;primaryKey;autoIncrement:false;uniqueIndex:idx_version_files_filename"`
	Filename  string          `gorm:"column:filename;primaryKey;type:varchar(500);not null;uniqueIndex:idx_version_files_filename"`

	Content *ContentModel `gorm:"foreignKey:ContentID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	Version *VersionModel `gorm:"foreignKey:VersionID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (VersionFileModel) TableName() string {
	return "beatmapset_version_files"
}

// VersionFile 是 VersionFileModel 与 ContentModel 的联表投影
type VersionFile struct {
	Filename  string
	ContentID types.ContentID `gorm:"column:file_id"`
	Hash      types.Hash      `gorm:"column:sha2_hash"`
	Size      int64           `gorm:"column:file_size"`
}

// Counter 是通用的运维计数器表
// name = 'is_production' 的行存在即表示生产环境
type Counter struct {
	Name  string `gorm:"column:name;primaryKey;type:varchar(200)"`
	Count int64  `gorm:"column:count;not null;default:0"`
}

func (Counter) TableName() string {
	return "counts"
}

// VersioningModels 返回版本存储相关的表，按依赖顺序排列 (被引用的在前)
func VersioningModels() []any {
	return []any{&Beatmapset{}, &ContentModel{}, &VersionModel{}, &VersionFileModel{}}
}

// AllModels 额外包含运维表
func AllModels() []any {
	return append([]any{&Counter{}}, VersioningModels()...)
}
