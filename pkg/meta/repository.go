package meta

import (
	"context"
	"errors"
	"fmt"

	"beatmapvault/pkg/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 封装所有对 SQL 数据库的操作
// 上层组件 (content / chain / registry / guard) 只通过这里访问存储，不拼 SQL
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.GetConn().WithContext(ctx)
}

// Transaction 在一个数据库事务中执行 fn
// fn 收到的 Repository 绑定在事务上；fn 返回错误则整体回滚
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: NewWithConn(tx)})
	})
}

// -----------------------------------------------------------------------------
// 1. Beatmapsets (Packages)
// -----------------------------------------------------------------------------

// EnsureBeatmapset 幂等地登记一个 beatmapset
func (r *Repository) EnsureBeatmapset(ctx context.Context, id types.PackageID) error {
	err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "beatmapset_id"}},
			DoNothing: true,
		}).
		Create(&Beatmapset{ID: id}).Error
	if err != nil {
		return fmt.Errorf("failed to register beatmapset %d: %w", id, err)
	}
	return nil
}

func (r *Repository) BeatmapsetExists(ctx context.Context, id types.PackageID) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&Beatmapset{}).Where("beatmapset_id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// -----------------------------------------------------------------------------
// 2. Content
// -----------------------------------------------------------------------------

// FindContentByHash 按内容哈希查找，未找到返回 ErrNotFound
func (r *Repository) FindContentByHash(ctx context.Context, hash types.Hash) (*ContentModel, error) {
	var c ContentModel
	err := r.conn(ctx).Where("sha2_hash = ?", hash).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertContent 插入一条新的 Content 记录
// 如果有并发写者抢先插入了相同 Hash，返回 ErrDuplicateContent，由调用方重新查询
func (r *Repository) InsertContent(ctx context.Context, hash types.Hash, size int64) (types.ContentID, error) {
	c := ContentModel{Hash: hash, Size: size}
	if err := r.conn(ctx).Create(&c).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateContent
		}
		return 0, fmt.Errorf("failed to insert content: %w", err)
	}
	return c.ID, nil
}

func (r *Repository) GetContent(ctx context.Context, id types.ContentID) (*ContentModel, error) {
	var c ContentModel
	err := r.conn(ctx).Where("file_id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountContents 返回 ids 中实际存在的 Content 数量 (ids 需已去重)
func (r *Repository) CountContents(ctx context.Context, ids []types.ContentID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.conn(ctx).Model(&ContentModel{}).Where("file_id IN ?", ids).Count(&count).Error
	return count, err
}

// FindContents 批量读取 Content 记录，不存在的 id 会被静默跳过 (ids 需已去重)
func (r *Repository) FindContents(ctx context.Context, ids []types.ContentID) ([]ContentModel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var contents []ContentModel
	err := r.conn(ctx).Where("file_id IN ?", ids).Find(&contents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load contents: %w", err)
	}
	return contents, nil
}

// -----------------------------------------------------------------------------
// 3. Versions
// -----------------------------------------------------------------------------

func (r *Repository) GetVersion(ctx context.Context, id types.VersionID) (*VersionModel, error) {
	var v VersionModel
	err := r.conn(ctx).Where("version_id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// InsertVersion 写入 Version 行，成功后 v.ID 被回填
// 链约束冲突 (前驱已有后继 / 重复的首个版本) 返回 ErrConstraint
func (r *Repository) InsertVersion(ctx context.Context, v *VersionModel) error {
	err := r.conn(ctx).Omit(clause.Associations).Create(v).Error
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrReference, err)
	default:
		return fmt.Errorf("failed to insert version: %w", err)
	}
}

// InsertVersionFiles 批量写入文件槽位
func (r *Repository) InsertVersionFiles(ctx context.Context, files []VersionFileModel) error {
	if len(files) == 0 {
		return nil
	}
	err := r.conn(ctx).Omit(clause.Associations).Create(&files).Error
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrReference, err)
	default:
		return fmt.Errorf("failed to insert version files: %w", err)
	}
}

// ListVersionFiles 返回某个 Version 的全部文件 (联表带出 hash 和 size)，按文件名排序
func (r *Repository) ListVersionFiles(ctx context.Context, id types.VersionID) ([]VersionFile, error) {
	var files []VersionFile
	err := r.conn(ctx).
		Table("beatmapset_version_files AS vf").
		Select("vf.filename, vf.file_id, f.sha2_hash, f.file_size").
		Joins("JOIN beatmapset_files AS f ON f.file_id = vf.file_id").
		Where("vf.version_id = ?", id).
		Order("vf.filename ASC").
		Scan(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list version files: %w", err)
	}
	return files, nil
}

// HeadVersion 返回 beatmapset 中没有后继的那个 Version
// 没有任何版本时返回 ErrNotFound；出现多个 head (链被破坏) 时返回 ErrAmbiguousHead
func (r *Repository) HeadVersion(ctx context.Context, pkg types.PackageID) (*VersionModel, error) {
	var heads []VersionModel
	err := r.conn(ctx).
		Table("beatmapset_versions AS v").
		Where("v.beatmapset_id = ?", pkg).
		Where("NOT EXISTS (SELECT 1 FROM beatmapset_versions AS s WHERE s.previous_version_id = v.version_id)").
		Order("v.version_id DESC").
		Limit(2).
		Find(&heads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve head: %w", err)
	}

	switch len(heads) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &heads[0], nil
	default:
		return nil, ErrAmbiguousHead
	}
}

// ListVersions 返回 beatmapset 的全部版本，按创建顺序
func (r *Repository) ListVersions(ctx context.Context, pkg types.PackageID) ([]VersionModel, error) {
	var versions []VersionModel
	err := r.conn(ctx).
		Where("beatmapset_id = ?", pkg).
		Order("version_id ASC").
		Find(&versions).Error
	return versions, err
}

func (r *Repository) CountVersions(ctx context.Context, pkg types.PackageID) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&VersionModel{}).Where("beatmapset_id = ?", pkg).Count(&count).Error
	return count, err
}

// -----------------------------------------------------------------------------
// 4. 运维计数器 (Counters)
// -----------------------------------------------------------------------------

// GetCounter 读取计数器，未找到返回 ErrNotFound
func (r *Repository) GetCounter(ctx context.Context, name string) (*Counter, error) {
	var c Counter
	err := r.conn(ctx).Where("name = ?", name).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetCounter 写入或覆盖计数器
func (r *Repository) SetCounter(ctx context.Context, name string, value int64) error {
	return r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"count"}),
		}).
		Create(&Counter{Name: name, Count: value}).Error
}

// -----------------------------------------------------------------------------
// 5. 维护 (Maintenance) - 破坏性操作，调用方必须先经过 guard 检查
// -----------------------------------------------------------------------------

// RecreateVersioningTables 删除并重建版本存储相关的表
func (r *Repository) RecreateVersioningTables(ctx context.Context) error {
	models := VersioningModels()
	migrator := r.conn(ctx).Migrator()

	// 按依赖逆序删除
	for i := len(models) - 1; i >= 0; i-- {
		if err := migrator.DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	if err := migrator.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to recreate tables: %w", err)
	}
	return nil
}

// DB 暴露底层连接，供 waiter 之类需要执行原生查询的组件使用
func (r *Repository) DB() *DB {
	return r.db
}
