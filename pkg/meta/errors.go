package meta

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found in metadata")

	// ErrDuplicateContent 表示并发插入同一 Hash 时落败
	ErrDuplicateContent = errors.New("content with this hash already exists")

	// ErrConstraint 表示写入违反了唯一约束 (非 Content 表)
	ErrConstraint = errors.New("unique constraint violated")

	// ErrReference 表示写入引用了不存在的行 (外键)
	ErrReference = errors.New("foreign key constraint violated")

	ErrAmbiguousHead = errors.New("beatmapset has more than one head version")
)

// PostgreSQL SQLSTATE
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// isUniqueViolation 兼容不同数据库 (PG 与 SQLite) 的唯一约束错误
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
