package meta

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config 数据库配置
type Config struct {
	Driver   string // "postgres" (默认) 或 "sqlite"
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable" for local

	// Path 仅 sqlite 使用
	Path string

	// LogLevel 控制 GORM 的 SQL 日志
	LogLevel logger.LogLevel
}

// DB 封装了 GORM 实例，作为元数据层的入口
type DB struct {
	conn *gorm.DB
}

// NewDB 初始化数据库连接并迁移表结构
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := cfg.LogLevel
	if logLevel == 0 {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// 让驱动把唯一约束/外键错误翻译成 gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		// SQLite 只允许单写者；单连接避免 SQLITE_BUSY，并发写在连接池上排队
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}

	return &DB{conn: db}, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", DriverPostgres:
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000&_journal_mode=WAL", cfg.Path)
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// NewWithConn 允许使用现有的 GORM 连接初始化 DB (依赖注入 / 测试)
func NewWithConn(conn *gorm.DB) *DB {
	return &DB{conn: conn}
}

// AutoMigrate 迁移传入的 Model
func (d *DB) AutoMigrate(models ...any) error {
	return d.conn.AutoMigrate(models...)
}

func (d *DB) GetConn() *gorm.DB {
	return d.conn
}

// Close 关闭底层连接池
func (d *DB) Close() error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
