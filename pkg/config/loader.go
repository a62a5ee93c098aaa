package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀：database.host -> BSV_DATABASE_HOST
const EnvPrefix = "BSV"

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
// 返回实际使用的配置文件路径；只用默认值/环境变量时为空
func Load(cfgFile string) (string, error) {
	// 1. 默认值
	setDefaults()

	// 2. 搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(".bsv")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".bsv"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// 3. 环境变量 (BSV_DATABASE_HOST 等)
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 配置文件：找不到不算错，格式错误才算
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("fatal error config file: %w", err)
	}
	return viper.ConfigFileUsed(), nil
}

func setDefaults() {
	// 数据库
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.dbname", "beatmapvault")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.path", filepath.Join(".bsv", "meta.db"))

	// 文件字节存储
	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.path", filepath.Join(".bsv", "objects"))

	viper.SetDefault("s3.region", "us-east-1")

	// Redis 存在性缓存，redis_url 为空表示不启用
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.ttl", 24*time.Hour)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("submission.concurrency", 8)

	viper.SetDefault("wait.interval", 50*time.Millisecond)
	viper.SetDefault("wait.timeout", 20*time.Second)
}
