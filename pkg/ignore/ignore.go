package ignore

import (
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是用户自定义忽略规则所在的文件
const FileName = ".bsvignore"

// Matcher 判断 beatmapset 目录中的某个文件是否应该排除在提交之外
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// 强制生效的默认规则
var defaultRules = []string{
	// --- 工具自身 ---
	".bsv",
	FileName,

	// --- 版本控制 / 密钥 ---
	".git",
	".env",

	// --- 系统垃圾文件 ---
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",

	// --- 编辑器临时文件 ---
	"*.tmp",
	"*~",
}

// NewMatcher 读取 rootPath 下的 .bsvignore (如有) 并与默认规则合并
func NewMatcher(rootPath string) (*Matcher, error) {
	ignoreFilePath := filepath.Join(rootPath, FileName)

	if _, err := os.Stat(ignoreFilePath); err != nil {
		return &Matcher{ignorer: gitignore.CompileIgnoreLines(defaultRules...)}, nil
	}

	ignorer, err := gitignore.CompileIgnoreFileAndLines(ignoreFilePath, defaultRules...)
	if err != nil {
		return nil, err
	}
	return &Matcher{ignorer: ignorer}, nil
}

// Matches 检查相对于 beatmapset 根目录的路径 (使用 "/" 分隔) 是否应被忽略
func (m *Matcher) Matches(path string) bool {
	if m == nil || m.ignorer == nil {
		return false
	}
	return m.ignorer.MatchesPath(path)
}
