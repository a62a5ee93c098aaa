package submission

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"beatmapvault/pkg/ignore"
)

// LoadDir 读取 beatmapset 目录下的全部文件 (遵守 .bsvignore)
// 文件名是相对于 root 的路径，统一使用 "/" 分隔
func LoadDir(root string) ([]File, error) {
	matcher, err := ignore.NewMatcher(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if matcher.Matches(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}
		files = append(files, File{Name: rel, Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b File) int { return strings.Compare(a.Name, b.Name) })
	return files, nil
}
