// Package exporter 把一个 Version 还原成磁盘上的目录
package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"beatmapvault/pkg/chain"
	"beatmapvault/pkg/content"
	"beatmapvault/pkg/core"
	"beatmapvault/pkg/types"
)

var ErrUnsafePath = errors.New("filename escapes target directory")

type Exporter struct {
	contents *content.Store
	chain    *chain.Manager
}

func NewExporter(contents *content.Store, manager *chain.Manager) *Exporter {
	return &Exporter{contents: contents, chain: manager}
}

type RestoreCallback func(path string, file chain.File)

// Restore 将 Version 的全部文件写入 targetDir
// 文件名中的 "/" 会还原成子目录
func (e *Exporter) Restore(ctx context.Context, id types.VersionID, targetDir string, onRestore RestoreCallback) error {
	files, err := e.chain.Entries(ctx, id)
	if err != nil {
		return err
	}

	for _, f := range files {
		fullPath, err := safeJoin(targetDir, f.Filename)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return fmt.Errorf("failed to create dir for %s: %w", f.Filename, err)
		}

		// 匿名函数限定 defer 的作用域，避免句柄堆积
		err = func() error {
			rc, err := e.contents.Open(ctx, f.Content)
			if err != nil {
				return err
			}
			defer rc.Close()

			out, err := os.Create(fullPath)
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", fullPath, err)
			}
			n, err := io.Copy(out, rc)
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", f.Filename, err)
			}
			if n != f.Size {
				return fmt.Errorf("content %d of %s: wrote %d bytes, expected %d", f.Content, f.Filename, n, f.Size)
			}
			return nil
		}()
		if err != nil {
			return err
		}

		if onRestore != nil {
			onRestore(fullPath, f)
		}
	}
	return nil
}

func safeJoin(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	full := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return full, nil
}

// PrintManifest 以类似 ls-tree 的格式打印清单
func PrintManifest(m *core.Manifest, w io.Writer) error {
	fmt.Fprintf(w, "Manifest: %s\n", m.ID())
	fmt.Fprintf(w, "Files:    %d\n", len(m.Entries))
	fmt.Fprintf(w, "Size:     %s\n\n", fmtSize(m.TotalSize()))

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "HASH\tSIZE\tNAME\n")
	for _, e := range m.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Content.Hash.Short(), fmtSize(e.Size), e.Filename)
	}
	return tw.Flush()
}

func fmtSize(s int64) string {
	if s < 1024 {
		return fmt.Sprintf("%dB", s)
	} else if s < 1024*1024 {
		return fmt.Sprintf("%.1fKB", float64(s)/1024)
	}
	return fmt.Sprintf("%.2fMB", float64(s)/1024/1024)
}
