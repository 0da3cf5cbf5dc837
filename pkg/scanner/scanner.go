package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/moyu-x/data-librarian/pkg/logger"
)

var (
	// ErrStopped 遍历被 stop 回调中断
	ErrStopped = errors.New("walk stopped")

	ErrExpectedDirectory = errors.New("expected directory but got file")
)

// WalkFunc 对每个候选文件调用；返回非 nil 错误会终止遍历
type WalkFunc func(path string, info os.FileInfo) error

// FileWalker 深度优先遍历目录树，按名称排除目录和文件
//
// 每个目录先处理本层文件（按名称排序），再依次进入子目录，因此同一棵未变化的树
// 每次遍历顺序相同，计数遍历与处理遍历看到的是同一组文件。
type FileWalker struct {
	Fs            afero.Fs
	ExcludedDirs  map[string]struct{}
	ExcludedFiles map[string]struct{}
}

func NewFileWalker(fs afero.Fs, excludedDirs, excludedFiles []string) *FileWalker {
	return &FileWalker{
		Fs:            fs,
		ExcludedDirs:  toSet(excludedDirs),
		ExcludedFiles: toSet(excludedFiles),
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// ExcludeDir 追加一个排除目录名
func (w *FileWalker) ExcludeDir(name string) {
	w.ExcludedDirs[name] = struct{}{}
}

// Walk 从 root 开始遍历；stop 在进入每个目录和处理每个文件之前检查，返回 true 时
// 遍历以 ErrStopped 结束。无法读取的目录会被跳过。
func (w *FileWalker) Walk(root string, stop func() bool, fn WalkFunc) error {
	info, err := w.Fs.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", root, ErrExpectedDirectory)
	}
	return w.walkDir(root, stop, fn)
}

func (w *FileWalker) walkDir(dir string, stop func() bool, fn WalkFunc) error {
	if stop != nil && stop() {
		return ErrStopped
	}

	entries, err := afero.ReadDir(w.Fs, dir)
	if err != nil {
		logger.Get().Warn().Err(err).Msgf("读取目录失败，已跳过: %s", dir)
		return nil
	}

	var subdirs []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.Mode()&os.ModeSymlink != 0 {
			target, err := w.Fs.Stat(path)
			if err == nil && target.IsDir() {
				logger.Get().Debug().Msgf("跳过目录符号链接: %s", path)
				continue
			}
		}

		if entry.IsDir() {
			if _, excluded := w.ExcludedDirs[entry.Name()]; excluded {
				logger.Get().Debug().Msgf("跳过排除目录: %s", path)
				continue
			}
			subdirs = append(subdirs, path)
			continue
		}

		if _, excluded := w.ExcludedFiles[entry.Name()]; excluded {
			continue
		}

		if stop != nil && stop() {
			return ErrStopped
		}
		if err := fn(path, entry); err != nil {
			return err
		}
	}

	for _, sub := range subdirs {
		if err := w.walkDir(sub, stop, fn); err != nil {
			return err
		}
	}
	return nil
}

// CountFiles 统计 Walk 会产出的文件数量
func (w *FileWalker) CountFiles(root string, stop func() bool) (int, error) {
	logger.Get().Debug().Msgf("开始统计文件数量: %s", root)

	count := 0
	err := w.Walk(root, stop, func(path string, info os.FileInfo) error {
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	logger.Get().Debug().Msgf("文件统计完成，共找到 %d 个文件", count)
	return count, nil
}
