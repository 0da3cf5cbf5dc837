package quarantine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/moyu-x/data-librarian/pkg/logger"
)

// MaxAttempts 寻找空闲文件名的最大尝试次数
const MaxAttempts = 10000

var (
	// ErrVanished 移动前源文件已不存在
	ErrVanished = errors.New("file vanished before move")

	// ErrNoFreeName 无法生成唯一文件名
	ErrNoFreeName = errors.New("no free destination name")
)

// Mover 把文件移入扁平目录，目标已存在时在扩展名前追加 _1、_2…
//
// 预览模式下用 Plan 代替 Move：目标路径会被记住，同一个 Mover 之后不会再给出相同路径。
type Mover struct {
	fs      afero.Fs
	dir     string
	planned map[string]struct{}
}

func NewMover(fs afero.Fs, dir string) *Mover {
	return &Mover{fs: fs, dir: dir, planned: make(map[string]struct{})}
}

func (m *Mover) Dir() string {
	return m.dir
}

// Destination 返回 dir 下第一个既不存在也未被 Plan 占用的路径
func (m *Mover) Destination(name string) (string, error) {
	dstPath := filepath.Join(m.dir, name)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for counter := 1; counter <= MaxAttempts; counter++ {
		exists, err := afero.Exists(m.fs, dstPath)
		if err != nil {
			return "", fmt.Errorf("检查目标文件失败: %w", err)
		}
		if _, taken := m.planned[dstPath]; !exists && !taken {
			return dstPath, nil
		}

		if counter == 1 {
			logger.Get().Debug().Msgf("目标文件已存在，尝试重命名: %s", dstPath)
		}
		dstPath = filepath.Join(m.dir, fmt.Sprintf("%s_%d%s", base, counter, ext))
	}

	return "", fmt.Errorf("%w: 已尝试 %d 次 (%s)", ErrNoFreeName, MaxAttempts, name)
}

// Plan 选出目标路径并占用它，不移动任何文件
func (m *Mover) Plan(name string) (string, error) {
	dstPath, err := m.Destination(name)
	if err != nil {
		return "", err
	}
	m.planned[dstPath] = struct{}{}
	return dstPath, nil
}

// Move 把 src 以 name 为文件名移入目录，返回最终路径
//
// 移动前重新确认源文件存在；只使用 rename，不做跨设备复制。
func (m *Mover) Move(src, name string) (string, error) {
	if _, err := m.fs.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", src, ErrVanished)
		}
		return "", err
	}

	if err := m.fs.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("创建目标目录失败: %w", err)
	}

	dstPath, err := m.Destination(name)
	if err != nil {
		return "", err
	}

	logger.Get().Debug().Msgf("移动文件: %s -> %s", src, dstPath)
	if err := m.fs.Rename(src, dstPath); err != nil {
		return "", err
	}
	return dstPath, nil
}
