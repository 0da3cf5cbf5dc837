package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/logger"
)

// ErrNotRegular 路径不是普通文件（目录、设备等）
var ErrNotRegular = errors.New("not a regular file")

// Digest 文件内容的 SHA-256 摘要
type Digest [sha256.Size]byte

// String 返回小写十六进制表示
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

type Hasher struct {
	fs        afero.Fs
	blockSize int
}

func New(fs afero.Fs) *Hasher {
	return &Hasher{fs: fs, blockSize: internal.HashBlockSize}
}

// File 以固定大小的块流式读取文件并计算摘要
func (h *Hasher) File(path string) (Digest, error) {
	logger.Get().Trace().Msgf("计算文件哈希: %s", path)

	info, err := h.fs.Stat(path)
	if err != nil {
		return Digest{}, err
	}
	if !info.Mode().IsRegular() {
		return Digest{}, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	file, err := h.fs.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer file.Close()

	return h.Reader(file)
}

// Reader 计算任意数据流的摘要
func (h *Hasher) Reader(r io.Reader) (Digest, error) {
	sum := sha256.New()
	buf := make([]byte, h.blockSize)
	if _, err := io.CopyBuffer(sum, onlyReader{r}, buf); err != nil {
		return Digest{}, fmt.Errorf("读取失败: %w", err)
	}

	var d Digest
	copy(d[:], sum.Sum(nil))
	return d, nil
}

// onlyReader 隐藏 WriterTo，保证 io.CopyBuffer 使用固定缓冲区
type onlyReader struct {
	io.Reader
}
