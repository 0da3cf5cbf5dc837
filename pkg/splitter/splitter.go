package splitter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/logger"
)

const (
	bytesPerMB = 1024 * 1024

	// 按超出比例缩小页数时保留的余量
	safetyFactor = 0.9
)

var (
	// ErrCancelled 拆分过程中收到取消请求
	ErrCancelled = errors.New("split cancelled")

	ErrInvalidOptions = errors.New("invalid split options")

	chunkNamePattern = regexp.MustCompile(`_pages_\d+-\d+$`)
)

// Document 分页文档
type Document interface {
	PageCount() int
	// WriteRange 把 [start, end) 页写入 dst，返回写入的字节数
	WriteRange(start, end int, dst string) (int64, error)
}

type Options struct {
	MaxBytes     int64
	InitialPages int
}

// Chunk 一个已接受的输出文件，Start/End 为从 0 开始的半开区间
type Chunk struct {
	Path      string
	Start     int
	End       int
	Size      int64
	Oversized bool
}

type Splitter struct {
	fs   afero.Fs
	opts Options
}

func New(fs afero.Fs, opts Options) (*Splitter, error) {
	if opts.MaxBytes <= 0 {
		return nil, fmt.Errorf("%w: max size must be positive", ErrInvalidOptions)
	}
	if opts.InitialPages < 1 {
		return nil, fmt.Errorf("%w: initial page count must be at least 1", ErrInvalidOptions)
	}
	return &Splitter{fs: fs, opts: opts}, nil
}

// ChunkName 输出文件路径：<stem>_pages_<first>-<last><ext>，页码从 1 开始且包含两端
func ChunkName(source string, start, end int) string {
	ext := filepath.Ext(source)
	stem := strings.TrimSuffix(source, ext)
	return fmt.Sprintf("%s_pages_%d-%d%s", stem, start+1, end, ext)
}

// IsChunkName 文件名是否为拆分产生的输出
func IsChunkName(name string) bool {
	base := filepath.Base(name)
	return chunkNamePattern.MatchString(strings.TrimSuffix(base, filepath.Ext(base)))
}

// nextChunkPages 根据超出比例估算新的页数，结果严格小于 pages 且不小于 1
func nextChunkPages(pages int, size, max int64) int {
	next := int(float64(pages) * float64(max) / float64(size) * safetyFactor)
	if next >= pages {
		next = pages - 1
	}
	if next < 1 {
		next = 1
	}
	return next
}

func toMB(n int64) float64 {
	return float64(n) / bytesPerMB
}

// Split 把 doc 拆分为不超过 MaxBytes 的若干文件
//
// 页数在同一文档内只缩小不恢复。单页仍然超限时照样接受并记录。
// 取消时只删除当前超限的那次尝试，已接受的文件保留；返回 ErrCancelled 和已接受的文件。
// 写入失败会删除不完整的输出并返回错误，只影响当前文档。
func (s *Splitter) Split(doc Document, source string, r internal.Reporter) ([]Chunk, error) {
	total := doc.PageCount()
	maxMB := toMB(s.opts.MaxBytes)
	current := s.opts.InitialPages

	var chunks []Chunk
	start := 0
	for start < total {
		if r.Cancelled() {
			return chunks, ErrCancelled
		}

		for {
			if r.Cancelled() {
				return chunks, ErrCancelled
			}

			end := min(start+current, total)
			pages := end - start
			dst := ChunkName(source, start, end)

			size, err := doc.WriteRange(start, end, dst)
			if err != nil {
				if rmErr := s.fs.Remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
					logger.Get().Warn().Err(rmErr).Msgf("删除不完整的输出失败: %s", dst)
				}
				return chunks, fmt.Errorf("writing chunk %s: %w", filepath.Base(dst), err)
			}

			if size <= s.opts.MaxBytes {
				r.Logf("   > Created: %s (%.2fMB)", filepath.Base(dst), toMB(size))
				chunks = append(chunks, Chunk{Path: dst, Start: start, End: end, Size: size})
				start = end
				break
			}

			if pages == 1 {
				r.Logf("   > Page %d is %.2fMB on its own (Max: %gMB). Kept oversized: %s",
					start+1, toMB(size), maxMB, filepath.Base(dst))
				chunks = append(chunks, Chunk{Path: dst, Start: start, End: end, Size: size, Oversized: true})
				start = end
				break
			}

			r.Logf("   > Chunk %s is %.2fMB (Max: %gMB). Too big.", filepath.Base(dst), toMB(size), maxMB)
			if err := s.fs.Remove(dst); err != nil {
				logger.Get().Warn().Err(err).Msgf("删除超限输出失败: %s", dst)
			}

			current = nextChunkPages(pages, size, s.opts.MaxBytes)
			r.Logf("   > Retrying with %d pages...", current)
		}
	}

	return chunks, nil
}
