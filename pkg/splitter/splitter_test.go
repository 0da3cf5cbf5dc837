package splitter

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/moyu-x/data-librarian/internal"
)

const kib = 1024

// fakeDoc 每页固定字节数的文档，写入时直接生成对应大小的文件
type fakeDoc struct {
	fs        afero.Fs
	pageSizes []int64
	writes    [][2]int
	failAt    int
}

func newFakeDoc(fs afero.Fs, pages int, pageSize int64) *fakeDoc {
	sizes := make([]int64, pages)
	for i := range sizes {
		sizes[i] = pageSize
	}
	return &fakeDoc{fs: fs, pageSizes: sizes, failAt: -1}
}

func (d *fakeDoc) PageCount() int {
	return len(d.pageSizes)
}

func (d *fakeDoc) WriteRange(start, end int, dst string) (int64, error) {
	d.writes = append(d.writes, [2]int{start, end})

	var size int64
	for _, s := range d.pageSizes[start:end] {
		size += s
	}
	if start == d.failAt {
		// 留下一个不完整的文件
		afero.WriteFile(d.fs, dst, []byte("partial"), 0644)
		return 0, errors.New("disk full")
	}
	if err := afero.WriteFile(d.fs, dst, make([]byte, size), 0644); err != nil {
		return 0, err
	}
	return size, nil
}

// reporter 记录日志和计数，第 cancelAt 次检查取消时返回 true
type reporter struct {
	lines     []string
	checks    int
	cancelAt  int
	cancelled bool
	total     int
	checked   int
}

func (r *reporter) Logf(format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	r.lines = append(r.lines, strings.Split(msg, "\n")...)
}

func (r *reporter) Cancelled() bool {
	r.checks++
	return r.cancelled || (r.cancelAt > 0 && r.checks >= r.cancelAt)
}

func (r *reporter) SetPhase(internal.Phase) {}
func (r *reporter) SetTotal(total int) { r.total = total }
func (r *reporter) AddChecked() { r.checked++ }
func (r *reporter) AddMoved() {}
func (r *reporter) AttachLog(internal.LogWriter) {}

func (r *reporter) joined() string {
	return strings.Join(r.lines, "\n")
}

// 校验输出区间首尾相接地覆盖所有页
func requireCoverage(t *testing.T, chunks []Chunk, total int) {
	t.Helper()
	next := 0
	for _, c := range chunks {
		require.Equal(t, next, c.Start, "gap or overlap before %s", c.Path)
		require.Greater(t, c.End, c.Start)
		next = c.End
	}
	require.Equal(t, total, next)
}

func TestChunkName(t *testing.T) {
	require.Equal(t, "/books/atlas_pages_1-10.pdf", ChunkName("/books/atlas.pdf", 0, 10))
	require.Equal(t, "/books/Atlas.v2_pages_11-12.PDF", ChunkName("/books/Atlas.v2.PDF", 10, 12))

	require.True(t, IsChunkName("atlas_pages_1-10.pdf"))
	require.True(t, IsChunkName("/x/atlas_pages_3-3.PDF"))
	require.False(t, IsChunkName("atlas.pdf"))
	require.False(t, IsChunkName("my_pages_notes.pdf"))
	require.False(t, IsChunkName("atlas_pages_1-10_final.pdf"))
}

func TestNextChunkPages(t *testing.T) {
	tests := []struct {
		pages int
		size  int64
		max   int64
		want  int
	}{
		{pages: 5, size: 50, max: 25, want: 2},
		{pages: 10, size: 11, max: 10, want: 8},
		// 只超出一点时也必须减少
		{pages: 10, size: 101, max: 100, want: 8},
		{pages: 3, size: 1000, max: 10, want: 1},
		{pages: 2, size: 21, max: 20, want: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d pages %d/%d", tt.pages, tt.size, tt.max), func(t *testing.T) {
			require.Equal(t, tt.want, nextChunkPages(tt.pages, tt.size, tt.max))
		})
	}
}

func TestSplit_ConvergesToTwoPageChunks(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := newFakeDoc(fs, 50, 10*kib)

	s, err := New(fs, Options{MaxBytes: 25 * kib, InitialPages: 5})
	require.NoError(t, err)

	r := &reporter{}
	chunks, err := s.Split(doc, "/books/atlas.pdf", r)
	require.NoError(t, err)

	require.Len(t, chunks, 25)
	requireCoverage(t, chunks, 50)
	for _, c := range chunks {
		require.Equal(t, 2, c.End-c.Start)
		require.LessOrEqual(t, c.Size, int64(25*kib))
		require.False(t, c.Oversized)
	}
	require.Equal(t, "/books/atlas_pages_1-2.pdf", chunks[0].Path)
	require.Equal(t, "/books/atlas_pages_49-50.pdf", chunks[24].Path)

	// 第一次 5 页超限后只重试一次
	require.Equal(t, [2]int{0, 5}, doc.writes[0])
	require.Len(t, doc.writes, 26)

	exists, _ := afero.Exists(fs, "/books/atlas_pages_1-5.pdf")
	require.False(t, exists, "oversized attempt must be deleted")
	require.Contains(t, r.joined(), "Too big.")
	require.Contains(t, r.joined(), "Retrying with 2 pages...")
}

func TestSplit_RetriesStrictlyDecrease(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := newFakeDoc(fs, 40, 10*kib)
	// 前面几页特别大，迫使连续多次缩小
	for i := 0; i < 4; i++ {
		doc.pageSizes[i] = 40 * kib
	}

	s, err := New(fs, Options{MaxBytes: 45 * kib, InitialPages: 20})
	require.NoError(t, err)

	chunks, err := s.Split(doc, "/doc.pdf", &reporter{})
	require.NoError(t, err)
	requireCoverage(t, chunks, 40)

	// 同一起点上的重试页数严格递减且不小于 1
	require.Equal(t, [][2]int{{0, 20}, {0, 2}, {0, 1}}, doc.writes[:3])
	for i := 1; i < len(doc.writes); i++ {
		prev, cur := doc.writes[i-1], doc.writes[i]
		require.GreaterOrEqual(t, cur[1]-cur[0], 1)
		if cur[0] == prev[0] {
			require.Less(t, cur[1]-cur[0], prev[1]-prev[0])
		}
	}
	for _, c := range chunks {
		if !c.Oversized {
			require.LessOrEqual(t, c.Size, int64(45*kib))
		}
	}
}

func TestSplit_OversizedSinglePage(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := newFakeDoc(fs, 4, 10*kib)
	doc.pageSizes[2] = 100 * kib

	s, err := New(fs, Options{MaxBytes: 25 * kib, InitialPages: 2})
	require.NoError(t, err)

	r := &reporter{}
	chunks, err := s.Split(doc, "/doc.pdf", r)
	require.NoError(t, err)
	requireCoverage(t, chunks, 4)

	var oversized []Chunk
	for _, c := range chunks {
		if c.Oversized {
			oversized = append(oversized, c)
		}
	}
	require.Len(t, oversized, 1)
	require.Equal(t, 2, oversized[0].Start)
	require.Equal(t, 3, oversized[0].End)

	exists, _ := afero.Exists(fs, "/doc_pages_3-3.pdf")
	require.True(t, exists, "oversized single page is kept")
	require.Contains(t, r.joined(), "Page 3 is")
	require.Contains(t, r.joined(), "Kept oversized")
}

func TestSplit_LastChunkShorter(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := New(fs, Options{MaxBytes: 100 * kib, InitialPages: 4})
	require.NoError(t, err)

	chunks, err := s.Split(newFakeDoc(fs, 10, 10*kib), "/doc.pdf", &reporter{})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	requireCoverage(t, chunks, 10)
	require.Equal(t, "/doc_pages_9-10.pdf", chunks[2].Path)
}

func TestSplit_Cancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := New(fs, Options{MaxBytes: 25 * kib, InitialPages: 2})
	require.NoError(t, err)

	// 外层和内层各检查一次，第 5 次检查发生在第三个输出之前
	r := &reporter{cancelAt: 5}
	chunks, err := s.Split(newFakeDoc(fs, 20, 10*kib), "/doc.pdf", r)
	require.ErrorIs(t, err, ErrCancelled)
	require.Len(t, chunks, 2)

	for _, c := range chunks {
		exists, _ := afero.Exists(fs, c.Path)
		require.True(t, exists, "accepted chunks stay on cancellation")
	}
}

func TestSplit_WriteFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := newFakeDoc(fs, 6, 10*kib)
	doc.failAt = 2

	s, err := New(fs, Options{MaxBytes: 25 * kib, InitialPages: 2})
	require.NoError(t, err)

	chunks, err := s.Split(doc, "/doc.pdf", &reporter{})
	require.Error(t, err)
	require.Len(t, chunks, 1)

	exists, _ := afero.Exists(fs, "/doc_pages_3-4.pdf")
	require.False(t, exists, "partial output is removed")
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(afero.NewMemMapFs(), Options{MaxBytes: 0, InitialPages: 1})
	require.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(afero.NewMemMapFs(), Options{MaxBytes: 1, InitialPages: 0})
	require.ErrorIs(t, err, ErrInvalidOptions)
}
