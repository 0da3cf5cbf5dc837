package splitter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/moyu-x/data-librarian/internal/testutil"
)

func writePDF(t *testing.T, opts testutil.PDFOptions) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atlas.pdf")
	require.NoError(t, os.WriteFile(path, testutil.MinimalPDF(opts), 0644))
	return path
}

// 每个输出文件的页数必须与它的区间一致
func requirePageCounts(t *testing.T, chunks []Chunk) {
	t.Helper()
	for _, c := range chunks {
		pages, err := api.PageCountFile(c.Path)
		require.NoError(t, err, c.Path)
		require.Equal(t, c.End-c.Start, pages, "page count of %s", filepath.Base(c.Path))
	}
}

func TestOpenPDF_PageCount(t *testing.T) {
	path := writePDF(t, testutil.PDFOptions{Pages: 7})

	doc, err := OpenPDF(path)
	require.NoError(t, err)
	require.Equal(t, 7, doc.PageCount())
}

func TestOpenPDF_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0644))

	_, err := OpenPDF(path)
	require.Error(t, err)
}

func TestPDFDocument_WriteRange(t *testing.T) {
	path := writePDF(t, testutil.PDFOptions{Pages: 5})
	doc, err := OpenPDF(path)
	require.NoError(t, err)

	dst := ChunkName(path, 1, 4)
	size, err := doc.WriteRange(1, 4, dst)
	require.NoError(t, err)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, info.Size(), size)

	pages, err := api.PageCountFile(dst)
	require.NoError(t, err)
	require.Equal(t, 3, pages)
	require.Equal(t, "atlas_pages_2-4.pdf", filepath.Base(dst))
}

func TestSplit_RealPDFCoversAllPages(t *testing.T) {
	path := writePDF(t, testutil.PDFOptions{Pages: 5})
	doc, err := OpenPDF(path)
	require.NoError(t, err)

	s, err := New(afero.NewOsFs(), Options{MaxBytes: 10 * bytesPerMB, InitialPages: 2})
	require.NoError(t, err)

	chunks, err := s.Split(doc, path, &reporter{})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	requireCoverage(t, chunks, 5)
	requirePageCounts(t, chunks)
	require.Equal(t, "atlas_pages_5-5.pdf", filepath.Base(chunks[2].Path))

	// 源文件保持不变
	pages, err := api.PageCountFile(path)
	require.NoError(t, err)
	require.Equal(t, 5, pages)
}

func TestSplit_RealPDFShrinksOversizedChunks(t *testing.T) {
	path := writePDF(t, testutil.PDFOptions{Pages: 8, PageBytes: 8 * kib})
	doc, err := OpenPDF(path)
	require.NoError(t, err)

	maxBytes := int64(20 * kib)
	s, err := New(afero.NewOsFs(), Options{MaxBytes: maxBytes, InitialPages: 8})
	require.NoError(t, err)

	r := &reporter{}
	chunks, err := s.Split(doc, path, r)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	requireCoverage(t, chunks, 8)
	requirePageCounts(t, chunks)

	for _, c := range chunks {
		if !c.Oversized {
			require.LessOrEqual(t, c.Size, maxBytes, c.Path)
		}
	}
	require.Contains(t, r.joined(), "Too big.")

	// 超限的尝试不会留在目录里
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, len(chunks)+1)
}
