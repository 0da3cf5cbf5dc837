package organizer

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/internal/testutil"
)

type reporter struct {
	lines       []string
	checked     int
	moved       int
	total       int
	cancelAfter int
}

func (r *reporter) Logf(format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	r.lines = append(r.lines, strings.Split(msg, "\n")...)
}

func (r *reporter) Cancelled() bool {
	return r.cancelAfter > 0 && r.checked >= r.cancelAfter
}

func (r *reporter) SetPhase(internal.Phase) {}
func (r *reporter) SetTotal(total int) { r.total = total }
func (r *reporter) AddChecked() { r.checked++ }
func (r *reporter) AddMoved() { r.moved++ }
func (r *reporter) AttachLog(internal.LogWriter) {}

var emmaPDF = testutil.MinimalPDF(testutil.PDFOptions{Pages: 2, Title: "Emma", Author: "Jane Austen"})

func seedLibrary(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/lib/emma-scan.pdf":                   string(emmaPDF),
		"/lib/Foo - Bar.pdf":                   "%PDF-1.4 foo",
		"/lib/notes.txt":                       "notes",
		"/lib/.DS_Store":                       "x",
		"/lib/sub/scan":                        "%PDF-1.4 scanned",
		"/lib/x/notes.txt":                     "other notes",
		"/lib/Organized_Books/Old/Book.pdf":    "%PDF-1.4 old",
		"/lib/Organized_Books/Old/Another.pdf": "%PDF-1.4 another",
	}
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", path, err)
		}
	}
	return fs
}

func TestOrganizer_Run(t *testing.T) {
	fs := seedLibrary(t)

	r := &reporter{}
	stats, err := NewOrganizer(fs, Options{Source: "/lib"}, nil).Run(r)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if r.total != 5 || stats.TotalProcessed != 5 {
		t.Errorf("total = %d, processed = %d, want 5", r.total, stats.TotalProcessed)
	}
	if stats.Moved != 5 || r.moved != 5 {
		t.Errorf("Moved = %d, want 5", stats.Moved)
	}

	expected := map[string]string{
		"/lib/Organized_Books/Jane Austen/Emma.pdf":         string(emmaPDF),
		"/lib/Organized_Books/Unknown_Author/Foo - Bar.pdf": "%PDF-1.4 foo",
		"/lib/Organized_Books/Unknown_Author/notes.txt":     "notes",
		"/lib/Organized_Books/Unknown_Author/notes_1.txt":   "other notes",
		"/lib/Organized_Books/Unknown_Author/scan.pdf":      "%PDF-1.4 scanned",
		"/lib/Organized_Books/Old/Book.pdf":                 "%PDF-1.4 old",
	}
	for path, want := range expected {
		content, err := afero.ReadFile(fs, path)
		if err != nil {
			t.Errorf("expected %s: %v", path, err)
			continue
		}
		if string(content) != want {
			t.Errorf("%s = %q, want %q", path, content, want)
		}
	}

	if exists, _ := afero.Exists(fs, "/lib/.DS_Store"); !exists {
		t.Error("ignored file must stay in place")
	}
}

func TestOrganizer_DryRun(t *testing.T) {
	fs := seedLibrary(t)

	r := &reporter{}
	stats, err := NewOrganizer(fs, Options{Source: "/lib", DryRun: true}, nil).Run(r)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Moved != 0 {
		t.Errorf("Moved = %d, want 0", stats.Moved)
	}
	if exists, _ := afero.Exists(fs, "/lib/emma-scan.pdf"); !exists {
		t.Error("dry run must not move files")
	}

	joined := strings.Join(r.lines, "\n")
	for _, want := range []string{
		"Would move: emma-scan.pdf\n   -> Jane Austen/Emma.pdf",
		"Would move: notes.txt\n   -> Unknown_Author/notes.txt",
		"Would move: notes.txt\n   -> Unknown_Author/notes_1.txt",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing dry-run line %q in:\n%s", want, joined)
		}
	}
}

func TestOrganizer_Cancelled(t *testing.T) {
	fs := seedLibrary(t)

	r := &reporter{cancelAfter: 1}
	stats, err := NewOrganizer(fs, Options{Source: "/lib"}, nil).Run(r)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !stats.Cancelled || stats.TotalProcessed != 1 {
		t.Errorf("Cancelled = %v, processed = %d", stats.Cancelled, stats.TotalProcessed)
	}
}

func TestOrganizer_MissingSource(t *testing.T) {
	r := &reporter{}
	stats, err := NewOrganizer(afero.NewMemMapFs(), Options{Source: "/nope"}, nil).Run(r)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
}

type brokenExtractor struct{}

func (brokenExtractor) Extract(path string) (Metadata, error) {
	return Metadata{Author: "  "}, errors.New("unreadable metadata")
}

func TestOrganizer_ExtractorFallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/lib/book.epub", []byte("PK\x03\x04"), 0644)

	if _, err := NewOrganizer(fs, Options{Source: "/lib", Destination: "/out"}, brokenExtractor{}).Run(&reporter{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if exists, _ := afero.Exists(fs, "/out/Unknown_Author/book.epub"); !exists {
		t.Error("expected fallback to filename and unknown author")
	}
}

func TestMetadataExtractor(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/a/emma.pdf", emmaPDF, 0644)
	afero.WriteFile(fs, "/a/UPPER.PDF", emmaPDF, 0644)
	afero.WriteFile(fs, "/a/plain.pdf", testutil.MinimalPDF(testutil.PDFOptions{Pages: 1}), 0644)
	afero.WriteFile(fs, "/a/Foo - Bar.epub", []byte("PK\x03\x04"), 0644)
	afero.WriteFile(fs, "/a/broken.pdf", []byte("%PDF-1.4 truncated"), 0644)

	tests := []struct {
		path string
		want Metadata
	}{
		{"/a/emma.pdf", Metadata{Title: "Emma", Author: "Jane Austen"}},
		{"/a/UPPER.PDF", Metadata{Title: "Emma", Author: "Jane Austen"}},
		{"/a/plain.pdf", Metadata{}},
		{"/a/Foo - Bar.epub", Metadata{}},
	}

	e := NewMetadataExtractor(fs)
	for _, tt := range tests {
		got, err := e.Extract(tt.path)
		if err != nil {
			t.Fatalf("Extract(%s) error = %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Extract(%s) = %+v, want %+v", tt.path, got, tt.want)
		}
	}

	if _, err := e.Extract("/a/broken.pdf"); err == nil {
		t.Error("Extract(broken.pdf) should fail")
	}

	// 没有内嵌信息时回退到文件名，不从文件名中拆分作者
	meta := withFallback(Metadata{}, "/a/Foo - Bar.epub")
	if meta.Title != "Foo - Bar" || meta.Author != UnknownAuthor {
		t.Errorf("withFallback() = %+v", meta)
	}
}

func TestExtension_Sniffed(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/a/scan", []byte("%PDF-1.7"), 0644)
	afero.WriteFile(fs, "/a/blob", []byte("random content"), 0644)

	if got := extension(fs, "/a/scan"); got != ".pdf" {
		t.Errorf("extension(scan) = %q, want .pdf", got)
	}
	if got := extension(fs, "/a/blob"); got != "" {
		t.Errorf("extension(blob) = %q, want empty", got)
	}
	if got := extension(fs, "/a/missing.TXT"); got != ".TXT" {
		t.Errorf("extension(missing.TXT) = %q", got)
	}
}
