package organizer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/logger"
	"github.com/moyu-x/data-librarian/pkg/quarantine"
	"github.com/moyu-x/data-librarian/pkg/sanitize"
	"github.com/moyu-x/data-librarian/pkg/scanner"
)

const organizerSeparator = "-------------------------------------"

type Options struct {
	Source      string
	Destination string
	IgnoreFiles []string
	DryRun      bool
}

type Stats struct {
	TotalProcessed int
	Moved          int
	Skipped        int
	Failed         int
	Cancelled      bool
}

func (s *Stats) String() string {
	var buf bytes.Buffer

	buf.WriteString("========== 整理统计 ==========\n")
	buf.WriteString(fmt.Sprintf("总文件数: %d\n", s.TotalProcessed))
	buf.WriteString(fmt.Sprintf("已移动: %d\n", s.Moved))
	buf.WriteString(fmt.Sprintf("已跳过: %d\n", s.Skipped))
	buf.WriteString(fmt.Sprintf("失败: %d\n", s.Failed))
	if s.Cancelled {
		buf.WriteString("已取消\n")
	}
	buf.WriteString("============================")

	return buf.String()
}

// Organizer 按 <目标>/<作者>/<标题><扩展名> 整理书库
type Organizer struct {
	fs        afero.Fs
	opts      Options
	extractor Extractor
}

func NewOrganizer(fs afero.Fs, opts Options, extractor Extractor) *Organizer {
	if opts.Destination == "" {
		opts.Destination = filepath.Join(opts.Source, internal.DefaultOrganizeDestination)
	}
	if opts.IgnoreFiles == nil {
		opts.IgnoreFiles = internal.DefaultIgnoreFiles
	}
	if extractor == nil {
		extractor = NewMetadataExtractor(fs)
	}
	return &Organizer{fs: fs, opts: opts, extractor: extractor}
}

// inDestination 路径是否位于目标目录内
func (o *Organizer) inDestination(path string) bool {
	dest := filepath.Clean(o.opts.Destination)
	return path == dest || strings.HasPrefix(path, dest+string(filepath.Separator))
}

// Run 先收集源目录中的文件，再逐个移动
//
// 目标目录在源目录内时其中的文件不会被再次整理。单个文件失败只计数。
func (o *Organizer) Run(r internal.Reporter) (*Stats, error) {
	stats := &Stats{}

	r.Logf("--- Starting Library Organization ---")
	r.Logf("Source: %s", o.opts.Source)
	r.Logf("Destination: %s", o.opts.Destination)
	if o.opts.DryRun {
		r.Logf("Mode: DRY RUN (nothing is moved)")
	}
	r.Logf(organizerSeparator)

	if info, err := o.fs.Stat(o.opts.Source); err != nil || !info.IsDir() {
		r.Logf("*** ERROR: Folder not found: %s", o.opts.Source)
		stats.Failed++
		return stats, nil
	}

	var files []string
	walker := scanner.NewFileWalker(o.fs, nil, o.opts.IgnoreFiles)
	err := walker.Walk(o.opts.Source, r.Cancelled, func(path string, info os.FileInfo) error {
		if !o.inDestination(path) {
			files = append(files, path)
		}
		return nil
	})
	switch {
	case errors.Is(err, scanner.ErrStopped):
		stats.Cancelled = true
	case err != nil:
		return stats, fmt.Errorf("遍历源目录失败: %w", err)
	}

	r.SetTotal(len(files))
	r.SetPhase(internal.PhaseScanning)

	// 每个作者目录一个 Mover，预览模式下已给出的文件名在本次运行中不会重复
	movers := make(map[string]*quarantine.Mover)
	for _, path := range files {
		if stats.Cancelled || r.Cancelled() {
			stats.Cancelled = true
			break
		}
		stats.TotalProcessed++
		r.AddChecked()
		o.organizeFile(r, stats, movers, path)
	}

	if stats.Cancelled {
		r.Logf("\n*** USER CANCELLATION DETECTED ***")
	}
	r.Logf(organizerSeparator)
	r.Logf("Finished. Organized %d books. Errors: %d", stats.Moved, stats.Failed)

	logger.Get().Info().Msgf("整理完成: 移动 %d 个, 失败 %d 个", stats.Moved, stats.Failed)
	return stats, nil
}

func (o *Organizer) organizeFile(r internal.Reporter, stats *Stats, movers map[string]*quarantine.Mover, path string) {
	meta, err := o.extractor.Extract(path)
	if err != nil {
		logger.Get().Debug().Err(err).Msgf("提取元数据失败，使用文件名: %s", path)
	}
	meta = withFallback(meta, path)

	author := sanitize.Filename(meta.Author)
	name := sanitize.Filename(meta.Title) + extension(o.fs, path)
	destDir := filepath.Join(o.opts.Destination, author)

	if filepath.Join(destDir, name) == path {
		stats.Skipped++
		return
	}

	mover, ok := movers[destDir]
	if !ok {
		mover = quarantine.NewMover(o.fs, destDir)
		movers[destDir] = mover
	}
	var dst string
	if o.opts.DryRun {
		dst, err = mover.Plan(name)
	} else {
		dst, err = mover.Move(path, name)
	}
	if err != nil {
		r.Logf("Error moving %s: %v", filepath.Base(path), err)
		stats.Failed++
		return
	}

	if o.opts.DryRun {
		r.Logf("Would move: %s\n   -> %s/%s", filepath.Base(path), author, filepath.Base(dst))
		return
	}
	r.Logf("Moving: %s\n   -> %s/%s", filepath.Base(path), author, filepath.Base(dst))
	stats.Moved++
	r.AddMoved()
}
