package deduplicator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/hasher"
	"github.com/moyu-x/data-librarian/pkg/index"
	"github.com/moyu-x/data-librarian/pkg/logger"
	"github.com/moyu-x/data-librarian/pkg/quarantine"
	"github.com/moyu-x/data-librarian/pkg/runlog"
	"github.com/moyu-x/data-librarian/pkg/sanitize"
	"github.com/moyu-x/data-librarian/pkg/scanner"
)

// ErrRootNotFound 扫描根目录不存在
var ErrRootNotFound = errors.New("scan root not found")

// 运行日志中的时间格式
const timeLayout = "2006-01-02T15:04:05.000000"

type Options struct {
	Root           string
	HoldingDirName string
	LogPrefix      string
	ExcludedDirs   []string
	ExcludedFiles  []string
	DryRun         bool
}

// Deduplicator 一次重复文件扫描
//
// 每次扫描使用新的 Deduplicator 和新的索引；Run 结束时关闭索引。
type Deduplicator struct {
	fs     afero.Fs
	opts   Options
	index  index.Index
	hasher *hasher.Hasher
	now    func() time.Time
}

func NewDeduplicator(fs afero.Fs, opts Options, idx index.Index) *Deduplicator {
	if opts.HoldingDirName == "" {
		opts.HoldingDirName = internal.DefaultHoldingDir
	}
	if opts.LogPrefix == "" {
		opts.LogPrefix = internal.DefaultLogPrefix
	}
	if idx == nil {
		idx = index.NewMemory()
	}

	logger.Get().Info().Msgf("创建去重处理器: %s (dry-run=%v)", opts.Root, opts.DryRun)
	return &Deduplicator{
		fs:     fs,
		opts:   opts,
		index:  idx,
		hasher: hasher.New(fs),
		now:    time.Now,
	}
}

// HoldingDir 重复文件存放目录，位于扫描根目录下
func (d *Deduplicator) HoldingDir() string {
	return filepath.Join(d.opts.Root, d.opts.HoldingDirName)
}

func (d *Deduplicator) logFileName(start time.Time) string {
	prefix := strings.TrimSuffix(d.opts.LogPrefix, filepath.Ext(d.opts.LogPrefix))
	return fmt.Sprintf("%s_%s.txt", prefix, start.Format(internal.LogTimestampFormat))
}

// Run 执行计数遍历和处理遍历
//
// 只有根目录不存在、无法创建存放目录、无法创建日志文件时返回错误，此时没有任何文件被处理。
// 单个文件的错误写入运行日志后继续。
func (d *Deduplicator) Run(r internal.Reporter) (*internal.ProcessStats, error) {
	defer func() {
		if err := d.index.Close(); err != nil {
			logger.Get().Error().Err(err).Msg("关闭摘要索引失败")
		}
	}()

	stats := &internal.ProcessStats{StartTime: d.now()}

	info, err := d.fs.Stat(d.opts.Root)
	if err != nil || !info.IsDir() {
		return stats, fmt.Errorf("%w: %s", ErrRootNotFound, d.opts.Root)
	}

	holdingDir := d.HoldingDir()
	if err := d.fs.MkdirAll(holdingDir, 0755); err != nil {
		return stats, fmt.Errorf("could not create holding directory '%s': %w", holdingDir, err)
	}

	logPath := filepath.Join(holdingDir, d.logFileName(stats.StartTime))
	logFile, err := runlog.Create(d.fs, logPath)
	if err != nil {
		return stats, fmt.Errorf("failed to open log file '%s': %w", logPath, err)
	}
	r.AttachLog(logFile)

	r.Logf("DUPLICATE FILE DETECTION STARTED AT: [%s]", stats.StartTime.Format(timeLayout))
	r.Logf(internal.Separator + "\n")
	if d.opts.DryRun {
		r.Logf("Mode: DRY RUN (duplicates are reported, nothing is moved)")
	}

	walker := scanner.NewFileWalker(d.fs, d.opts.ExcludedDirs, d.opts.ExcludedFiles)
	walker.ExcludeDir(d.opts.HoldingDirName)

	r.Logf("Calculating total files...")
	total, err := walker.CountFiles(d.opts.Root, r.Cancelled)
	switch {
	case errors.Is(err, scanner.ErrStopped):
		stats.Cancelled = true
	case err != nil:
		return stats, fmt.Errorf("counting files: %w", err)
	}

	stats.FilesTotal = total
	r.SetTotal(total)
	r.Logf("Scanning directory: %s", d.opts.Root)
	r.Logf("Total files to scan: %d\n", total)

	if !stats.Cancelled {
		r.SetPhase(internal.PhaseScanning)
		mover := quarantine.NewMover(d.fs, holdingDir)

		err = walker.Walk(d.opts.Root, r.Cancelled, func(path string, info os.FileInfo) error {
			r.AddChecked()
			stats.FilesChecked++
			d.processFile(r, mover, stats, path)
			return nil
		})
		switch {
		case errors.Is(err, scanner.ErrStopped):
			stats.Cancelled = true
		case err != nil:
			// 根目录在两次遍历之间消失
			r.Logf("*** ERROR walking %s: %v\n", d.opts.Root, err)
			stats.Errors++
		}
	}

	if stats.Cancelled {
		r.Logf("\n*** USER CANCELLATION DETECTED ***")
		logger.Get().Warn().Msgf("扫描已取消，已处理: %d/%d 个文件", stats.FilesChecked, stats.FilesTotal)
	}

	stats.EndTime = d.now()
	r.Logf("\n" + internal.Separator)
	r.Logf("DUPLICATE FILE DETECTION FINISHED AT: [%s]", stats.EndTime.Format(timeLayout))
	r.Logf("Total Time Taken: [%s]", stats.EndTime.Sub(stats.StartTime))
	r.Logf("Total Files Processed: [%d]", stats.FilesChecked)
	r.Logf("Total Files Moved: [%d]", stats.FilesMoved)
	r.Logf("Total Duplicates Found: [%d]", stats.Duplicates)
	r.Logf("Total Errors: [%d]", stats.Errors)

	logger.Get().Info().Msgf("统计: Processed=%d, Duplicates=%d, Moved=%d, Errors=%d",
		stats.FilesChecked, stats.Duplicates, stats.FilesMoved, stats.Errors)
	return stats, nil
}

func (d *Deduplicator) processFile(r internal.Reporter, mover *quarantine.Mover, stats *internal.ProcessStats, path string) {
	digest, err := d.hasher.File(path)
	if err != nil {
		r.Logf("*** ERROR hashing file [%s]: %v\n", path, err)
		stats.Errors++
		return
	}

	original, duplicate, err := d.index.Claim(digest, path)
	if err != nil {
		r.Logf("*** ERROR processing file [%s]: %v\n", path, err)
		stats.Errors++
		return
	}
	if !duplicate {
		return
	}

	stats.Duplicates++
	name := sanitize.Filename(filepath.Base(path))
	decision := internal.Decision{Original: original, Duplicate: path}

	if d.opts.DryRun {
		dst, err := mover.Plan(name)
		if err != nil {
			dst = filepath.Join(mover.Dir(), name)
		}
		decision.Destination = dst
		decision.Action = internal.ActionDryRun
		r.Logf("Duplicate found (DRY RUN - NOT MOVED):\n  Original: [%s]\n  Duplicate: [%s]\n  Would move as: [%s]\n",
			original, path, filepath.Base(dst))
		stats.Decisions = append(stats.Decisions, decision)
		return
	}

	dst, err := mover.Move(path, name)
	switch {
	case errors.Is(err, quarantine.ErrVanished):
		decision.Action = internal.ActionVanished
		decision.Err = err
		r.Logf("*** WARNING: File vanished before move: %s\n", path)
	case err != nil:
		decision.Action = internal.ActionFailed
		decision.Destination = filepath.Join(mover.Dir(), name)
		decision.Err = err
		stats.Errors++
		r.Logf("*** ERROR moving file: %s to %s - %v\n", path, decision.Destination, err)
	default:
		decision.Action = internal.ActionMoved
		decision.Destination = dst
		stats.FilesMoved++
		r.AddMoved()
		r.Logf("Duplicate found & MOVED:\n  Original: [%s]\n  Duplicate: [%s]\n  Moved to: [%s]\n",
			original, path, filepath.Base(dst))
	}
	stats.Decisions = append(stats.Decisions, decision)
}
