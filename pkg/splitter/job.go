package splitter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/logger"
	"github.com/moyu-x/data-librarian/pkg/scanner"
)

const jobSeparator = "------------------------------------------------------------"

// Opener 打开一个分页文档
type Opener func(path string) (Document, error)

type JobOptions struct {
	Folder       string
	MaxMB        float64
	InitialPages int
}

// Result 一次文件夹拆分的结果
type Result struct {
	Processed int
	Chunks    []Chunk
	Errors    int
	Cancelled bool
}

// Job 拆分文件夹中所有超过大小上限的 PDF
type Job struct {
	fs   afero.Fs
	opts JobOptions
	open Opener
	now  func() time.Time
}

func NewJob(fs afero.Fs, opts JobOptions, open Opener) *Job {
	if opts.MaxMB <= 0 {
		opts.MaxMB = internal.DefaultSplitMaxMB
	}
	if opts.InitialPages < 1 {
		opts.InitialPages = internal.DefaultSplitInitialPages
	}
	if open == nil {
		open = OpenPDF
	}
	return &Job{fs: fs, opts: opts, open: open, now: time.Now}
}

func (j *Job) maxBytes() int64 {
	return int64(j.opts.MaxMB * bytesPerMB)
}

// isCandidate .pdf（不区分大小写）、不是拆分输出、且超过大小上限
func (j *Job) isCandidate(info os.FileInfo) bool {
	name := info.Name()
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return false
	}
	if IsChunkName(name) {
		return false
	}
	return info.Size() > j.maxBytes()
}

// Run 先收集候选文件，再逐个拆分
//
// 单个文档的错误写入日志后继续处理下一个。
func (j *Job) Run(r internal.Reporter) (*Result, error) {
	start := j.now()
	result := &Result{}

	r.Logf("PDF SPLITTER STARTED AT: [%s]", start.Format("2006-01-02T15:04:05.000000"))
	r.Logf("Target Folder: %s", j.opts.Folder)
	r.Logf("Max File Size: %g MB", j.opts.MaxMB)
	r.Logf("Initial Page Split: %d", j.opts.InitialPages)
	r.Logf(jobSeparator)

	if info, err := j.fs.Stat(j.opts.Folder); err != nil || !info.IsDir() {
		r.Logf("*** ERROR: Folder not found: %s", j.opts.Folder)
		result.Errors++
		return result, nil
	}

	splitter, err := New(j.fs, Options{MaxBytes: j.maxBytes(), InitialPages: j.opts.InitialPages})
	if err != nil {
		return result, err
	}

	type candidate struct {
		path string
		size int64
	}
	var candidates []candidate

	walker := scanner.NewFileWalker(j.fs, nil, nil)
	err = walker.Walk(j.opts.Folder, r.Cancelled, func(path string, info os.FileInfo) error {
		if j.isCandidate(info) {
			candidates = append(candidates, candidate{path: path, size: info.Size()})
		}
		return nil
	})
	switch {
	case errors.Is(err, scanner.ErrStopped):
		result.Cancelled = true
	case err != nil:
		r.Logf("*** ERROR walking %s: %v", j.opts.Folder, err)
		result.Errors++
	}

	r.SetTotal(len(candidates))
	r.SetPhase(internal.PhaseScanning)
	logger.Get().Info().Msgf("找到 %d 个需要拆分的 PDF", len(candidates))

	for _, c := range candidates {
		if result.Cancelled || r.Cancelled() {
			result.Cancelled = true
			break
		}

		name := filepath.Base(c.path)
		result.Processed++
		r.Logf("Processing: %s (%.2f MB)...", name, toMB(c.size))

		chunks, err := j.splitOne(splitter, c.path, r)
		result.Chunks = append(result.Chunks, chunks...)
		r.AddChecked()

		if errors.Is(err, ErrCancelled) {
			result.Cancelled = true
			break
		}
		if err != nil {
			r.Logf("*** ERROR processing PDF %s: %v", c.path, err)
			result.Errors++
		}
		r.Logf("Done with %s\n", name)
	}

	if result.Cancelled {
		r.Logf("\n*** USER CANCELLATION DETECTED ***")
	}

	r.Logf(jobSeparator)
	r.Logf("FINISHED. Processed %d large PDF(s).", result.Processed)
	r.Logf("Total Time: %s", j.now().Sub(start))
	return result, nil
}

func (j *Job) splitOne(s *Splitter, path string, r internal.Reporter) ([]Chunk, error) {
	doc, err := j.open(path)
	if err != nil {
		return nil, err
	}
	if closer, ok := doc.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	return s.Split(doc, path, r)
}
