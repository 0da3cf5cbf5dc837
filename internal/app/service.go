package app

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/config"
	"github.com/moyu-x/data-librarian/pkg/database"
	"github.com/moyu-x/data-librarian/pkg/deduplicator"
	"github.com/moyu-x/data-librarian/pkg/index"
	"github.com/moyu-x/data-librarian/pkg/logger"
	"github.com/moyu-x/data-librarian/pkg/organizer"
	"github.com/moyu-x/data-librarian/pkg/runctl"
	"github.com/moyu-x/data-librarian/pkg/splitter"
)

// Service 控制面使用的全部操作，每种操作各有一个运行控制器
type Service struct {
	fs  afero.Fs
	cfg *config.Config

	scan  *runctl.Controller
	split *runctl.Controller
	sort  *runctl.Controller

	// OpenDocument 拆分时打开文档，默认使用 pdfcpu
	OpenDocument splitter.Opener
}

func NewService(fs afero.Fs, cfg *config.Config) (*Service, error) {
	s := &Service{fs: fs, cfg: cfg, OpenDocument: splitter.OpenPDF}

	var err error
	if s.scan, err = runctl.New(internal.KindScan); err != nil {
		return nil, err
	}
	if s.split, err = runctl.New(internal.KindSplit); err != nil {
		s.scan.Close()
		return nil, err
	}
	if s.sort, err = runctl.New(internal.KindSort); err != nil {
		s.scan.Close()
		s.split.Close()
		return nil, err
	}
	return s, nil
}

// Controller 返回指定类型操作的控制器
func (s *Service) Controller(kind internal.OperationKind) *runctl.Controller {
	switch kind {
	case internal.KindSplit:
		return s.split
	case internal.KindSort:
		return s.sort
	default:
		return s.scan
	}
}

// Close 等待所有运行结束并释放资源
func (s *Service) Close() {
	s.scan.Close()
	s.split.Close()
	s.sort.Close()
}

func (s *Service) resolve(folder, fallback string) string {
	if folder == "" {
		folder = fallback
	}
	if abs, err := filepath.Abs(folder); err == nil {
		return abs
	}
	return folder
}

func (s *Service) newIndex() (index.Index, error) {
	if s.cfg.Index.Backend != config.IndexBackendSQLite {
		return index.NewMemory(), nil
	}

	db, err := database.NewDatabase(s.cfg.Index.Path, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("opening digest index: %w", err)
	}
	return db, nil
}

// StartScan 启动重复文件扫描；root 为空时使用配置中的根目录
func (s *Service) StartScan(root string) runctl.StartResult {
	opts := deduplicator.Options{
		Root:           s.resolve(root, s.cfg.Scanner.Root),
		HoldingDirName: s.cfg.Scanner.HoldingDir,
		LogPrefix:      s.cfg.Scanner.LogPrefix,
		ExcludedDirs:   s.cfg.Scanner.ExcludedFolders,
		ExcludedFiles:  s.cfg.Scanner.ExcludedFiles,
		DryRun:         !s.cfg.Scanner.MoveDuplicates,
	}

	return s.scan.Start(func(r internal.Reporter) error {
		idx, err := s.newIndex()
		if err != nil {
			return err
		}
		_, err = deduplicator.NewDeduplicator(s.fs, opts, idx).Run(r)
		return err
	})
}

func (s *Service) PollScan() runctl.Snapshot { return s.scan.Poll() }
func (s *Service) ScanStatus() runctl.Status { return s.scan.Status() }
func (s *Service) CancelScan() runctl.CancelResult { return s.scan.Cancel() }

// StartSplit 启动 PDF 拆分；maxMB、initialPages 不大于 0 时使用配置值
func (s *Service) StartSplit(folder string, maxMB float64, initialPages int) runctl.StartResult {
	if maxMB <= 0 {
		maxMB = s.cfg.Splitter.MaxMB
	}
	if initialPages < 1 {
		initialPages = s.cfg.Splitter.InitialPages
	}
	opts := splitter.JobOptions{
		Folder:       s.resolve(folder, s.cfg.Scanner.Root),
		MaxMB:        maxMB,
		InitialPages: initialPages,
	}

	return s.split.Start(func(r internal.Reporter) error {
		_, err := splitter.NewJob(s.fs, opts, s.OpenDocument).Run(r)
		return err
	})
}

func (s *Service) PollSplit() runctl.Snapshot { return s.split.Poll() }
func (s *Service) SplitStatus() runctl.Status { return s.split.Status() }
func (s *Service) CancelSplit() runctl.CancelResult { return s.split.Cancel() }

// StartSort 启动书库整理；目标目录为相对路径时相对于 folder
func (s *Service) StartSort(folder string, dryRun bool) runctl.StartResult {
	source := s.resolve(folder, s.cfg.Scanner.Root)
	dest := s.cfg.Organizer.Destination
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(source, dest)
	}
	opts := organizer.Options{
		Source:      source,
		Destination: dest,
		IgnoreFiles: s.cfg.Organizer.IgnoreFiles,
		DryRun:      dryRun,
	}

	return s.sort.Start(func(r internal.Reporter) error {
		stats, err := organizer.NewOrganizer(s.fs, opts, nil).Run(r)
		if err == nil {
			logger.Get().Debug().Msg(stats.String())
		}
		return err
	})
}

func (s *Service) PollSort() runctl.Snapshot { return s.sort.Poll() }
func (s *Service) SortStatus() runctl.Status { return s.sort.Status() }
func (s *Service) CancelSort() runctl.CancelResult { return s.sort.Cancel() }
