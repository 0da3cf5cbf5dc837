package runctl

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/logger"
	"github.com/moyu-x/data-librarian/pkg/runlog"
)

const (
	StatusStarted    = "started"
	StatusRunning    = "running"
	StatusCancelled  = "cancelled"
	StatusNotRunning = "not_running"
	StatusFailed     = "failed"
)

// Job 在后台 goroutine 中执行的任务；返回错误表示整次运行失败
type Job func(r internal.Reporter) error

type StartResult struct {
	Status string `json:"status"`
	RunID  string `json:"run_id,omitempty"`
}

type CancelResult struct {
	Status string `json:"status"`
}

// Snapshot Poll 的返回值，Lines 为本次取走的日志行
type Snapshot struct {
	Lines        []string       `json:"output"`
	FilesChecked int            `json:"files_checked"`
	FilesTotal   int            `json:"total_files"`
	FilesMoved   int            `json:"files_moved"`
	Phase        internal.Phase `json:"phase"`
}

type Status struct {
	Running     bool           `json:"running"`
	LogFilePath string         `json:"log_file_path"`
	Phase       internal.Phase `json:"phase"`
	RunID       string         `json:"run_id,omitempty"`
	Cancelled   bool           `json:"cancelled"`
}

// Controller 某一类操作的运行状态
//
// 计数、日志缓冲和阶段只由后台任务写入；控制端只会设置取消标记。所有字段都在 mu 保护下读写。
type Controller struct {
	kind    internal.OperationKind
	pool    *ants.Pool
	console zerolog.Logger

	mu              sync.Mutex
	phase           internal.Phase
	runID           string
	filesTotal      int
	filesChecked    int
	filesMoved      int
	cancelRequested bool
	buffer          []string
	logFilePath     string
	done            chan struct{}
}

func New(kind internal.OperationKind) (*Controller, error) {
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, fmt.Errorf("创建 goroutine 池失败: %w", err)
	}

	return &Controller{
		kind:    kind,
		pool:    pool,
		console: logger.Get().With().Str("run", string(kind)).Logger(),
		phase:   internal.PhaseIdle,
	}, nil
}

// Start 在没有运行中的任务时重置状态并启动 job，否则返回 running
//
// 任务无法提交到 goroutine 池时，本次运行直接进入 failed 阶段并返回 failed。
func (c *Controller) Start(job Job) StartResult {
	c.mu.Lock()
	if c.phase.Active() {
		result := StartResult{Status: StatusRunning, RunID: c.runID}
		c.mu.Unlock()
		return result
	}

	c.phase = internal.PhaseCounting
	c.runID = uuid.NewString()
	c.filesTotal = 0
	c.filesChecked = 0
	c.filesMoved = 0
	c.cancelRequested = false
	c.buffer = nil
	c.logFilePath = ""
	done := make(chan struct{})
	c.done = done
	runID := c.runID
	c.mu.Unlock()

	run := &Run{c: c}
	run.sink = runlog.NewSink(c.appendLines, c.console)

	if err := c.pool.Submit(func() { c.execute(run, job, done) }); err != nil {
		logger.Get().Error().Err(err).Msgf("提交后台任务失败: %s", c.kind)
		run.sink.Write(fmt.Sprintf("*** CRITICAL ERROR: could not start %s run: %v", c.kind, err))
		c.finish(internal.PhaseFailed, done)
		return StartResult{Status: StatusFailed, RunID: runID}
	}

	logger.Get().Info().Msgf("已启动后台任务: %s (%s)", c.kind, runID)
	return StartResult{Status: StatusStarted, RunID: runID}
}

func (c *Controller) execute(run *Run, job Job, done chan struct{}) {
	phase := internal.PhaseFinished

	defer func() {
		if recovered := recover(); recovered != nil {
			run.sink.Write(fmt.Sprintf("*** UNEXPECTED ERROR in %s run: %v", c.kind, recovered))
			phase = internal.PhaseFailed
		}
		if err := run.sink.Close(); err != nil {
			logger.Get().Error().Err(err).Msg("关闭运行日志失败")
		}
		c.finish(phase, done)
	}()

	if err := job(run); err != nil {
		run.sink.Write(fmt.Sprintf("*** CRITICAL ERROR: %v", err))
		phase = internal.PhaseFailed
	}
}

func (c *Controller) finish(phase internal.Phase, done chan struct{}) {
	c.mu.Lock()
	c.phase = phase
	c.mu.Unlock()
	close(done)

	logger.Get().Info().Msgf("后台任务结束: %s (%s)", c.kind, phase)
}

// Cancel 请求协作式取消；任务在下一个检查点观察到后结束
func (c *Controller) Cancel() CancelResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.phase.Active() {
		return CancelResult{Status: StatusNotRunning}
	}

	c.cancelRequested = true
	c.phase = internal.PhaseCancelling
	logger.Get().Warn().Msgf("收到取消请求: %s", c.kind)
	return CancelResult{Status: StatusCancelled}
}

// Poll 取走缓冲的日志行并返回当前计数，不阻塞
func (c *Controller) Poll() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := c.buffer
	c.buffer = nil
	if lines == nil {
		lines = []string{}
	}

	return Snapshot{
		Lines:        lines,
		FilesChecked: c.filesChecked,
		FilesTotal:   c.filesTotal,
		FilesMoved:   c.filesMoved,
		Phase:        c.phase,
	}
}

// Status 返回运行状态，不取走日志
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		Running:     c.phase.Active(),
		LogFilePath: c.logFilePath,
		Phase:       c.phase,
		RunID:       c.runID,
		Cancelled:   c.cancelRequested,
	}
}

// Wait 阻塞到当前运行结束；没有运行过时立即返回
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Close 等待当前运行结束并释放 goroutine 池
func (c *Controller) Close() {
	c.Wait()
	c.pool.Release()
}

func (c *Controller) appendLines(lines ...string) {
	c.mu.Lock()
	c.buffer = append(c.buffer, lines...)
	c.mu.Unlock()
}

// Run 传给任务的运行句柄，实现 internal.Reporter
type Run struct {
	c    *Controller
	sink *runlog.Sink
}

func (r *Run) Logf(format string, args ...any) {
	if len(args) == 0 {
		r.sink.Write(format)
		return
	}
	r.sink.Write(fmt.Sprintf(format, args...))
}

func (r *Run) Cancelled() bool {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.c.cancelRequested
}

// SetPhase 取消请求之后的阶段变化会被忽略，阶段保持为 cancelling
func (r *Run) SetPhase(phase internal.Phase) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.c.phase == internal.PhaseCancelling {
		return
	}
	r.c.phase = phase
}

func (r *Run) SetTotal(total int) {
	r.c.mu.Lock()
	r.c.filesTotal = total
	r.c.mu.Unlock()
}

func (r *Run) AddChecked() {
	r.c.mu.Lock()
	r.c.filesChecked++
	r.c.mu.Unlock()
}

func (r *Run) AddMoved() {
	r.c.mu.Lock()
	r.c.filesMoved++
	r.c.mu.Unlock()
}

func (r *Run) AttachLog(w internal.LogWriter) {
	r.sink.Attach(w)

	r.c.mu.Lock()
	r.c.logFilePath = w.Path()
	r.c.mu.Unlock()
}
