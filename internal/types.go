package internal

import "time"

// Phase 运行阶段
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCounting   Phase = "counting"
	PhaseScanning   Phase = "scanning"
	PhaseCancelling Phase = "cancelling"
	PhaseFinished   Phase = "finished"
	PhaseFailed     Phase = "failed"
)

// Active 是否处于后台任务执行中的阶段
func (p Phase) Active() bool {
	return p == PhaseCounting || p == PhaseScanning || p == PhaseCancelling
}

// 操作类型，每种类型同一时刻只允许一个运行
type OperationKind string

const (
	KindScan  OperationKind = "scan"
	KindSplit OperationKind = "split"
	KindSort  OperationKind = "sort"
)

// 重复文件的处理结果
type Action string

const (
	ActionMoved    Action = "moved"
	ActionDryRun   Action = "dry_run"
	ActionVanished Action = "vanished"
	ActionFailed   Action = "failed"
)

// 处理统计
type ProcessStats struct {
	FilesTotal   int
	FilesChecked int
	FilesMoved   int
	Duplicates   int
	Errors       int
	Cancelled    bool
	Decisions    []Decision
	StartTime    time.Time
	EndTime      time.Time
}

// Decision 一次重复文件判定的结构化记录
type Decision struct {
	Original    string
	Duplicate   string
	Destination string
	Action      Action
	Err         error
}

// LogWriter 运行日志文件
type LogWriter interface {
	WriteLine(line string) error
	Path() string
	Close() error
}

// Reporter 后台任务向运行状态汇报的接口
//
// 只有任务所在的 goroutine 会调用这些方法；Cancelled 读取由控制端设置的取消标记。
type Reporter interface {
	Logf(format string, args ...any)
	Cancelled() bool
	SetPhase(phase Phase)
	SetTotal(total int)
	AddChecked()
	AddMoved()
	AttachLog(w LogWriter)
}
