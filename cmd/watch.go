package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/internal/app"
	"github.com/moyu-x/data-librarian/pkg/logger"
	"github.com/moyu-x/data-librarian/pkg/runctl"
	"github.com/moyu-x/data-librarian/tui"
)

// 非 TUI 模式下打印进度的间隔
const progressInterval = 2 * time.Second

var errRunFailed = errors.New("运行失败")

func newService() (*app.Service, error) {
	return app.NewService(afero.NewOsFs(), cfg)
}

// runAndWatch 启动一次运行并阻塞到结束
//
// 收到 SIGINT/SIGTERM 时请求协作式取消。--tui 时由 TUI 显示进度，否则运行日志由控制台输出。
func runAndWatch(cmd *cobra.Command, svc *app.Service, kind internal.OperationKind, title string, start func() runctl.StartResult) error {
	ctrl := svc.Controller(kind)

	result := start()
	if result.Status != runctl.StatusStarted {
		return fmt.Errorf("无法启动 %s: %s", kind, result.Status)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		// 正常结束时 stop 也会触发 Done，此时运行已不在进行中
		if ctrl.Status().Running {
			logger.Get().Warn().Msg("收到中断信号，正在取消...")
			ctrl.Cancel()
		}
	}()

	useTUI, _ := cmd.Flags().GetBool("tui")
	if useTUI {
		if err := tui.Run(title, ctrl); err != nil {
			ctrl.Cancel()
		}
		ctrl.Wait()
	} else {
		waitWithProgress(ctrl)
	}

	return printFinalStats(title, ctrl)
}

// waitWithProgress 定期取走缓冲的日志行，控制台已经由运行日志输出
func waitWithProgress(ctrl *runctl.Controller) {
	done := make(chan struct{})
	go func() {
		ctrl.Wait()
		close(done)
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastChecked := -1
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := ctrl.Poll()
			if snap.Phase == internal.PhaseScanning && snap.FilesChecked != lastChecked && snap.FilesTotal > 0 {
				percent := float64(snap.FilesChecked) / float64(snap.FilesTotal) * 100
				logger.Get().Debug().Msgf("处理进度: %d/%d (%.1f%%)", snap.FilesChecked, snap.FilesTotal, percent)
				lastChecked = snap.FilesChecked
			}
		}
	}
}

func printFinalStats(title string, ctrl *runctl.Controller) error {
	snap := ctrl.Poll()
	status := ctrl.Status()

	logger.Get().Info().Msgf("========== %s结束 ==========", title)
	logger.Get().Info().Msgf("状态: %s", status.Phase)
	logger.Get().Info().Msgf("已检查: %d/%d", snap.FilesChecked, snap.FilesTotal)
	logger.Get().Info().Msgf("已移动: %d 个", snap.FilesMoved)
	if status.LogFilePath != "" {
		logger.Get().Info().Msgf("运行日志: %s", status.LogFilePath)
	}
	if status.Cancelled {
		logger.Get().Warn().Msg("运行已被取消")
	}
	logger.Get().Info().Msg("============================")

	if status.Phase == internal.PhaseFailed {
		return errRunFailed
	}
	return nil
}
