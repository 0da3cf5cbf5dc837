package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/moyu-x/data-librarian/pkg/logger"
	"github.com/moyu-x/data-librarian/pkg/runctl"
)

// Source 被观察的运行，通常是一个 *runctl.Controller
type Source interface {
	Poll() runctl.Snapshot
	Status() runctl.Status
	Cancel() runctl.CancelResult
}

// Run 在终端中显示运行进度，运行结束后按任意键退出
//
// 第一次 Ctrl+C 请求取消，第二次直接退出界面（后台任务仍会在下一个检查点结束）。
func Run(title string, src Source) error {
	logger.Get().Info().Msg("启动 TUI 界面")

	m := initialModel(title, src)
	p := tea.NewProgram(&m, tea.WithAltScreen())

	_, err := p.Run()
	if err != nil {
		logger.Get().Error().Err(err).Msg("TUI 运行错误")
	} else {
		logger.Get().Info().Msg("TUI 正常退出")
	}

	return err
}
