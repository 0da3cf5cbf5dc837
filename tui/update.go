package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/moyu-x/data-librarian/internal"
	"github.com/moyu-x/data-librarian/pkg/logger"
)

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(msg.Width-10, 10)
		return m, nil

	case pollTickMsg:
		return m, m.poll()

	case spinner.TickMsg:
		if m.done() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		model, cmd := m.progressBar.Update(msg)
		m.progressBar = model.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.done() {
		return m, tea.Quit
	}

	if msg.String() != "ctrl+c" && msg.String() != "q" {
		return m, nil
	}

	if m.cancelSent {
		return m, tea.Quit
	}

	result := m.src.Cancel()
	m.cancelSent = true
	logger.Get().Warn().Msgf("已请求取消: %s", result.Status)
	return m, nil
}

// poll 取走新的日志行并刷新计数；运行结束后停止轮询
func (m *model) poll() tea.Cmd {
	snap := m.src.Poll()
	m.appendLines(snap.Lines)
	m.filesTotal = snap.FilesTotal
	m.filesChecked = snap.FilesChecked
	m.filesMoved = snap.FilesMoved
	m.phase = snap.Phase

	if m.logFilePath == "" {
		m.logFilePath = m.src.Status().LogFilePath
	}

	if m.done() {
		m.endTime = time.Now()
		m.logFinalStats()
		return m.progressBar.SetPercent(m.percent())
	}

	cmds := []tea.Cmd{pollTick()}
	if m.phase == internal.PhaseScanning || m.phase == internal.PhaseCancelling {
		cmds = append(cmds, m.progressBar.SetPercent(m.percent()))
	}
	return tea.Batch(cmds...)
}

func pollTick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func (m *model) logFinalStats() {
	logger.Get().Info().Msg("========== 处理完成 ==========")
	logger.Get().Info().Msgf("状态: %s", m.phase)
	logger.Get().Info().Msgf("已检查: %d/%d", m.filesChecked, m.filesTotal)
	logger.Get().Info().Msgf("已移动: %d 个", m.filesMoved)
	if m.logFilePath != "" {
		logger.Get().Info().Msgf("运行日志: %s", m.logFilePath)
	}
	logger.Get().Info().Msgf("总耗时: %v", m.endTime.Sub(m.startTime).Round(time.Millisecond))
	logger.Get().Info().Msg("============================")
}
