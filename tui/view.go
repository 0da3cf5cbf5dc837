package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/moyu-x/data-librarian/internal"
)

func (m *model) View() string {
	var b strings.Builder

	switch m.phase {
	case internal.PhaseCounting:
		b.WriteString(titleStyle.Render("🔍 "+m.title+"：正在计算文件数量...") + "\n")
		b.WriteString(m.spinner.View() + " 正在遍历目录并统计文件数量...\n\n")
	case internal.PhaseScanning:
		b.WriteString(titleStyle.Render("🔄 "+m.title+"：正在处理文件...") + "\n")
		b.WriteString(m.progressBar.View() + "\n\n")
	case internal.PhaseCancelling:
		b.WriteString(titleStyle.Render("⏳ "+m.title+"：正在取消...") + "\n")
		b.WriteString(m.progressBar.View() + "\n\n")
	case internal.PhaseFailed:
		b.WriteString(failedTitleStyle.Render("❌ "+m.title+"：运行失败") + "\n")
	default:
		b.WriteString(successTitleStyle.Render("✅ "+m.title+"：处理完成！") + "\n")
		b.WriteString(m.progressBar.View() + "\n\n")
	}

	b.WriteString(statsBoxStyle.Render(m.renderStats()) + "\n\n")

	b.WriteString(labelStyle.Render("运行日志：") + "\n")
	for _, line := range m.tail {
		if strings.HasPrefix(strings.TrimSpace(line), "***") {
			b.WriteString(warnLineStyle.Render(line) + "\n")
		} else {
			b.WriteString(logLineStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\n" + separatorStyle.Render(strings.Repeat("─", 60)) + "\n")
	b.WriteString(hintStyle.Render(m.hint()) + "\n")

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(b.String())
}

func (m *model) hint() string {
	switch {
	case m.done():
		return "按任意键退出"
	case m.cancelSent:
		return "已请求取消，再按 Ctrl+C 退出界面"
	default:
		return "Ctrl+C 取消运行"
	}
}

func (m *model) renderStats() string {
	var b strings.Builder
	b.WriteString("📊 实时统计：\n")
	b.WriteString(fmt.Sprintf("  已检查：  %d / %d\n", m.filesChecked, m.filesTotal))
	b.WriteString(fmt.Sprintf("  已移动：  %d 个文件\n", m.filesMoved))

	end := m.endTime
	if end.IsZero() {
		end = time.Now()
	}
	b.WriteString(fmt.Sprintf("  耗时：    %s", end.Sub(m.startTime).Round(time.Second)))

	if m.logFilePath != "" {
		b.WriteString("\n  日志文件：" + m.logFilePath)
	}
	return b.String()
}
