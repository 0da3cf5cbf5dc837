package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/moyu-x/data-librarian/internal"
)

// 日志区域保留的行数
const tailSize = 12

const pollInterval = 100 * time.Millisecond

type model struct {
	title string
	src   Source

	phase        internal.Phase
	filesTotal   int
	filesChecked int
	filesMoved   int
	logFilePath  string
	tail         []string
	cancelSent   bool
	startTime    time.Time
	endTime      time.Time

	progressBar progress.Model
	spinner     spinner.Model
	width       int
}

func initialModel(title string, src Source) model {
	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.PercentageStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Width(4)

	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		FPS:    time.Second / 10,
	}
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		title:       title,
		src:         src,
		phase:       internal.PhaseCounting,
		progressBar: progressBar,
		spinner:     s,
		startTime:   time.Now(),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, pollTick())
}

func (m *model) done() bool {
	return m.phase == internal.PhaseFinished || m.phase == internal.PhaseFailed
}

func (m *model) percent() float64 {
	if m.filesTotal == 0 {
		return 0
	}
	p := float64(m.filesChecked) / float64(m.filesTotal)
	if p > 1 {
		return 1
	}
	return p
}

func (m *model) appendLines(lines []string) {
	m.tail = append(m.tail, lines...)
	if len(m.tail) > tailSize {
		m.tail = m.tail[len(m.tail)-tailSize:]
	}
}
