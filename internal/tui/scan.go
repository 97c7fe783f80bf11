// Package tui renders scan progress as a terminal UI fed by the
// orchestrator's progress callback.
package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"wraith/internal/scan"
)

// ErrInterrupted reports that the user quit the UI before the scan
// finished.
var ErrInterrupted = errors.New("scan interrupted")

// progressMsg is sent once per completed task.
type progressMsg struct {
	completed int
	total     int
}

// doneMsg is sent when the scan finishes.
type doneMsg struct {
	stats *scan.Stats
	err   error
}

type model struct {
	spinner   spinner.Model
	bar       progress.Model
	completed int
	total     int
	done      bool
	stats     *scan.Stats
	err       error
}

func newModel() model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return model{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.done && (msg.String() == "q" || msg.String() == "enter") {
			return m, tea.Quit
		}
		return m, nil
	case progressMsg:
		m.completed = msg.completed
		m.total = msg.total
		return m, nil
	case doneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// result translates the final model into the Run return values. A quit
// before doneMsg arrived is an interruption, never a nil-stats success.
func (m model) result() (*scan.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if !m.done {
		return nil, ErrInterrupted
	}
	return m.stats, nil
}

func (m model) View() string {
	s := "\n" + titleStyle.Render("  Scanning") + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Scan complete") + "\n"
		if m.stats != nil {
			s += fmt.Sprintf("  Files: %d total, %d generated, %d reused, %d failed\n",
				m.stats.FilesTotal, m.stats.FilesChanged, m.stats.FilesReused, m.stats.FilesFailed)
		}
		return s
	}

	frac := 0.0
	if m.total > 0 {
		frac = float64(m.completed) / float64(m.total)
	}
	s += fmt.Sprintf("  %s %d / %d files\n", m.spinner.View(), m.completed, m.total)
	s += "  " + m.bar.ViewAs(frac) + "\n\n"
	s += dimStyle.Render("  Generation can take a while for changed files...") + "\n"
	return s
}

// Run drives scanFn under the progress UI and returns its result. The
// callback handed to scanFn is safe to call from the scan's
// coordinating goroutine.
func Run(scanFn func(scan.ProgressFunc) (*scan.Stats, error)) (*scan.Stats, error) {
	p := tea.NewProgram(newModel())

	go func() {
		stats, err := scanFn(func(completed, total int) {
			p.Send(progressMsg{completed: completed, total: total})
		})
		p.Send(doneMsg{stats: stats, err: err})
	}()

	out, err := p.Run()
	if err != nil {
		return nil, err
	}
	return out.(model).result()
}
