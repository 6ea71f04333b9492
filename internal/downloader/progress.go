package downloader

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aniload/aniload/internal/models"
)

// The progress display owns the terminal for the duration of one series'
// downloads. Workers never render; they publish messages through
// program.Send and this model is the only reader.

// taskStartedMsg marks an episode as in flight.
type taskStartedMsg struct{ num int }

// taskProgressMsg carries bytes received for one episode.
type taskProgressMsg struct {
	num      int
	received int64
	total    int64
}

// taskDoneMsg reports a finished episode, successfully or not.
type taskDoneMsg struct {
	num int
	err error
}

// seriesDoneMsg tells the display every task has been attempted.
type seriesDoneMsg struct{}

var (
	seriesTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF6B6B")).
				Bold(true)

	batchPosStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#45B7D1"))

	failMarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757"))

	doneMarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4"))
)

type taskProgress struct {
	num      int
	label    string
	received int64
	total    int64
	started  bool
	done     bool
	err      error
	bar      progress.Model
}

// seriesModel renders one bar per in-flight episode plus an aggregate
// "episodes done / total" line, and in batch mode the series position.
type seriesModel struct {
	title       string
	seriesIndex int // 1-based position in the batch, 0 in single mode
	seriesTotal int
	tasks       []*taskProgress
	byNum       map[int]int
	completed   int
	failed      int
	done        bool
}

func newSeriesModel(title string, episodes []models.EpisodeRef, seriesIndex, seriesTotal int) *seriesModel {
	m := &seriesModel{
		title:       title,
		seriesIndex: seriesIndex,
		seriesTotal: seriesTotal,
		byNum:       make(map[int]int, len(episodes)),
	}
	for i, ep := range episodes {
		m.tasks = append(m.tasks, &taskProgress{
			num:   ep.Num,
			label: ep.Label,
			bar:   progress.New(progress.WithDefaultGradient()),
		})
		m.byNum[ep.Num] = i
	}
	return m
}

func (m *seriesModel) Init() tea.Cmd {
	return nil
}

func (m *seriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			return m, tea.Quit
		}

	case taskStartedMsg:
		if i, ok := m.byNum[msg.num]; ok {
			m.tasks[i].started = true
		}
		return m, nil

	case taskProgressMsg:
		i, ok := m.byNum[msg.num]
		if !ok {
			return m, nil
		}
		t := m.tasks[i]
		t.received = msg.received
		if msg.total > 0 {
			t.total = msg.total
		}
		if t.total > 0 {
			return m, t.bar.SetPercent(float64(t.received) / float64(t.total))
		}
		return m, nil

	case taskDoneMsg:
		i, ok := m.byNum[msg.num]
		if !ok {
			return m, nil
		}
		t := m.tasks[i]
		t.done = true
		t.err = msg.err
		if msg.err != nil {
			m.failed++
			return m, nil
		}
		m.completed++
		return m, t.bar.SetPercent(1.0)

	case seriesDoneMsg:
		m.done = true
		return m, tea.Quit

	case progress.FrameMsg:
		var cmds []tea.Cmd
		for _, t := range m.tasks {
			newBar, cmd := t.bar.Update(msg)
			t.bar = newBar.(progress.Model)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *seriesModel) View() string {
	var b strings.Builder

	header := seriesTitleStyle.Render(m.title)
	if m.seriesTotal > 0 {
		header += "  " + batchPosStyle.Render(fmt.Sprintf("series %d/%d", m.seriesIndex, m.seriesTotal))
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, t := range m.tasks {
		if !t.started || t.done {
			continue
		}
		percent := 0.0
		if t.total > 0 {
			percent = float64(t.received) / float64(t.total) * 100
		}
		b.WriteString(fmt.Sprintf("Episode %-6s %s %3.0f%%\n", t.label, t.bar.View(), percent))
	}

	b.WriteString(fmt.Sprintf("\nEpisodes completed: %d/%d", m.completed, len(m.tasks)))
	if m.failed > 0 {
		b.WriteString("  " + failMarkStyle.Render(fmt.Sprintf("failed: %d", m.failed)))
	}
	if m.done {
		b.WriteString("\n" + doneMarkStyle.Render("all episodes attempted"))
	}
	b.WriteString("\n")
	return b.String()
}
