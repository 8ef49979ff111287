package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ripple/internal/workspace"
)

type progressModel struct {
	title      string
	events     <-chan workspace.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []projectItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type projectItem struct {
	name   string
	status string
	stage  workspace.Stage
}

type eventMsg workspace.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders workspace build
// progress, one row per project.
func NewProgressModel(title string, projects []string, events <-chan workspace.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]projectItem, 0, len(projects))
	index := make(map[string]int, len(projects))
	for i, name := range projects {
		items = append(items, projectItem{name: name, status: "queued"})
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		ev := workspace.Event(msg)
		cmd := m.applyEvent(ev)
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	stageStyle  = lipgloss.NewStyle().Faint(true)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}

	settled, failed := 0, 0
	for _, item := range m.items {
		switch item.status {
		case "done":
			settled++
		case "error":
			settled++
			failed++
		}
	}

	var b strings.Builder
	if !m.done {
		b.WriteString(m.spinner.View())
		b.WriteByte(' ')
	}
	b.WriteString(titleStyle.Render(m.title))
	if m.stageLabel != "" {
		b.WriteString(stageStyle.Render(" · " + m.stageLabel))
	}
	fmt.Fprintf(&b, "  %d/%d", settled, len(m.items))
	if failed > 0 {
		b.WriteString(failedStyle.Render(fmt.Sprintf(" (%d failed)", failed)))
	}
	b.WriteString("\n\n")

	nameWidth := m.width - 16
	if nameWidth < 20 {
		nameWidth = 20
	}
	for _, item := range m.items {
		b.WriteString("  ")
		b.WriteString(styleStatus(item.status).Render(fmt.Sprintf("%-10s", item.status)))
		b.WriteByte(' ')
		b.WriteString(truncate(item.name, nameWidth))
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev workspace.Event) tea.Cmd {
	label := statusLabel(ev.Stage, ev.Status)
	if ev.Project == "" {
		// событие уровня workspace:граф, загрузка
		if label != "" {
			m.stageLabel = label
		}
		return nil
	}
	idx, ok := m.index[ev.Project]
	if !ok {
		return nil
	}
	if label != "" {
		m.items[idx].status = label
		m.items[idx].stage = ev.Stage
	}

	if len(m.items) > 0 {
		totalProgress := 0.0
		for _, item := range m.items {
			if item.status == "done" || item.status == "error" {
				totalProgress += 1.0
			} else {
				totalProgress += progressFromStage(item.stage)
			}
		}
		pct := totalProgress / float64(len(m.items))
		return m.prog.SetPercent(pct)
	}
	return nil
}

func progressFromStage(stage workspace.Stage) float64 {
	switch stage {
	case workspace.StageLoad:
		return 0.1
	case workspace.StageGraph:
		return 0.2
	case workspace.StageBuild:
		return 0.7
	default:
		return 0.0
	}
}

func statusLabel(stage workspace.Stage, status workspace.Status) string {
	switch status {
	case workspace.StatusQueued:
		return "queued"
	case workspace.StatusDone:
		return "done"
	case workspace.StatusError:
		return "error"
	case workspace.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage workspace.Stage) string {
	switch stage {
	case workspace.StageLoad:
		return "loading"
	case workspace.StageGraph:
		return "planning"
	case workspace.StageBuild:
		return "building"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "loading", "planning", "building":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
