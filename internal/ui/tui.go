package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskbind/internal/bind"
	"taskbind/internal/session"
	"taskbind/internal/topology"
)

type step int

const (
	stepTasks step = iota
	stepThreads
	stepBrowse
	stepError
)

type Model struct {
	topo      *topology.Topology
	base      *session.Session
	step      step
	tasks     int
	threads   int
	plans     []bind.RankPlan
	cursor    int
	textInput textinput.Model
	err       error
	width     int
	height    int
}

func NewModel(topo *topology.Topology, base *session.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter number..."
	ti.Focus()
	ti.CharLimit = 6
	ti.Width = 20
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB"))
	ti.PromptStyle = lipgloss.NewStyle().Foreground(threadColor)
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(accentColor)

	return Model{
		topo:      topo,
		base:      base,
		step:      stepTasks,
		tasks:     base.LocalSize,
		threads:   base.NumThreads,
		textInput: ti,
		width:     80,
		height:    24,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.step == stepBrowse && m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.step == stepBrowse && m.cursor < len(m.plans)-1 {
				m.cursor++
			}

		case "enter":
			return m.handleEnter()

		case "esc":
			switch m.step {
			case stepThreads:
				m.step = stepTasks
				m.textInput.SetValue(strconv.Itoa(m.tasks))
				m.textInput.Focus()
				return m, textinput.Blink
			case stepBrowse, stepError:
				m.step = stepTasks
				m.textInput.SetValue("")
				m.textInput.Focus()
				return m, textinput.Blink
			}
		}
	}

	if m.step == stepTasks || m.step == stepThreads {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.step {
	case stepTasks:
		value := strings.TrimSpace(m.textInput.Value())
		if value != "" {
			tasks, err := strconv.Atoi(value)
			if err != nil || tasks <= 0 {
				m.err = fmt.Errorf("task count must be a positive number, got %q", value)
				m.step = stepError
				return m, nil
			}
			m.tasks = tasks
		}
		if m.tasks <= 0 {
			m.tasks = 1
		}
		m.step = stepThreads
		m.textInput.SetValue("")
		m.textInput.Placeholder = "0 derives from core count"
		m.textInput.Focus()
		return m, textinput.Blink

	case stepThreads:
		value := strings.TrimSpace(m.textInput.Value())
		if value != "" {
			threads, err := strconv.Atoi(value)
			if err != nil || threads < 0 {
				m.err = fmt.Errorf("thread count must not be negative, got %q", value)
				m.step = stepError
				return m, nil
			}
			m.threads = threads
		}
		base := *m.base
		base.LocalSize = m.tasks
		base.NumThreads = m.threads
		m.plans = bind.ComputeAll(m.topo, &base)
		m.cursor = 0
		m.step = stepBrowse
		return m, nil

	case stepError:
		m.step = stepTasks
		m.textInput.SetValue("")
		m.textInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("taskbind plan explorer"))
	b.WriteString("\n\n")

	switch m.step {
	case stepTasks:
		b.WriteString(subtitleStyle.Render("Local task count"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("  %s\n\n", dimStyle.Render(fmt.Sprintf("current: %d", m.tasks))))
		b.WriteString("  " + m.textInput.View() + "\n\n")
		b.WriteString(helpStyle.Render("  enter confirm · q quit"))

	case stepThreads:
		b.WriteString(subtitleStyle.Render("Threads per task"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("  %s\n\n", dimStyle.Render(fmt.Sprintf("current: %d (0 = derive)", m.threads))))
		b.WriteString("  " + m.textInput.View() + "\n\n")
		b.WriteString(helpStyle.Render("  enter confirm · esc back · q quit"))

	case stepBrowse:
		b.WriteString(m.renderBrowse())

	case stepError:
		b.WriteString(errorBoxStyle.Render(fmt.Sprintf("✗ %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  enter retry · q quit"))
	}

	return boxStyle.Width(m.width - 4).Render(b.String())
}

func (m Model) renderBrowse() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%d tasks on this node", len(m.plans))))
	b.WriteString("\n\n")

	for i, rp := range m.plans {
		cursor := "  "
		style := dimStyle
		if i == m.cursor {
			cursor = cursorStyle.Render("▸ ")
			style = selectedStyle
		}
		if rp.Err != nil {
			b.WriteString(fmt.Sprintf("%s%s  %s\n", cursor,
				style.Render(fmt.Sprintf("rank %d", rp.Rank)),
				highlightStyle.Render("unbound")))
			continue
		}
		b.WriteString(fmt.Sprintf("%s%s  %s\n", cursor,
			style.Render(fmt.Sprintf("rank %d", rp.Rank)),
			unitStyle.Render(rp.Plan.Cpuset.String())))
	}

	if m.cursor < len(m.plans) {
		b.WriteString("\n")
		b.WriteString(m.renderDetail(m.plans[m.cursor]))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  ↑/↓ select rank · esc restart · q quit"))
	return b.String()
}

func (m Model) renderDetail(rp bind.RankPlan) string {
	if rp.Err != nil {
		return errorBoxStyle.Render(fmt.Sprintf("rank %d runs unbound: %v", rp.Rank, rp.Err))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render("units:"), unitStyle.Render(rp.Plan.Cpuset.String())))
	b.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render("thread units:"), threadStyle.Render(rp.Plan.ThreadUnits)))
	b.WriteString(fmt.Sprintf("  %s %d\n", dimStyle.Render("threads:"), rp.Plan.NumThreads))
	if rp.Plan.Devices != "" {
		b.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render("devices:"), deviceStyle.Render(rp.Plan.Devices)))
	}
	b.WriteString(fmt.Sprintf("  %s %d\n", dimStyle.Render("pool size:"), rp.Plan.LevelSize))
	return strings.TrimRight(b.String(), "\n")
}

// Run starts the interactive plan explorer.
func Run(topo *topology.Topology, base *session.Session) error {
	program := tea.NewProgram(NewModel(topo, base), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
