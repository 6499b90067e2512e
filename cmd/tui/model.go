package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	chatModel "github.com/zhouzirui/medassist/backend/internal/model/chat"
	"github.com/zhouzirui/medassist/backend/internal/model/persona"
	"github.com/zhouzirui/medassist/backend/internal/service/chat"
)

// controller is the part of *chat.Controller the widget drives.
type controller interface {
	Submit(text string) (<-chan chatModel.Turn, chat.SubmitResult)
	SetDraft(text string)
	Transcript() []chatModel.Turn
	Busy() bool
}

type turnMsg struct {
	index int
	turn  chatModel.Turn
}

type busyMsg bool

type theme struct {
	header    lipgloss.Style
	panel     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	errorTurn lipgloss.Style
	status    lipgloss.Style
	help      lipgloss.Style
}

func newTheme() theme {
	teal := lipgloss.Color("#0f766e")
	slate := lipgloss.Color("#64748b")
	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f8fafc")).
			Background(teal).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(teal).
			Padding(0, 1),
		user:      lipgloss.NewStyle().Foreground(lipgloss.Color("#2563eb")).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(teal).Bold(true),
		errorTurn: lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626")),
		status:    lipgloss.NewStyle().Foreground(slate).Italic(true),
		help:      lipgloss.NewStyle().Foreground(slate),
	}
}

type model struct {
	ctrl     controller
	persona  persona.Persona
	events   <-chan tea.Msg
	turns    []chatModel.Turn
	busy     bool
	notice   string
	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model
	theme    theme
	width    int
	height   int
}

func newModel(ctrl controller, p persona.Persona, events <-chan tea.Msg) model {
	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 4000
	input.Placeholder = p.Placeholder
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f766e"))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true

	m := model{
		ctrl:     ctrl,
		persona:  p,
		events:   events,
		turns:    ctrl.Transcript(),
		busy:     ctrl.Busy(),
		input:    input,
		timeline: timeline,
		spinner:  sp,
		theme:    newTheme(),
	}
	m.renderTimeline()
	return m
}

func waitMsg(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitMsg(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderTimeline()
	case turnMsg:
		if msg.index >= len(m.turns) {
			m.turns = append(m.turns, msg.turn)
			m.renderTimeline()
		}
		cmds = append(cmds, waitMsg(m.events))
	case busyMsg:
		m.busy = bool(msg)
		cmds = append(cmds, waitMsg(m.events))
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			return m, cmd
		case "enter":
			m.submit()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.ctrl.SetDraft(m.input.Value())
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) submit() {
	text := m.input.Value()
	_, result := m.ctrl.Submit(text)
	switch result {
	case chat.SubmitAccepted:
		m.input.SetValue("")
		m.notice = ""
	case chat.SubmitDropped:
		m.notice = "still waiting for the last reply"
	case chat.SubmitIgnored:
		m.notice = ""
	case chat.SubmitClosed:
		m.notice = "session closed"
	}
}

func (m *model) resize() {
	header := lipgloss.Height(m.headerView())
	footer := 3
	height := m.height - header - footer - 2
	if height < 3 {
		height = 3
	}
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	m.timeline.Width = width
	m.timeline.Height = height
	m.input.Width = width - 4
}

func (m *model) renderTimeline() {
	width := m.timeline.Width
	if width <= 0 {
		width = 80
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderTurn(t, width))
	}
	m.timeline.SetContent(b.String())
	m.timeline.GotoBottom()
}

func (m model) renderTurn(t chatModel.Turn, width int) string {
	body := lipgloss.NewStyle().Width(width).Render(t.Text)
	switch {
	case t.Sender == chatModel.SenderUser:
		return m.theme.user.Render("You") + "\n" + body
	case t.IsError():
		return m.theme.assistant.Render(m.persona.Name) + "\n" + m.theme.errorTurn.Render(body)
	default:
		return m.theme.assistant.Render(m.persona.Name) + "\n" + body
	}
}

func (m model) headerView() string {
	return m.theme.header.Render(fmt.Sprintf("%s · %s", m.persona.Name, m.persona.Title))
}

func (m model) statusView() string {
	switch {
	case m.busy:
		return m.theme.status.Render(m.spinner.View() + " Typing...")
	case m.notice != "":
		return m.theme.status.Render(m.notice)
	default:
		return m.theme.help.Render("enter send · pgup/pgdown scroll · esc close")
	}
}

func (m model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.theme.panel.Render(m.timeline.View()),
		m.statusView(),
		m.input.View(),
	)
}
