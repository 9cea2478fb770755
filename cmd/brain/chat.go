// Interactive chat interface built on bubbletea.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"brain/cmd/brain/ui"
	"brain/internal/session"
	"brain/internal/types"
)

const chatTurnTimeout = 5 * time.Minute

// chatModel is the main model for the interactive chat interface
type chatModel struct {
	// UI components
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	styles    ui.Styles
	renderer  *glamour.TermRenderer

	// State
	history   []chatMessage
	isLoading bool
	err       error
	width     int
	height    int
	ready     bool

	// Dispatch mode for the next turn
	mode session.Mode

	// Backend
	app  *app
	ctrl *session.Controller
}

type chatMessage struct {
	role     string // "user", "assistant", or "system"
	producer string // backend id for assistant messages
	content  string
	time     time.Time
}

// Messages for tea updates
type (
	turnMsg  session.TurnResult
	errorMsg error
)

func runInteractiveChat() error {
	a, err := newApp(zap.NewNop())
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := initChat(a)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// initChat initializes the interactive chat model
func initChat(a *app) (chatModel, error) {
	styles := ui.DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Ask anything... (Enter to send, /help for commands, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.UserInput

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)
	vp.SetContent("")

	var renderer *glamour.TermRenderer
	if styles.Theme.IsDark {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	} else {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(80),
		)
	}

	m := chatModel{
		textinput: ti,
		viewport:  vp,
		spinner:   sp,
		styles:    styles,
		renderer:  renderer,
		history:   []chatMessage{},
		mode:      session.ModeSingle,
		app:       a,
		ctrl:      a.ctrl,
	}

	// Resume the active thread's recent history into the view.
	if msgs, err := a.ctrl.History(a.cfg.ContextWindow); err == nil {
		for _, msg := range msgs {
			m.history = append(m.history, chatMessage{
				role:     msg.Role,
				producer: msg.Provider,
				content:  msg.Content,
			})
		}
	}

	return m, nil
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if !m.isLoading {
				return m.handleSubmit()
			}
		}

		if !m.isLoading {
			m.textinput, tiCmd = m.textinput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		footerHeight := 2
		inputHeight := 3

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-footerHeight-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - footerHeight - inputHeight
		}

		m.textinput.Width = msg.Width - 4

		if m.renderer != nil {
			m.renderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(msg.Width-8),
			)
		}
		m.viewport.SetContent(m.renderHistory())

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case turnMsg:
		m.isLoading = false
		m.err = nil
		m.history = append(m.history, turnMessages(session.TurnResult(msg))...)
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()

	case errorMsg:
		m.isLoading = false
		m.err = msg
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

// turnMessages converts a completed turn into view messages. Fan-out turns
// contribute one message per backend; deep turns show the per-backend views
// followed by the synthesis.
func turnMessages(turn session.TurnResult) []chatMessage {
	now := time.Now()
	var out []chatMessage

	switch turn.Mode {
	case session.ModeFanOut:
		for _, name := range sortedBackends(turn.PerBackend) {
			res := turn.PerBackend[name]
			out = append(out, chatMessage{
				role:     types.RoleAssistant,
				producer: name,
				content:  res.Content,
				time:     now,
			})
		}
	case session.ModeDeep:
		for _, name := range sortedBackends(turn.PerBackend) {
			res := turn.PerBackend[name]
			out = append(out, chatMessage{
				role:     types.RoleAssistant,
				producer: name,
				content:  res.Content,
				time:     now,
			})
		}
		out = append(out, chatMessage{
			role:     types.RoleAssistant,
			producer: turn.Result.Backend,
			content:  turn.Result.Content,
			time:     now,
		})
	default:
		out = append(out, chatMessage{
			role:     types.RoleAssistant,
			producer: turn.Result.Backend,
			content:  turn.Result.Content,
			time:     now,
		})
	}
	return out
}

func (m chatModel) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	if input == "" {
		return m, nil
	}

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.history = append(m.history, chatMessage{
		role:    types.RoleUser,
		content: input,
		time:    time.Now(),
	})

	m.textinput.Reset()
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	m.isLoading = true

	return m, tea.Batch(
		m.spinner.Tick,
		m.processInput(input),
	)
}

// processInput runs the turn off the UI goroutine.
func (m chatModel) processInput(input string) tea.Cmd {
	ctrl := m.ctrl
	mode := m.mode
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), chatTurnTimeout)
		defer cancel()

		turn, err := ctrl.RunTurn(ctx, input, mode)
		if err != nil {
			return errorMsg(err)
		}
		return turnMsg(turn)
	}
}

func (m chatModel) renderHistory() string {
	var sb strings.Builder

	for _, msg := range m.history {
		switch msg.role {
		case types.RoleUser:
			userStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Primary).
				MarginTop(1)
			sb.WriteString(userStyle.Render("You") + "\n")
			sb.WriteString(m.styles.UserInput.Render(msg.content))
			sb.WriteString("\n\n")
		case "system":
			sb.WriteString(m.styles.Muted.Render(msg.content))
			sb.WriteString("\n")
		default:
			label := "brain"
			if msg.producer != "" {
				label = msg.producer
			}
			assistantStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Accent).
				MarginTop(1)
			sb.WriteString(assistantStyle.Render("● "+label) + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.content))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery
func (m chatModel) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			// If glamour panics, return plain text
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

func (m chatModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()

	chatView := m.styles.Content.Render(m.viewport.View())

	if m.isLoading {
		chatView += "\n" + m.styles.Spinner.Render(m.spinner.View()) + " Thinking..."
	}

	if m.err != nil {
		chatView += "\n" + m.styles.Error.Render("Error: "+m.err.Error())
	}

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1)

	inputArea := inputStyle.Render(m.textinput.View())

	footer := m.renderFooter()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		chatView,
		inputArea,
		footer,
	)
}

func (m chatModel) renderHeader() string {
	title := m.styles.Header.Render(" ◉ brain ")
	thread := m.styles.Badge.Render(m.ctrl.Thread())

	var status string
	if m.isLoading {
		status = m.styles.Warning.Render("● Processing")
	} else {
		status = m.styles.Success.Render("● Ready")
	}

	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		" ",
		thread,
		"  ",
		status,
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		m.styles.RenderDivider(m.width),
	)
}

func (m chatModel) renderFooter() string {
	modeIndicator := fmt.Sprintf("mode: %s", m.mode)
	backend := fmt.Sprintf("backend: %s", m.ctrl.Backend())

	help := m.styles.Muted.Render(fmt.Sprintf(
		"%s • %s • Enter: send • /help: commands • Ctrl+C: exit",
		modeIndicator, backend))
	return lipgloss.NewStyle().
		MarginTop(1).
		Render(help)
}
