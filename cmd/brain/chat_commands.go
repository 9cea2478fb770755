// Slash command handling for the interactive chat interface.
package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"brain/internal/session"
)

func (m chatModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/clear":
		m.history = []chatMessage{}
		m.viewport.SetContent("")
		m.textinput.Reset()
		return m, nil

	case "/help":
		help := `## Available Commands

| Command | Description |
|---------|-------------|
| /help | Show this help message |
| /deep | Toggle deep mode (fan out to all backends, then synthesize) |
| /all | Toggle fan-out mode (show each backend's raw response) |
| /single | Return to single-backend mode |
| /provider <name> | Switch the active backend |
| /providers | List available backends |
| /thread <name> | Switch to another thread |
| /threads | List threads with stored history |
| /history [n] | Show the last n stored messages (default 10) |
| /config | Show the session configuration |
| /clear | Clear the screen |
| /quit, /exit, /q | Exit |

## Tips
- **Enter** to send a message
- **Ctrl+C** or **Esc** to exit
- Use **↑/↓** to scroll history
`
		return m.pushSystem(help)

	case "/deep":
		if m.mode == session.ModeDeep {
			m.mode = session.ModeSingle
			return m.pushSystem("Deep mode off.")
		}
		m.mode = session.ModeDeep
		return m.pushSystem(fmt.Sprintf("Deep mode on: prompts fan out to %s, synthesized by %s.",
			strings.Join(m.ctrl.Backends(), ", "), m.ctrl.Snapshot().SynthesisWith))

	case "/all":
		if m.mode == session.ModeFanOut {
			m.mode = session.ModeSingle
			return m.pushSystem("Fan-out mode off.")
		}
		m.mode = session.ModeFanOut
		return m.pushSystem("Fan-out mode on: every backend answers each prompt.")

	case "/single":
		m.mode = session.ModeSingle
		return m.pushSystem(fmt.Sprintf("Single mode: prompts go to %s.", m.ctrl.Backend()))

	case "/provider":
		if len(parts) < 2 {
			return m.pushSystem(fmt.Sprintf("Usage: `/provider <%s>`", strings.Join(m.ctrl.Backends(), "|")))
		}
		if err := m.ctrl.SwitchBackend(parts[1]); err != nil {
			return m.pushSystem(fmt.Sprintf("Error: %v", err))
		}
		return m.pushSystem(fmt.Sprintf("Backend switched to %s.", parts[1]))

	case "/providers":
		var sb strings.Builder
		sb.WriteString("Backends:\n")
		for _, name := range m.ctrl.Backends() {
			marker := "  "
			if name == m.ctrl.Backend() {
				marker = "* "
			}
			sb.WriteString(marker + name + "\n")
		}
		return m.pushSystem(sb.String())

	case "/thread":
		if len(parts) < 2 {
			return m.pushSystem(fmt.Sprintf("Current thread: %s. Usage: `/thread <name>`", m.ctrl.Thread()))
		}
		if err := m.ctrl.SwitchThread(parts[1]); err != nil {
			return m.pushSystem(fmt.Sprintf("Error: %v", err))
		}
		// Replace the view with the new thread's recent history.
		m.history = nil
		if msgs, err := m.ctrl.History(m.app.cfg.ContextWindow); err == nil {
			for _, msg := range msgs {
				m.history = append(m.history, chatMessage{
					role:     msg.Role,
					producer: msg.Provider,
					content:  msg.Content,
				})
			}
		}
		return m.pushSystem(fmt.Sprintf("Switched to thread %q.", parts[1]))

	case "/threads":
		threads, err := m.ctrl.Threads()
		if err != nil {
			return m.pushSystem(fmt.Sprintf("Error: %v", err))
		}
		if len(threads) == 0 {
			return m.pushSystem("No threads yet.")
		}
		var sb strings.Builder
		sb.WriteString("Threads:\n")
		for _, name := range threads {
			marker := "  "
			if name == m.ctrl.Thread() {
				marker = "* "
			}
			sb.WriteString(marker + name + "\n")
		}
		return m.pushSystem(sb.String())

	case "/history":
		limit := 10
		if len(parts) >= 2 {
			if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 {
				limit = n
			}
		}
		msgs, err := m.ctrl.History(limit)
		if err != nil {
			return m.pushSystem(fmt.Sprintf("Error: %v", err))
		}
		if len(msgs) == 0 {
			return m.pushSystem(fmt.Sprintf("Thread %q is empty.", m.ctrl.Thread()))
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Last %d messages of %q:\n\n", len(msgs), m.ctrl.Thread()))
		for _, msg := range msgs {
			label := msg.Role
			if msg.Provider != "" {
				label = fmt.Sprintf("%s (%s)", msg.Role, msg.Provider)
			}
			sb.WriteString(fmt.Sprintf("**%s**: %s\n\n", label, msg.Content))
		}
		return m.pushSystem(sb.String())

	case "/config":
		snap := m.ctrl.Snapshot()
		info := fmt.Sprintf(`## Session Configuration

| Setting | Value |
|---------|-------|
| Thread | %s |
| Backend | %s |
| Model | %s |
| Synthesis backend | %s |
| Context window | %d messages |
| Max tokens | %d |
| Temperature | %.2f |
| Turns this session | %d |
| History store | %s |
`, snap.Thread, snap.Backend, snap.Model, snap.SynthesisWith,
			snap.ContextWindow, snap.MaxTokens, snap.Temperature, snap.Turns, snap.HistoryStore)
		return m.pushSystem(info)

	default:
		return m.pushSystem(fmt.Sprintf("Unknown command %s. Try /help.", cmd))
	}
}

// pushSystem appends an informational message and refreshes the view.
func (m chatModel) pushSystem(content string) (tea.Model, tea.Cmd) {
	m.history = append(m.history, chatMessage{
		role:    "system",
		content: content,
		time:    time.Now(),
	})
	m.textinput.Reset()
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	return m, nil
}
