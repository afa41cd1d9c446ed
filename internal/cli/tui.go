package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/girs/internal/chat"
	"github.com/raphaelgruber/girs/internal/client"
	apperrors "github.com/raphaelgruber/girs/internal/errors"
	"github.com/raphaelgruber/girs/internal/models"
)

const sidebarWidth = 32

// Theme holds the color scheme for the chat UI.
type Theme struct {
	Accent lipgloss.Color
	User   lipgloss.Color
	Agent  lipgloss.Color
	Error  lipgloss.Color
	Hint   lipgloss.Color
	Border lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Accent: lipgloss.Color("#5FAFD7"), // light blue
	User:   lipgloss.Color("#D7D7D7"), // light gray
	Agent:  lipgloss.Color("#00D787"), // green
	Error:  lipgloss.Color("#FF005F"), // red
	Hint:   lipgloss.Color("#6C6C6C"), // dim gray
	Border: lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) agentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Agent).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) sidebarStyle(height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(sidebarWidth).
		Height(height).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(t.Border).
		PaddingRight(1)
}

func (t Theme) selectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

// stateMsg carries a new chat store snapshot.
type stateMsg chat.State

// doneMsg reports the end of a chat operation.
type doneMsg struct {
	op  string
	err error
}

// branding is what the chat header and empty thread show.
type branding struct {
	project  string
	agent    string
	greeting string
}

// chatOptions configures the chat screen.
type chatOptions struct {
	brand branding
	// timeout bounds every backend call made from the UI.
	timeout time.Duration
}

// chatModel is the bubbletea model of the chat screen.
type chatModel struct {
	svc      *chat.Service
	state    chat.State
	input    textinput.Model
	theme    Theme
	brand    branding
	timeout  time.Duration
	width    int
	height   int
	browsing bool // keyboard focus on the sidebar
	cursor   int
	err      error
	fatal    error
}

// newChatModel creates the chat screen model.
func newChatModel(svc *chat.Service, opts chatOptions) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	return chatModel{
		svc:   svc,
		state: svc.Store().State(),
		input: ti,
		theme:   defaultTheme,
		brand:   opts.brand,
		timeout: opts.timeout,
	}
}

// Init loads the conversation list.
func (m chatModel) Init() tea.Cmd {
	return m.run("load", func(ctx context.Context) error {
		return m.svc.LoadConversations(ctx)
	})
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case stateMsg:
		m.state = chat.State(msg)
		if n := len(m.history()); m.cursor >= n {
			m.cursor = max(n-1, 0)
		}
		return m, nil

	case doneMsg:
		m.err = msg.err
		if errors.Is(msg.err, apperrors.ErrUnauthorized) {
			m.fatal = msg.err
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+b":
		m.browsing = false
		return m, m.dispatch(chat.ToggleSidebar{})
	case "ctrl+n":
		m.browsing = false
		m.err = nil
		return m, m.dispatch(chat.SetActive{ID: ""})
	case "tab":
		if m.state.SidebarOpen {
			m.browsing = !m.browsing
		}
		return m, nil
	}

	if m.browsing {
		history := m.history()
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(history)-1 {
				m.cursor++
			}
		case "esc":
			m.browsing = false
		case "enter":
			if m.cursor < len(history) {
				id := history[m.cursor].ID
				m.browsing = false
				m.err = nil
				return m, m.run("open", func(ctx context.Context) error {
					return m.svc.Open(ctx, id)
				})
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.state.Sending {
			return m, nil
		}
		m.input.Reset()
		m.err = nil
		return m, m.run("send", func(ctx context.Context) error {
			return m.svc.Send(ctx, text)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// run executes fn off the event loop. Store updates reach the model through
// the store subscription; the returned doneMsg only carries the error.
func (m chatModel) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if m.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}
		return doneMsg{op: op, err: fn(ctx)}
	}
}

// dispatch applies actions off the event loop, since store subscribers send
// back into the program.
func (m chatModel) dispatch(actions ...chat.Action) tea.Cmd {
	return func() tea.Msg {
		m.svc.Store().Dispatch(actions...)
		return nil
	}
}

// history returns the sidebar entries in display order.
func (m chatModel) history() []models.Conversation {
	var out []models.Conversation
	for _, g := range chat.GroupHistory(m.state.Conversations, time.Now()) {
		out = append(out, g.Conversations...)
	}
	return out
}

// View renders the chat screen.
func (m chatModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m chatModel) renderContent() string {
	width := max(m.width, 40)
	height := max(m.height, 10)

	header := m.theme.headerStyle().Render(m.brand.project)
	if conv, ok := m.state.Active(); ok && !models.IsPlaceholderTitle(conv.Title) {
		header += m.theme.hintStyle().Render("  " + conv.Title)
	}

	footer := m.renderFooter(width)
	bodyHeight := height - lipgloss.Height(header) - lipgloss.Height(footer) - 1

	threadWidth := width
	var body string
	if m.state.SidebarOpen {
		threadWidth = width - sidebarWidth - 2
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.theme.sidebarStyle(bodyHeight).Render(m.renderSidebar()),
			" ",
			m.renderThread(threadWidth, bodyHeight),
		)
	} else {
		body = m.renderThread(threadWidth, bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m chatModel) renderSidebar() string {
	groups := chat.GroupHistory(m.state.Conversations, time.Now())
	if len(groups) == 0 {
		return m.theme.hintStyle().Render("No conversations yet")
	}

	var b strings.Builder
	i := 0
	for _, g := range groups {
		b.WriteString(m.theme.hintStyle().Render(string(g.Period)) + "\n")
		for _, c := range g.Conversations {
			line := truncate(c.Title, sidebarWidth-3)
			switch {
			case m.browsing && i == m.cursor:
				line = m.theme.selectedStyle().Render("> " + line)
			case c.ID == m.state.ActiveID:
				line = m.theme.selectedStyle().Render("• " + line)
			default:
				line = "  " + line
			}
			b.WriteString(line + "\n")
			i++
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m chatModel) renderThread(width, height int) string {
	wrap := lipgloss.NewStyle().Width(width)

	var lines []string
	if len(m.state.Messages) == 0 {
		lines = append(lines,
			m.theme.agentStyle().Render(m.brand.agent),
			wrap.Render(m.brand.greeting),
		)
	}
	for _, msg := range m.state.Messages {
		author := m.theme.userStyle().Render("You")
		if msg.Role == models.RoleAssistant {
			author = m.theme.agentStyle().Render(m.brand.agent)
		}
		lines = append(lines, author, wrap.Render(msg.Content), "")
	}
	if m.state.Sending {
		lines = append(lines, m.theme.hintStyle().Render(m.brand.agent+" is typing..."))
	}

	// keep the newest lines that fit
	rendered := strings.Split(strings.Join(lines, "\n"), "\n")
	if height > 0 && len(rendered) > height {
		rendered = rendered[len(rendered)-height:]
	}
	return strings.Join(rendered, "\n")
}

func (m chatModel) renderFooter(width int) string {
	var parts []string
	if m.err != nil {
		parts = append(parts, m.theme.errorStyle().Render("✗ "+client.UserMessage(m.err)))
	}
	parts = append(parts, m.input.View())

	hint := "enter send • ctrl+n new chat • ctrl+b history • ctrl+c quit"
	if m.state.SidebarOpen {
		hint = "enter send • tab browse history • ctrl+n new chat • ctrl+b hide • ctrl+c quit"
	}
	if m.browsing {
		hint = "↑/↓ select • enter open • esc back"
	}
	parts = append(parts, m.theme.hintStyle().Render(truncate(hint, width)))
	return strings.Join(parts, "\n")
}

// truncate shortens s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// runChatUI runs the interactive chat UI until the user quits.
// Returns an error when the UI fails or the session is rejected.
func runChatUI(svc *chat.Service, opts chatOptions) error {
	p := tea.NewProgram(newChatModel(svc, opts))

	unsubscribe := svc.Store().Subscribe(func(s chat.State) {
		p.Send(stateMsg(s))
	})
	defer unsubscribe()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}

	if m, ok := finalModel.(chatModel); ok && m.fatal != nil {
		return m.fatal
	}
	return nil
}
