// Package tui is a terminal front end for one conversation. It renders
// controller snapshots and turns key presses into controller calls.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/papercomputeco/gemchat/conversation"
	"github.com/papercomputeco/gemchat/pkg/llm"
)

const (
	defaultWidth   = 100
	defaultHeight  = 30
	inputCharLimit = 4000

	// title, blank line, status line, input
	reservedLines = 4
)

type (
	snapshotMsg conversation.Snapshot
	closedMsg   struct{}
)

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx         context.Context
	ctrl        *conversation.Controller
	snapshots   <-chan conversation.Snapshot
	unsubscribe func()

	snap conversation.Snapshot

	input    textinput.Model
	content  viewport.Model
	spinner  spinner.Model
	markdown *glamour.TermRenderer

	width  int
	height int
}

// New creates the chat model and subscribes it to ctrl.
func New(ctx context.Context, ctrl *conversation.Controller) Model {
	input := textinput.New()
	input.Placeholder = "Ask something..."
	input.Prompt = "> "
	input.CharLimit = inputCharLimit
	input.Width = defaultWidth - 4
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	snapshots, unsubscribe := ctrl.Subscribe()

	m := Model{
		ctx:         ctx,
		ctrl:        ctrl,
		snapshots:   snapshots,
		unsubscribe: unsubscribe,
		snap:        ctrl.Snapshot(),
		input:       input,
		content:     viewport.New(defaultWidth, defaultHeight-reservedLines),
		spinner:     sp,
		width:       defaultWidth,
		height:      defaultHeight,
	}
	m.markdown = newRenderer(defaultWidth)
	m.refresh()
	return m
}

// Run starts a full-screen program for ctrl and blocks until the user quits.
func Run(ctx context.Context, ctrl *conversation.Controller) error {
	program := tea.NewProgram(New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForSnapshot(m.snapshots))
}

func waitForSnapshot(ch <-chan conversation.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.unsubscribe()
			return m, tea.Quit
		case "enter":
			return m, m.submit()
		case "ctrl+n":
			m.input.Reset()
			return m, m.reset()
		case "esc":
			return m, m.clearError()
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case snapshotMsg:
		m.snap = conversation.Snapshot(msg)
		m.refresh()
		return m, waitForSnapshot(m.snapshots)

	case closedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit clears the input and runs the turn in the background. The new state
// arrives through the subscription, not through the returned message.
func (m *Model) submit() tea.Cmd {
	if m.snap.Loading {
		return nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.Reset()

	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		ctrl.Submit(ctx, text)
		return nil
	}
}

func (m *Model) reset() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Reset()
		return nil
	}
}

func (m *Model) clearError() tea.Cmd {
	if m.snap.Error == "" {
		return nil
	}
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.ClearError()
		return nil
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = max(width-4, 10)
	m.content.Width = width
	m.content.Height = max(height-reservedLines, 1)
	m.markdown = newRenderer(width)
	m.refresh()
}

func (m *Model) refresh() {
	m.content.SetContent(m.renderMessages())
	m.content.GotoBottom()
}

func (m Model) renderMessages() string {
	if len(m.snap.Messages) == 0 {
		return dimStyle.Render("Start the conversation below. Ctrl+N starts a new chat.")
	}

	var b strings.Builder
	for _, msg := range m.snap.Messages {
		switch msg.Role {
		case llm.RoleUser:
			b.WriteString(userStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Text)
			b.WriteString("\n\n")
		default:
			b.WriteString(modelStyle.Render("Gemini"))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(msg.Text))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderMarkdown(text string) string {
	if m.markdown == nil {
		return text + "\n"
	}
	out, err := m.markdown.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

func (m Model) statusLine() string {
	switch {
	case m.snap.Error != "":
		return errorStyle.Render(m.snap.Error)
	case m.snap.Loading:
		return m.spinner.View() + dimStyle.Render(" waiting for the model...")
	default:
		return dimStyle.Render("enter send • ctrl+n new chat • esc dismiss error • ctrl+c quit")
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ChatBot"))
	b.WriteString("\n")
	b.WriteString(m.content.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}
