package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mhalter/tabletalk"
	"github.com/mhalter/tabletalk/markdown"
)

var _ tea.Model = Model{}

// entryKind discriminates transcript entries for styling.
type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryActivity
	entryError
)

type entry struct {
	kind entryKind
	text string
}

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript area. Exported for test access.
	Viewport viewport.Model

	run    AgentFunc
	theme  tabletalk.Theme
	styles Styles

	entries []entry
	running bool
	cancel  context.CancelFunc
	eventCh chan tabletalk.Event
	doneCh  chan TurnDoneMsg
	err     error
	ready   bool
}

// New creates a TUI Model with the given agent function and theme.
func New(run AgentFunc, theme tabletalk.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about your tables..."
	ti.Prompt = "> "
	ti.Focus()

	return Model{
		Input:  ti,
		run:    run,
		theme:  theme,
		styles: NewStyles(theme),
	}
}

// Running reports whether a turn is currently in flight.
func (m Model) Running() bool { return m.running }

// Err returns the last turn error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		m.entries = append(m.entries, activityEntry(msg.Event))
		m.refresh()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case TurnDoneMsg:
		m.running = false
		m.cancel = nil
		m.eventCh = nil
		m.doneCh = nil
		switch {
		case msg.Err != nil && !errors.Is(msg.Err, context.Canceled):
			m.err = msg.Err
			m.entries = append(m.entries, entry{kind: entryError, text: msg.Err.Error()})
		case msg.Err == nil:
			m.entries = append(m.entries, entry{kind: entryAssistant, text: msg.Result})
		}
		m.refresh()
		return m, m.Input.Focus()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) statusLine() string {
	if m.running {
		return m.styles.Muted.Render("working... (ctrl+c to cancel)")
	}
	if m.err != nil {
		return m.styles.Error.Render("error: " + m.err.Error())
	}
	return m.styles.Muted.Render("enter to send · ctrl+c to quit")
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	vpHeight := msg.Height - 3 // status line, input, separators
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	m.refresh()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)
	}

	if !m.running {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.entries = append(m.entries, entry{kind: entryUser, text: text})
	m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan tabletalk.Event, 64)
	m.doneCh = make(chan TurnDoneMsg, 1)
	m.running = true
	m.Input.Blur()

	return m, tea.Batch(
		startTurn(ctx, m.run, text, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
	)
}

// refresh re-renders the transcript into the viewport and scrolls to the
// bottom.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	width := m.Viewport.Width
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		switch e.kind {
		case entryUser:
			b.WriteString(m.styles.UserMsg.Render("you: ") + e.text)
		case entryAssistant:
			b.WriteString(markdown.Render(e.text, width, m.theme))
		case entryActivity:
			b.WriteString(m.styles.ToolCall.Render(e.text))
		case entryError:
			b.WriteString(m.styles.Error.Render("error: " + e.text))
		}
		b.WriteString("\n")
	}
	m.Viewport.SetContent(b.String())
	m.Viewport.GotoBottom()
}

// activityEntry renders an orchestration event as one transcript line.
func activityEntry(e tabletalk.Event) entry {
	switch ev := e.(type) {
	case tabletalk.EventModelCall:
		if ev.Phase == "follow_up" {
			return entry{kind: entryActivity, text: "· summarizing results"}
		}
		return entry{kind: entryActivity, text: "· invoking model"}
	case tabletalk.EventToolCall:
		if ev.Resolved != "" && ev.Resolved != ev.Name {
			return entry{kind: entryActivity, text: fmt.Sprintf("→ %s (%s)", ev.Name, ev.Resolved)}
		}
		return entry{kind: entryActivity, text: "→ " + ev.Name}
	case tabletalk.EventToolResult:
		return entry{kind: entryActivity, text: "✓ " + ev.Name}
	case tabletalk.EventToolError:
		return entry{kind: entryActivity, text: fmt.Sprintf("✗ %s: %v", ev.Name, ev.Err)}
	case tabletalk.EventQueryRewrite:
		if ev.Fallback {
			return entry{kind: entryActivity, text: "↻ query retried as scan"}
		}
		return entry{kind: entryActivity, text: "↻ query rewritten to scan"}
	case tabletalk.EventCatalogLoaded:
		return entry{kind: entryActivity, text: fmt.Sprintf("· catalog loaded (%d tools)", ev.Tools)}
	default:
		return entry{kind: entryActivity, text: "·"}
	}
}

func startTurn(ctx context.Context, run AgentFunc, text string, eventCh chan<- tabletalk.Event, doneCh chan<- TurnDoneMsg) tea.Cmd {
	return func() tea.Msg {
		result, err := run(ctx, text, func(e tabletalk.Event) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		})
		close(eventCh)
		doneCh <- TurnDoneMsg{Result: result, Err: err}
		return nil
	}
}

// listenForEvent waits for the next event. When the channel closes, it
// reads the turn outcome and returns TurnDoneMsg.
func listenForEvent(ch <-chan tabletalk.Event, doneCh <-chan TurnDoneMsg) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return <-doneCh
		}
		return EventMsg{Event: evt}
	}
}
