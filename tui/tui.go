// Package tui provides a Bubble Tea chat interface for the orchestrator.
//
// The model owns a viewport transcript and a single-line input. Each
// submitted line runs one turn through an injected AgentFunc; orchestration
// events arrive over a channel and render as tool activity lines while the
// turn is in flight.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mhalter/tabletalk"
)

// AgentFunc runs one turn and returns its final text. The onEvent callback
// receives orchestration events as they happen. The function blocks until
// the turn completes or the context is cancelled.
type AgentFunc func(ctx context.Context, userText string, onEvent func(tabletalk.Event)) (string, error)

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. Cancelling the context quits the program.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// EventMsg wraps an orchestration event for delivery to the model.
type EventMsg struct {
	Event tabletalk.Event
}

// TurnDoneMsg signals that the in-flight turn has completed.
type TurnDoneMsg struct {
	Result string
	Err    error
}
