// Package mock provides test doubles for tabletalk interfaces using
// function fields.
package mock

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mhalter/tabletalk"
)

// Interface compliance checks.
var (
	_ tabletalk.Provider     = (*Provider)(nil)
	_ tabletalk.ToolExecutor = (*ToolExecutor)(nil)
)

// Provider is a test double for tabletalk.Provider.
// Set InvokeFn before calling Invoke.
type Provider struct {
	InvokeFn func(ctx context.Context, req tabletalk.Request) (tabletalk.AssistantMessage, error)
}

// Invoke delegates to InvokeFn.
func (p *Provider) Invoke(ctx context.Context, req tabletalk.Request) (tabletalk.AssistantMessage, error) {
	return p.InvokeFn(ctx, req)
}

// ToolExecutor is a test double for tabletalk.ToolExecutor.
// Set ExecuteFn before calling Execute.
type ToolExecutor struct {
	ExecuteFn func(ctx context.Context, name string, args json.RawMessage) (*tabletalk.ToolResult, error)
}

// Execute delegates to ExecuteFn.
func (e *ToolExecutor) Execute(ctx context.Context, name string, args json.RawMessage) (*tabletalk.ToolResult, error) {
	return e.ExecuteFn(ctx, name, args)
}

// ScriptedProvider returns a Provider that replays the given messages in
// order, one per Invoke call, failing the final err on exhaustion.
func ScriptedProvider(msgs ...tabletalk.AssistantMessage) *Provider {
	i := 0
	return &Provider{
		InvokeFn: func(_ context.Context, _ tabletalk.Request) (tabletalk.AssistantMessage, error) {
			if i >= len(msgs) {
				return tabletalk.AssistantMessage{}, errors.New("mock: provider script exhausted")
			}
			msg := msgs[i]
			i++
			return msg, nil
		},
	}
}
