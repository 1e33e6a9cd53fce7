// Package agent orchestrates one conversational turn between a Provider and
// a ToolExecutor: model invocation, tool execution with name translation and
// query-shape optimization, and the follow-up invocation that lets the model
// read its tool results.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mhalter/tabletalk"
)

// Sampling defaults pinned for determinism over creativity.
const (
	defaultMaxTokens  = 2048
	followUpMaxTokens = 1024
	defaultTemp       = 0.0
	defaultTopK       = 5
	defaultTopP       = 0.1
)

// Mode selects whether a turn consults and mutates the persistent
// conversation or runs fully isolated.
type Mode string

const (
	Stateless Mode = "stateless"
	Stateful  Mode = "stateful"
)

// Runner drives turns. It owns a tool registry and a conversation; neither
// is safe for concurrent turns against the same instance, so callers either
// serialize turns or construct one Runner per logical conversation.
type Runner struct {
	provider  tabletalk.Provider
	executor  tabletalk.ToolExecutor
	registry  *tabletalk.Registry
	optimizer *tabletalk.QueryOptimizer
	conv      *tabletalk.Conversation

	model        string
	systemPrompt string
	maxTokens    int
	onEvent      func(tabletalk.Event)
}

// Option configures a Runner.
type Option func(*Runner)

// WithModel sets the model ID for provider requests. Empty string means
// the provider default.
func WithModel(model string) Option {
	return func(r *Runner) { r.model = model }
}

// WithSystemPrompt sets the system prompt attached to every invocation.
func WithSystemPrompt(prompt string) Option {
	return func(r *Runner) { r.systemPrompt = prompt }
}

// WithEventHandler sets a callback that receives orchestration events.
// If nil or not set, events are silently discarded.
func WithEventHandler(h func(tabletalk.Event)) Option {
	return func(r *Runner) { r.onEvent = h }
}

// WithConversation supplies the persistent conversation, for session resume.
func WithConversation(c *tabletalk.Conversation) Option {
	return func(r *Runner) { r.conv = c }
}

// WithOptimizer replaces the default query-shape optimizer.
func WithOptimizer(o *tabletalk.QueryOptimizer) Option {
	return func(r *Runner) { r.optimizer = o }
}

// WithMaxTokens overrides the first-invocation token budget. The follow-up
// invocation always uses the smaller built-in budget.
func WithMaxTokens(n int) Option {
	return func(r *Runner) { r.maxTokens = n }
}

// New creates a Runner with an empty registry and conversation.
func New(provider tabletalk.Provider, executor tabletalk.ToolExecutor, opts ...Option) *Runner {
	r := &Runner{
		provider:  provider,
		executor:  executor,
		registry:  tabletalk.NewRegistry(),
		optimizer: tabletalk.NewQueryOptimizer(),
		conv:      tabletalk.NewConversation(fmt.Sprintf("%d", time.Now().UnixNano()), ""),
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadCatalog registers the backend tool catalog, rebuilding the name
// mapping, and reports it to the event handler.
func (r *Runner) LoadCatalog(tools []tabletalk.Tool) {
	collisions := r.registry.Register(tools)
	r.emit(tabletalk.EventCatalogLoaded{Tools: len(tools), Collisions: collisions})
}

// Conversation exposes the persistent conversation for clearing and
// persistence by the owning entry point.
func (r *Runner) Conversation() *tabletalk.Conversation { return r.conv }

// Registry exposes the tool registry.
func (r *Runner) Registry() *tabletalk.Registry { return r.registry }

func (r *Runner) emit(e tabletalk.Event) {
	if r.onEvent != nil {
		r.onEvent(e)
	}
}

// RunTurn executes one user turn end to end and returns the accumulated
// text. A first-invocation failure aborts the turn with an error; tool
// failures and follow-up failures are contained and reported inline in the
// returned text.
func (r *Runner) RunTurn(ctx context.Context, userText string, mode Mode) (string, error) {
	user := tabletalk.UserMessage{
		Content:   []tabletalk.ContentBlock{tabletalk.TextBlock{Text: userText}},
		Timestamp: time.Now(),
	}

	var outgoing []tabletalk.Message
	if mode == Stateful {
		r.conv.Append(user)
		outgoing = r.conv.Messages()
	} else {
		outgoing = []tabletalk.Message{user}
	}

	r.emit(tabletalk.EventModelCall{Phase: "initial"})
	resp, err := r.provider.Invoke(ctx, r.request(outgoing, r.maxTokens))
	if err != nil {
		return "", fmt.Errorf("model invocation: %w", err)
	}

	var out []string
	var calls []tabletalk.ContentBlock
	var results []tabletalk.Message

	for _, block := range resp.Content {
		switch b := block.(type) {
		case tabletalk.TextBlock:
			out = append(out, b.Text)
		case tabletalk.ToolCallBlock:
			display := r.executeTool(ctx, b)
			out = append(out, display)
			calls = append(calls, b)
			results = append(results, tabletalk.ToolResultMessage{
				ToolCallID: b.ID,
				ToolName:   b.Name,
				Content:    []tabletalk.ContentBlock{tabletalk.TextBlock{Text: display}},
				Timestamp:  time.Now(),
			})
		}
	}

	var followUp *tabletalk.AssistantMessage
	if len(results) > 0 {
		assistant := tabletalk.AssistantMessage{
			Content:    calls,
			StopReason: tabletalk.StopToolUse,
			Timestamp:  resp.Timestamp,
		}
		exchange := append([]tabletalk.Message{user, assistant}, results...)

		r.emit(tabletalk.EventModelCall{Phase: "follow_up"})
		second, err := r.provider.Invoke(ctx, r.request(exchange, followUpMaxTokens))
		if err != nil {
			out = append(out, fmt.Sprintf("Error summarizing tool results: %v", err))
		} else {
			followUp = &second
			for _, block := range second.Content {
				if tb, ok := block.(tabletalk.TextBlock); ok {
					out = append(out, tb.Text)
				}
			}
		}

		if mode == Stateful {
			r.conv.Append(assistant)
			r.conv.Append(results...)
			if followUp != nil {
				r.conv.Append(*followUp)
			}
		}
	} else if mode == Stateful {
		r.conv.Append(resp)
	}

	return strings.Join(out, "\n"), nil
}

// executeTool runs one requested tool call through the optimizer, the name
// translator, the backend, and the result decoder, returning the display
// text for the accumulator and the tool-result exchange. Failures are
// contained: the returned text carries the sanitized tool name and reason.
func (r *Runner) executeTool(ctx context.Context, call tabletalk.ToolCallBlock) string {
	name, args, rewrote := r.optimizer.Optimize(call.Name, call.Arguments)
	if rewrote {
		r.emit(tabletalk.EventQueryRewrite{Fallback: false})
	}

	resolved := r.registry.Resolve(name)
	r.emit(tabletalk.EventToolCall{ID: call.ID, Name: call.Name, Resolved: resolved})

	res, err := r.executor.Execute(ctx, resolved, args)
	failure := failureText(res, err)

	if failure != "" && name == r.optimizer.QueryTool && tabletalk.IsKeyConditionError(failure) {
		return r.scanFallback(ctx, call, args, failure)
	}
	if failure != "" {
		r.emit(tabletalk.EventToolError{ID: call.ID, Name: call.Name, Err: fmt.Errorf("%s", failure)})
		return fmt.Sprintf("Error executing tool %s: %s", call.Name, failure)
	}

	display := tabletalk.DecodeResult(res).Display
	r.emit(tabletalk.EventToolResult{ID: call.ID, Name: call.Name, Display: display})
	return display
}

// scanFallback retries a rejected point query exactly once as a full scan.
// If the fallback also fails, both failures are reported as one outcome.
func (r *Runner) scanFallback(ctx context.Context, call tabletalk.ToolCallBlock, args json.RawMessage, reason string) string {
	scanArgs, err := r.optimizer.RewriteAsScan(args)
	if err != nil {
		r.emit(tabletalk.EventToolError{ID: call.ID, Name: call.Name, Err: fmt.Errorf("%s", reason)})
		return fmt.Sprintf("Error executing tool %s: %s", call.Name, reason)
	}

	r.emit(tabletalk.EventQueryRewrite{Fallback: true})
	resolved := r.registry.Resolve(r.optimizer.ScanTool)

	res, execErr := r.executor.Execute(ctx, resolved, scanArgs)
	if failure := failureText(res, execErr); failure != "" {
		r.emit(tabletalk.EventToolError{ID: call.ID, Name: call.Name, Err: fmt.Errorf("%s", failure)})
		return fmt.Sprintf("Error executing tool %s: %s (scan fallback also failed: %s)", call.Name, reason, failure)
	}

	display := tabletalk.DecodeResult(res).Display
	r.emit(tabletalk.EventToolResult{ID: call.ID, Name: call.Name, Display: display})
	return "Query was converted to a scan because the key condition did not constrain the partition key.\n" + display
}

// failureText extracts a failure reason from an execution outcome, or ""
// on success. Infrastructure errors and backend-reported errors are treated
// alike; both carry a human-readable message.
func failureText(res *tabletalk.ToolResult, err error) string {
	if err != nil {
		return err.Error()
	}
	if res != nil && res.IsError {
		for _, b := range res.Content {
			if tb, ok := b.(tabletalk.TextBlock); ok {
				return tb.Text
			}
		}
		return "tool reported an error"
	}
	return ""
}

func (r *Runner) request(msgs []tabletalk.Message, maxTokens int) tabletalk.Request {
	temp := defaultTemp
	topK := defaultTopK
	topP := defaultTopP
	return tabletalk.Request{
		Model:         r.model,
		SystemPrompt:  r.systemPrompt,
		Messages:      msgs,
		Tools:         r.registry.Tools(),
		MaxTokens:     maxTokens,
		Temperature:   &temp,
		TopK:          &topK,
		TopP:          &topP,
		StopSequences: []string{},
	}
}
