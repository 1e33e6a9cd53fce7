package tabletalk

// Event is a sealed interface representing an orchestration event. Events
// are purely semantic; presentation layers (TUI, HTTP, logging) subscribe
// via an event handler instead of the orchestrator printing anything itself.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventModelCall signals a model invocation is being issued.
// Phase is "initial" or "follow_up".
type EventModelCall struct {
	Phase string
}

func (EventModelCall) event() {}

// EventToolCall signals the orchestrator is about to execute a requested tool.
// Name is the sanitized name the model used; Resolved is the backend name.
type EventToolCall struct {
	ID       string
	Name     string
	Resolved string
}

func (EventToolCall) event() {}

// EventToolResult signals a tool executed successfully.
type EventToolResult struct {
	ID      string
	Name    string
	Display string
}

func (EventToolResult) event() {}

// EventToolError signals a tool execution failed; the turn continues.
type EventToolError struct {
	ID   string
	Name string
	Err  error
}

func (EventToolError) event() {}

// EventQueryRewrite signals a point query was rewritten into a scan, either
// up front by the heuristic or as a fallback after a validation failure.
type EventQueryRewrite struct {
	Fallback bool
}

func (EventQueryRewrite) event() {}

// EventCatalogLoaded signals the tool catalog was (re)registered.
// Collisions counts distinct original names that sanitized to an
// already-taken safe name and overwrote it.
type EventCatalogLoaded struct {
	Tools      int
	Collisions int
}

func (EventCatalogLoaded) event() {}

// Interface compliance checks.
var (
	_ Event = EventModelCall{}
	_ Event = EventToolCall{}
	_ Event = EventToolResult{}
	_ Event = EventToolError{}
	_ Event = EventQueryRewrite{}
	_ Event = EventCatalogLoaded{}
)
