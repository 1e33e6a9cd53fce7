package tabletalk

// StopReason indicates why the assistant stopped generating.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopLength  StopReason = "max_tokens"
	StopToolUse StopReason = "tool_use"
	StopUnknown StopReason = "unknown"
)
