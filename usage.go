package tabletalk

// Usage tracks token consumption for a single model invocation.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Add accumulates usage across the invocations of one turn.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}
