// Package gemini implements [tabletalk.Provider] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, translating between tabletalk's
// domain types and the Gemini API types. Invocation is non-streaming: the
// complete candidate content is converted into a single assistant message.
package gemini

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 2048
)
