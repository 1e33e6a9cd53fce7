package tabletalk

import (
	"encoding/json"
	"strings"
)

// Decoded is the normalized form of a tool-execution result.
// Structured is nil when the result text was not valid JSON.
type Decoded struct {
	Display    string
	Structured any
}

// DecodeResult normalizes a heterogeneous tool result into a display string
// and an optional parsed structured value. The first content block's text is
// parsed as JSON when possible; parse failures degrade to the raw text, and
// a result with no leading text block decodes to an empty display. It never
// fails.
func DecodeResult(res *ToolResult) Decoded {
	if res == nil || len(res.Content) == 0 {
		return Decoded{}
	}
	tb, ok := res.Content[0].(TextBlock)
	if !ok {
		return Decoded{}
	}
	return DecodeText(tb.Text)
}

// DecodeText applies the JSON parse attempt to a raw result string.
func DecodeText(raw string) Decoded {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err == nil {
		if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
			return Decoded{Display: cleanDisplay(string(pretty)), Structured: v}
		}
	}
	return Decoded{Display: cleanDisplay(raw)}
}

// cleanDisplay strips terminal control sequences and caps the size of the
// text shown to users and fed back to the model.
func cleanDisplay(s string) string {
	s = StripControl(s)
	tr := TruncateHead(s, DefaultMaxLines, DefaultMaxBytes)
	return tr.Content
}
