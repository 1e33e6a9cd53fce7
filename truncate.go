package tabletalk

import "strings"

const (
	DefaultMaxLines = 400
	DefaultMaxBytes = 48 * 1024
)

// TruncateResult describes the outcome of head truncation.
type TruncateResult struct {
	Content    string
	Truncated  bool
	TotalLines int
	TotalBytes int
}

// TruncateHead keeps the leading maxLines lines or maxBytes bytes of s,
// whichever limit is hit first, so the start of a large tool result (where
// the status fields live) survives. Truncation never splits a line except
// when a single line alone exceeds maxBytes.
func TruncateHead(s string, maxLines, maxBytes int) TruncateResult {
	totalBytes := len(s)
	if s == "" {
		return TruncateResult{}
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	totalLines := len(lines)

	if totalLines <= maxLines && totalBytes <= maxBytes {
		return TruncateResult{Content: s, TotalLines: totalLines, TotalBytes: totalBytes}
	}

	var kept []string
	used := 0
	for i, line := range lines {
		if i >= maxLines {
			break
		}
		cost := len(line)
		if i > 0 {
			cost++ // joining newline
		}
		if used+cost > maxBytes {
			if i == 0 {
				kept = append(kept, line[:maxBytes])
				used = maxBytes
			}
			break
		}
		kept = append(kept, line)
		used += cost
	}

	return TruncateResult{
		Content:    strings.Join(kept, "\n"),
		Truncated:  true,
		TotalLines: totalLines,
		TotalBytes: totalBytes,
	}
}
