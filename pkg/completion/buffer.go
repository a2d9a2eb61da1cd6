// Package completion turns model output into inline completions for the editor.
package completion

import "strings"

// Mode selects how much of a generated response is offered at once.
type Mode int

const (
	// ModeBlock offers the whole response.
	ModeBlock Mode = iota
	// ModeLine offers one non-blank line at a time.
	ModeLine
)

func (m Mode) String() string {
	if m == ModeLine {
		return "line"
	}
	return "block"
}

// ParseMode maps "line" to ModeLine and anything else to ModeBlock.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "line") {
		return ModeLine
	}
	return ModeBlock
}

// Buffer holds the lines of a generated response that have not been offered
// yet. Lines are consumed from the front. A Buffer is not safe for concurrent
// use; the Controller owns one.
type Buffer struct {
	lines []string
}

// Len returns the number of pending lines.
func (b *Buffer) Len() int { return len(b.lines) }

// Empty reports whether nothing is pending.
func (b *Buffer) Empty() bool { return len(b.lines) == 0 }

// Reset discards all pending lines.
func (b *Buffer) Reset() { b.lines = nil }

// Lines returns a copy of the pending lines.
func (b *Buffer) Lines() []string { return append([]string(nil), b.lines...) }

// Fill replaces the pending lines with the lines of response.
func (b *Buffer) Fill(response string) {
	b.lines = strings.Split(response, "\n")
}

// Next removes and returns the next unit: the leading blank lines plus the
// first non-blank line, followed by a line break. When only blank lines remain
// afterwards they are dropped and a second line break is added. Next returns ""
// when no non-blank line was found.
func (b *Buffer) Next() string {
	if len(b.lines) == 0 {
		return ""
	}

	var out strings.Builder
	found := false
	consumed := 0
	for _, line := range b.lines {
		consumed++
		if line == "" {
			out.WriteByte('\n')
			continue
		}
		out.WriteString(line)
		found = true
		break
	}
	b.lines = b.lines[consumed:]
	out.WriteByte('\n')

	if allBlank(b.lines) {
		b.lines = nil
		out.WriteByte('\n')
	}

	if !found {
		return ""
	}
	return out.String()
}

// Extract returns the unit to offer for a fresh response. Block mode returns
// the response as-is and empties the buffer; line mode refills the buffer and
// returns its first unit. One trailing line break is removed in both modes.
func (b *Buffer) Extract(mode Mode, response string) string {
	var completion string
	if mode == ModeLine {
		b.Fill(response)
		completion = b.Next()
	} else {
		b.Reset()
		completion = response
	}
	return strings.TrimSuffix(completion, "\n")
}

func allBlank(lines []string) bool {
	for _, line := range lines {
		if line != "" {
			return false
		}
	}
	return true
}

// ValidResponse rejects responses the editor should never show: empty ones
// and ones that open with a run of blank lines.
func ValidResponse(response string) bool {
	return response != "" &&
		!strings.HasPrefix(response, "\n\n\n") &&
		!strings.HasPrefix(response, "\n    \n    ")
}
