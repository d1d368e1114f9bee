package chat

import "strings"

// markdownStripper removes bold markers and leading bullet markers from a
// streamed reply. State carries across chunks so a marker split between two
// chunks is still removed.
type markdownStripper struct {
	lineStart bool
	pending   string
}

func newMarkdownStripper() *markdownStripper {
	return &markdownStripper{lineStart: true}
}

func (m *markdownStripper) Write(chunk string) string {
	text := m.pending + chunk
	m.pending = ""
	if n := len(text); n > 0 && (text[n-1] == '*' || text[n-1] == '-') {
		m.pending = text[n-1:]
		text = text[:n-1]
	}

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		rest := text[i:]
		if strings.HasPrefix(rest, "**") {
			i += 2
			continue
		}
		if m.lineStart && (strings.HasPrefix(rest, "- ") || strings.HasPrefix(rest, "* ")) {
			i += 2
			m.lineStart = false
			continue
		}
		b.WriteByte(text[i])
		m.lineStart = text[i] == '\n'
		i++
	}
	return b.String()
}

// Flush returns whatever was held back at the end of the stream.
func (m *markdownStripper) Flush() string {
	out := m.pending
	m.pending = ""
	return out
}
