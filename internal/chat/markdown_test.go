package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strip(chunks ...string) string {
	m := newMarkdownStripper()
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(m.Write(c))
	}
	b.WriteString(m.Flush())
	return b.String()
}

func TestMarkdownStripper(t *testing.T) {
	cases := []struct {
		name   string
		chunks []string
		want   string
	}{
		{name: "bold", chunks: []string{"Prøv **Fuktighetsserum** i dag"}, want: "Prøv Fuktighetsserum i dag"},
		{name: "bullets", chunks: []string{"Tips:\n- Rens\n* Fukt\n"}, want: "Tips:\nRens\nFukt\n"},
		{name: "dash inside line kept", chunks: []string{"Mandag - Fredag"}, want: "Mandag - Fredag"},
		{name: "bold split across chunks", chunks: []string{"en *", "*god** dag"}, want: "en god dag"},
		{name: "bullet split across chunks", chunks: []string{"Liste:\n-", " første"}, want: "Liste:\nførste"},
		{name: "trailing dash flushed", chunks: []string{"2-4 virkedager -"}, want: "2-4 virkedager -"},
		{name: "leading bullet at start", chunks: []string{"- Hei"}, want: "Hei"},
		{name: "only one bullet removed", chunks: []string{"- - x"}, want: "- x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, strip(tc.chunks...))
		})
	}
}
