package render

import (
	"bufio"
	"io"
	"strings"
)

// WriteText writes cards as indented plain text separated by blank lines.
// Nothing is written for an empty list.
func WriteText(w io.Writer, cards []Card) error {
	bw := bufio.NewWriter(w)
	for i, c := range cards {
		if i > 0 {
			bw.WriteString("\n")
		}
		writeCard(bw, c)
	}
	return bw.Flush()
}

// Text is WriteText into a string.
func Text(cards []Card) string {
	var b strings.Builder
	_ = WriteText(&b, cards)
	return b.String()
}

// CardLines returns the lines of one card without trailing newlines.
func CardLines(c Card) []string {
	lines := make([]string, 0, 2+2*len(c.Rows))
	lines = append(lines, c.Title, c.Subtitle)
	for _, r := range c.Rows {
		lines = append(lines, "  "+r.Station, "    "+r.Times)
	}
	return lines
}

func writeCard(w *bufio.Writer, c Card) {
	for _, line := range CardLines(c) {
		w.WriteString(line)
		w.WriteString("\n")
	}
}
