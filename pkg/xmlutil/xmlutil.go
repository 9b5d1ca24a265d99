// Package xmlutil escapes text embedded in XML-delimited prompts.
package xmlutil

import (
	"encoding/xml"
	"strings"
)

// Escape escapes s for use as XML character data. Newlines come out as
// character references; use EscapeLines to keep them.
func Escape(s string) string {
	var buf strings.Builder
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		// invalid UTF-8
		return s
	}
	return buf.String()
}

// EscapeLines escapes every line of s on its own so the line structure of a
// document survives. A trailing newline is dropped.
func EscapeLines(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := range lines {
		lines[i] = Escape(lines[i])
	}
	return strings.Join(lines, "\n")
}
