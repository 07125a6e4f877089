package render

import (
	"bufio"
	"fmt"
	"html"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/middleware"
)

// Token names available to templates.
const (
	TokenMessage     = "message"
	TokenFile        = "file"
	TokenLine        = "line"
	TokenTimestamp   = "timestamp"
	TokenTrace       = "trace"
	TokenLabel       = "label"
	TokenCode        = "code"
	TokenGroup       = "group"
	TokenRequestID   = "request_id"
	TokenFingerprint = "fingerprint"
	TokenSnippet     = "snippet"
)

// Tokens builds the substitution map for c. Values are HTML-escaped when
// escape is set. The snippet token is only present when radius > 0.
func Tokens(c *fault.Context, radius int, escape bool) map[string]string {
	loc := c.Location()
	raw := map[string]string{
		TokenMessage:     c.Message(),
		TokenFile:        loc.File,
		TokenLine:        strconv.Itoa(loc.Line),
		TokenTimestamp:   c.Timestamp().Format(time.RFC3339),
		TokenTrace:       c.Trace().String(),
		TokenLabel:       c.Label(),
		TokenCode:        strconv.Itoa(int(c.Code())),
		TokenGroup:       c.Group().String(),
		TokenRequestID:   c.String(middleware.KeyRequestID),
		TokenFingerprint: c.String(middleware.KeyFingerprint),
	}
	tokens := make(map[string]string, len(raw)+1)
	for k, v := range raw {
		if escape {
			v = html.EscapeString(v)
		}
		tokens[k] = v
	}
	if radius > 0 {
		lines, err := Snippet(loc.File, loc.Line, radius)
		if err != nil {
			tokens[TokenSnippet] = ""
		} else {
			tokens[TokenSnippet] = FormatSnippet(lines, escape)
		}
	}
	return tokens
}

// SnippetLine is one line of source around a fault.
type SnippetLine struct {
	Number    int
	Text      string
	Highlight bool
}

// Snippet reads up to radius lines either side of line from file.
func Snippet(file string, line, radius int) ([]SnippetLine, error) {
	if file == "" || line <= 0 {
		return nil, fmt.Errorf("no source location")
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	first, last := max(1, line-radius), line+radius
	var out []SnippetLine
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan() && n <= last; n++ {
		if n < first {
			continue
		}
		out = append(out, SnippetLine{Number: n, Text: sc.Text(), Highlight: n == line})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FormatSnippet renders snippet lines with right-aligned numbers. The faulting
// line carries a ">" marker, and a <mark> element in markup output.
func FormatSnippet(lines []SnippetLine, markup bool) string {
	if len(lines) == 0 {
		return ""
	}
	width := len(strconv.Itoa(lines[len(lines)-1].Number))
	var b strings.Builder
	for _, l := range lines {
		marker := " "
		if l.Highlight {
			marker = ">"
		}
		text := l.Text
		if markup {
			text = html.EscapeString(text)
		}
		row := fmt.Sprintf("%s %*d | %s", marker, width, l.Number, text)
		if markup && l.Highlight {
			row = "<mark>" + row + "</mark>"
		}
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return b.String()
}

var placeholder = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Substitute replaces {{name}} placeholders with tokens. Placeholders without
// a token are left untouched.
func Substitute(text string, tokens map[string]string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := tokens[name]; ok {
			return v
		}
		return m
	})
}
