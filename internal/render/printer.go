package render

import (
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// tagStyles is the safe subset of inline tags the printer understands.
// Anything else is stripped, inner text preserved.
var tagStyles = map[string]func(lipgloss.Style) lipgloss.Style{
	"b":           func(s lipgloss.Style) lipgloss.Style { return s.Bold(true) },
	"strong":      func(s lipgloss.Style) lipgloss.Style { return s.Bold(true) },
	"i":           func(s lipgloss.Style) lipgloss.Style { return s.Italic(true) },
	"em":          func(s lipgloss.Style) lipgloss.Style { return s.Italic(true) },
	"u":           func(s lipgloss.Style) lipgloss.Style { return s.Underline(true) },
	"s":           func(s lipgloss.Style) lipgloss.Style { return s.Strikethrough(true) },
	"ansired":     foreground("1"),
	"ansigreen":   foreground("2"),
	"ansiyellow":  foreground("3"),
	"ansiblue":    foreground("4"),
	"ansimagenta": foreground("5"),
	"ansicyan":    foreground("6"),
}

func foreground(color string) func(lipgloss.Style) lipgloss.Style {
	return func(s lipgloss.Style) lipgloss.Style {
		return s.Foreground(lipgloss.Color(color))
	}
}

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

// Printer writes display units to the terminal. Safe for concurrent
// use; output lines never interleave.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Print writes each unit on its own line, styling markup units.
func (p *Printer) Print(units []Unit) {
	for _, u := range units {
		if u.Markup {
			p.Line(StyleMarkup(u.Text))
			continue
		}
		p.Line(u.Text)
	}
}

// Line writes one line of output.
func (p *Printer) Line(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}

// Prompt writes text without a trailing newline, for input prompts.
func (p *Printer) Prompt(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, text)
}

// Errorf writes a red error line.
func (p *Printer) Errorf(format string, args ...any) {
	p.Line(errorStyle.Render(fmt.Sprintf(format, args...)))
}

// StyleMarkup renders a markup string to a styled terminal string.
// Known inline tags become ANSI attributes; unknown tags are dropped
// with their inner text kept; HTML entities are unescaped. Angle
// brackets that don't open a tag ("1 < 2 > 3") stay literal text.
func StyleMarkup(markup string) string {
	var out strings.Builder
	var stack []string

	flush := func(text string) {
		if text == "" {
			return
		}
		text = html.UnescapeString(text)
		if len(stack) == 0 {
			out.WriteString(text)
			return
		}
		style := lipgloss.NewStyle()
		for _, tag := range stack {
			style = tagStyles[tag](style)
		}
		out.WriteString(style.Render(text))
	}

	for {
		open := strings.IndexByte(markup, '<')
		if open < 0 {
			flush(markup)
			break
		}
		end := strings.IndexByte(markup[open:], '>')
		if end < 0 {
			flush(markup)
			break
		}
		end += open

		tag := markup[open+1 : end]
		if !looksLikeTag(tag) {
			flush(markup[:open+1])
			markup = markup[open+1:]
			continue
		}

		flush(markup[:open])
		markup = markup[end+1:]

		if strings.HasPrefix(tag, "/") {
			name := strings.ToLower(strings.TrimSpace(tag[1:]))
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == name {
					stack = append(stack[:i], stack[i+1:]...)
					break
				}
			}
			continue
		}

		// Only the bare tag name matters; attributes and self-closing
		// slashes are discarded.
		name := strings.ToLower(tag)
		if i := strings.IndexAny(name, " \t/"); i >= 0 {
			name = name[:i]
		}
		if _, ok := tagStyles[name]; ok {
			stack = append(stack, name)
		}
	}

	return out.String()
}

// looksLikeTag reports whether the text between angle brackets opens or
// closes a tag: an optional slash followed by a letter.
func looksLikeTag(s string) bool {
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
