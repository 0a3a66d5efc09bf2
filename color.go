package gitp

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Style names the handful of text decorations the status/sync output uses.
type Style int

const (
	StyleNone Style = iota
	StyleBold
	StyleItalic
	StyleGreen
	StyleYellow
	StyleRed
	StyleCyan
	StyleGray
)

var styles = map[Style]lipgloss.Style{
	StyleBold:   lipgloss.NewStyle().Bold(true),
	StyleItalic: lipgloss.NewStyle().Italic(true),
	StyleGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	StyleYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	StyleRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	StyleCyan:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	StyleGray:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

// ShouldColorize decides whether the given color policy and output stream
// warrant ANSI styling, per spec §4.1 ("colorization is enabled when the
// output stream is a terminal or when caller forces it").
func ShouldColorize(policy ColorPolicy, f *os.File) bool {
	switch policy {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return term.IsTerminal(int(f.Fd()))
	}
}

// Paint applies st to s when enabled is true, otherwise returns s unchanged.
func Paint(s string, st Style, enabled bool) string {
	if !enabled || st == StyleNone {
		return s
	}
	if lg, ok := styles[st]; ok {
		return lg.Render(s)
	}
	return s
}

// StatusSymbol maps a RepoState to the one-character glyph the status
// command prints next to each node (§6).
func StatusSymbol(s RepoState) string {
	switch s {
	case StateClean:
		return "✓"
	case StateModified:
		return "*"
	case StateUnaligned:
		return "!"
	case StateNonexistent:
		return "-"
	case StateUnlinked:
		return "#"
	case StateOverlayed:
		return "^"
	default:
		return "?"
	}
}

// StatusStyle returns the decoration a status symbol should carry.
func StatusStyle(s RepoState) Style {
	switch s {
	case StateClean:
		return StyleGreen
	case StateModified:
		return StyleYellow
	case StateUnaligned, StateUnlinked:
		return StyleRed
	case StateNonexistent:
		return StyleRed
	case StateOverlayed:
		return StyleCyan
	default:
		return StyleNone
	}
}
