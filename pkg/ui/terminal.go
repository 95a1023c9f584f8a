package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Banner is printed at the start of interactive commands
const Banner = `
 ┌─────────────────────────────────────┐
 │  xqtimeline · xueqiu timeline saver  │
 └─────────────────────────────────────┘
`

var (
	cyan    = lipgloss.Color("#00D7FF")
	yellow  = lipgloss.Color("#FFD700")
	red     = lipgloss.Color("#FF5F5F")
	green   = lipgloss.Color("#5FFF87")
	magenta = lipgloss.Color("#FF5FFF")
	dim     = lipgloss.Color("#8A8A8A")
)

var (
	mu       sync.Mutex
	out      io.Writer = os.Stdout
	renderer           = lipgloss.NewRenderer(os.Stdout)
	quiet    bool
)

// SetOutput redirects terminal output, colors follow what w supports
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	renderer = lipgloss.NewRenderer(w)
}

// SetNoColor strips colors from all output
func SetNoColor(disabled bool) {
	mu.Lock()
	defer mu.Unlock()
	if disabled {
		renderer.SetColorProfile(termenv.Ascii)
	}
}

// SetQuietMode suppresses everything but errors
func SetQuietMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = enabled
}

// IsQuietMode reports whether output is suppressed
func IsQuietMode() bool {
	mu.Lock()
	defer mu.Unlock()
	return quiet
}

// IsInteractive reports whether stdout is a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func style(c lipgloss.Color) lipgloss.Style {
	return renderer.NewStyle().Foreground(c)
}

// Cyan, Yellow and friends color a string for inline use
func Cyan(s string) string    { return style(cyan).Render(s) }
func Yellow(s string) string  { return style(yellow).Render(s) }
func Red(s string) string     { return style(red).Render(s) }
func Green(s string) string   { return style(green).Render(s) }
func Magenta(s string) string { return style(magenta).Render(s) }
func Dim(s string) string     { return style(dim).Render(s) }

func emit(s string, force bool) {
	mu.Lock()
	defer mu.Unlock()
	if quiet && !force {
		return
	}
	fmt.Fprintln(out, s)
}

// PrintBanner prints the banner when attached to a terminal
func PrintBanner() {
	if !IsInteractive() {
		return
	}
	emit(style(cyan).Bold(true).Render(Banner), false)
}

// PrintError prints an error message in red, even in quiet mode
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	emit(style(red).Bold(true).Render(msg), true)
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	emit(style(green).Bold(true).Render(msg), false)
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	emit(fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)), false)
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	emit(Yellow(msg), false)
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	emit(Magenta(msg), false)
}

// PrintBlock prints preformatted text such as a table
func PrintBlock(text string) {
	emit(text, false)
}
