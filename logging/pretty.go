package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// PrettyLogger provides operator-facing console output. Colors are only used when
// the destination advertises color support.
type PrettyLogger struct {
	writer io.Writer
	styles PrettyStyles
}

// PrettyStyles contains lipgloss styles for different message types
type PrettyStyles struct {
	Success lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Path    lipgloss.Style
}

// DefaultPrettyStyles returns the default styling bound to renderer r.
func DefaultPrettyStyles(r *lipgloss.Renderer) PrettyStyles {
	return PrettyStyles{
		Success: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Info:    r.NewStyle().Foreground(lipgloss.Color("14")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Key:     r.NewStyle().Bold(true),
		Value:   r.NewStyle().Foreground(lipgloss.Color("14")),
		Path:    r.NewStyle().Foreground(lipgloss.Color("6")).Italic(true),
	}
}

// NewPrettyLogger creates a pretty logger writing to stderr.
func NewPrettyLogger() *PrettyLogger {
	return (&PrettyLogger{}).WithWriter(os.Stderr)
}

// WithWriter sets a custom writer for pretty output and re-detects its color support.
func (p *PrettyLogger) WithWriter(w io.Writer) *PrettyLogger {
	renderer := lipgloss.NewRenderer(w)
	renderer.SetColorProfile(ColorProfile(w))
	p.writer = w
	p.styles = DefaultPrettyStyles(renderer)
	return p
}

// ColorProfile reports the color capability of w. Anything that is not a color
// terminal, or that sets NO_COLOR, gets plain ASCII.
func ColorProfile(w io.Writer) termenv.Profile {
	return termenv.NewOutput(w).EnvColorProfile()
}

// Success logs a success message with a checkmark
func (p *PrettyLogger) Success(message string) {
	fmt.Fprintf(p.writer, "%s %s\n",
		p.styles.Success.Render("[OK]"),
		message)
}

// InfoPretty logs an info message with pretty formatting
func (p *PrettyLogger) InfoPretty(message string) {
	fmt.Fprintf(p.writer, "%s %s\n", p.styles.Info.Render("[INFO]"), message)
}

// WarnPretty logs a warning with pretty formatting
func (p *PrettyLogger) WarnPretty(message string) {
	fmt.Fprintf(p.writer, "%s %s\n",
		p.styles.Warning.Render("[WARN]"),
		message)
}

// ErrorPretty logs an error with pretty formatting
func (p *PrettyLogger) ErrorPretty(message string, err error) {
	fmt.Fprintf(p.writer, "%s %s",
		p.styles.Error.Render("[ERR]"),
		message)
	if err != nil {
		fmt.Fprintf(p.writer, ": %s", err.Error())
	}
	fmt.Fprintln(p.writer)
}

// Field logs a key-value pair with pretty formatting
func (p *PrettyLogger) Field(key string, value interface{}) {
	fmt.Fprintf(p.writer, "  %s: %s\n",
		p.styles.Key.Render(key),
		p.styles.Value.Render(fmt.Sprint(value)))
}

// Path logs a file path with special formatting
func (p *PrettyLogger) Path(label string, path string) {
	fmt.Fprintf(p.writer, "  %s: %s\n",
		p.styles.Key.Render(label),
		p.styles.Path.Render(path))
}
