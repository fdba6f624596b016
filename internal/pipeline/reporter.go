package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	stepColor    = lipgloss.Color("#60A5FA") // Blue
	noteColor    = lipgloss.Color("#9CA3AF") // Gray
	successColor = lipgloss.Color("#10B981") // Green
	bannerColor  = lipgloss.Color("#A78BFA") // Purple
)

// Reporter prints human-facing progress. It carries no state the pipeline
// depends on.
type Reporter struct {
	w        io.Writer
	step     lipgloss.Style
	note     lipgloss.Style
	success  lipgloss.Style
	banner   lipgloss.Style
	headline lipgloss.Style
}

// NewReporter creates a Reporter writing to w. Styling is applied only when
// color is true and w is a terminal.
func NewReporter(w io.Writer, color bool) *Reporter {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Reporter{
		w:       w,
		step:    r.NewStyle().Bold(true).Foreground(stepColor),
		note:    r.NewStyle().Foreground(noteColor),
		success: r.NewStyle().Bold(true).Foreground(successColor),
		banner: r.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(bannerColor).
			Padding(0, 2),
		headline: r.NewStyle().Bold(true).Foreground(bannerColor),
	}
}

// Step prints the "[n/total] msg" header that precedes each step.
func (r *Reporter) Step(n, total int, msg string) {
	prefix := r.step.Render(fmt.Sprintf("[%d/%d]", n, total))
	fmt.Fprintf(r.w, "%s %s\n", prefix, msg)
}

// Note prints an indented detail line.
func (r *Reporter) Note(format string, args ...any) {
	fmt.Fprintf(r.w, "  %s\n", r.note.Render(fmt.Sprintf(format, args...)))
}

// Line prints an unindented message.
func (r *Reporter) Line(msg string) {
	fmt.Fprintln(r.w, msg)
}

// Success prints a highlighted completion message.
func (r *Reporter) Success(msg string) {
	fmt.Fprintln(r.w, r.success.Render(msg))
}

// Banner prints a boxed block with a headline followed by lines.
func (r *Reporter) Banner(headline string, lines ...string) {
	body := r.headline.Render(headline)
	if len(lines) > 0 {
		body += "\n\n" + strings.Join(lines, "\n")
	}
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.banner.Render(body))
}
