package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// palette cycles through state colors on decoded paths.
var palette = []string{"#818cf8", "#f472b6", "#34d399", "#fbbf24", "#60a5fa", "#fb7185", "#a78bfa", "#2dd4bf"}

// Printer writes command output, styled when w is a terminal.
type Printer struct {
	w       io.Writer
	profile termenv.Profile
}

// NewPrinter returns a Printer for w. Styling is disabled unless w is a
// terminal.
func NewPrinter(w io.Writer) *Printer {
	profile := termenv.Ascii
	if IsTerminal(w) {
		profile = termenv.EnvColorProfile()
	}
	return &Printer{w: w, profile: profile}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Styled reports whether output carries ANSI sequences.
func (p *Printer) Styled() bool {
	return p.profile != termenv.Ascii
}

// Printf writes formatted output.
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// LogProb formats a log-probability. Impossible sequences print as -inf.
func LogProb(v float64) string {
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%.6f", v)
}

// Path renders a decoded state path, one token per frame. Labels are used
// where present, state indices otherwise.
func (p *Printer) Path(path []int, labels []string) string {
	tokens := make([]string, len(path))
	for i, st := range path {
		name := fmt.Sprint(st)
		if st < len(labels) && labels[st] != "" {
			name = labels[st]
		}
		tokens[i] = p.profile.String(name).Foreground(p.profile.Color(palette[st%len(palette)])).String()
	}
	return strings.Join(tokens, " ")
}

// Heading renders a bold title line.
func (p *Printer) Heading(s string) string {
	return p.profile.String(s).Bold().String()
}
