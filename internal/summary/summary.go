package summary

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Summary describes a finished comparison run
type Summary struct {
	PrimaryBucket  string
	MirrorBucket   string
	PrimaryObjects int
	MirrorObjects  int
	OnlyInPrimary  int
	OnlyInMirror   int
	ReportPath     string
	ReportBytes    int64
	Duration       time.Duration
}

// InSync reports whether both buckets hold the same keys
func (s Summary) InSync() bool {
	return s.OnlyInPrimary == 0 && s.OnlyInMirror == 0
}

type Printer struct {
	out    io.Writer
	quiet  bool
	bold   *color.Color
	red    *color.Color
	yellow *color.Color
	green  *color.Color
}

// NewPrinter builds a Printer. noColor disables ANSI colors for this
// printer only.
func NewPrinter(out io.Writer, quiet, noColor bool) *Printer {
	p := &Printer{
		out:    out,
		quiet:  quiet,
		bold:   color.New(color.Bold),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		green:  color.New(color.FgGreen),
	}
	if noColor {
		for _, c := range []*color.Color{p.bold, p.red, p.yellow, p.green} {
			c.DisableColor()
		}
	}
	return p
}

// Print writes the end-of-run summary. In quiet mode nothing is printed
// when the buckets are in sync.
func (p *Printer) Print(s Summary) {
	if p.quiet && s.InSync() {
		return
	}

	bold := p.bold.SprintFunc()
	red := p.red.SprintFunc()
	yellow := p.yellow.SprintFunc()
	green := p.green.SprintFunc()

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, bold("=== Summary ==="))
	fmt.Fprintf(p.out, "Primary %s: %d objects\n", s.PrimaryBucket, s.PrimaryObjects)
	fmt.Fprintf(p.out, "Mirror %s: %d objects\n", s.MirrorBucket, s.MirrorObjects)

	if s.InSync() {
		fmt.Fprintln(p.out, green("Buckets are in sync"))
	} else {
		fmt.Fprintf(p.out, "Only in primary: %s\n", red(s.OnlyInPrimary))
		fmt.Fprintf(p.out, "Only in mirror: %s\n", yellow(s.OnlyInMirror))
	}

	if s.ReportPath != "" {
		fmt.Fprintf(p.out, "Report: %s (%s)\n", s.ReportPath, FormatBytes(s.ReportBytes))
	}
	fmt.Fprintf(p.out, "Duration: %s\n", s.Duration.Round(time.Millisecond))
}

// FormatBytes formats bytes in human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
