package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// DefaultStyle is the glamour style used for terminal output.
const DefaultStyle = "dark"

// Printer writes Markdown to a terminal, styled with glamour unless plain.
type Printer struct {
	out   io.Writer
	style string
	plain bool
}

// NewPrinter creates a Printer. An empty style uses DefaultStyle.
func NewPrinter(out io.Writer, style string, plain bool) *Printer {
	if style == "" {
		style = DefaultStyle
	}
	return &Printer{out: out, style: style, plain: plain}
}

// Print renders md and writes it out.
func (p *Printer) Print(md string) error {
	if p.plain {
		_, err := io.WriteString(p.out, md)
		return err
	}
	rendered, err := glamour.Render(md, p.style)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = io.WriteString(p.out, rendered)
	return err
}
