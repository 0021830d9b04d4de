package nodelog

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// PrintTimeLayout is the timestamp layout of Printer prefixes.
const PrintTimeLayout = "2006-01-02 15:04:05"

// Printer writes node-tagged lines to stdout and flushes after every call.
// A nil *Printer discards output.
type Printer struct {
	node Node
	out  *lineWriter
	now  func() time.Time
}

// NewPrinter returns a Printer for node writing to w.
func NewPrinter(node Node, w io.Writer) *Printer {
	return &Printer{node: node, out: newLineWriter(w), now: time.Now}
}

// Prefix returns "[NODE_<rank>][<timestamp>]" for the current time.
func (p *Printer) Prefix() string {
	return "[" + p.node.Tag() + "][" + p.now().Format(PrintTimeLayout) + "]"
}

// Print prints the prefix followed by the operands formatted as by fmt.Sprint.
// A trailing newline is added when missing, so every call emits whole lines.
func (p *Printer) Print(a ...any) {
	if p == nil {
		return
	}
	p.write(p.Prefix() + " " + withNewline(fmt.Sprint(a...)))
}

// Println prints the prefix and operands separated by spaces, followed by a newline.
func (p *Printer) Println(a ...any) {
	if p == nil {
		return
	}
	p.write(p.Prefix() + " " + fmt.Sprintln(a...))
}

// Printf prints the prefix followed by the formatted text. A trailing newline is added when missing.
func (p *Printer) Printf(format string, a ...any) {
	if p == nil {
		return
	}
	p.write(p.Prefix() + " " + withNewline(fmt.Sprintf(format, a...)))
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func (p *Printer) write(s string) {
	_, _ = io.WriteString(p.out, s)
	_ = p.out.Flush()
}
