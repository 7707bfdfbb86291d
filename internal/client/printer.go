package client

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan    = lipgloss.Color("#00FFFF")
	colorGreen   = lipgloss.Color("#00FF00")
	colorMagenta = lipgloss.Color("#FF00FF")
	colorRed     = lipgloss.Color("#FF0000")
	colorGray    = lipgloss.Color("#666666")
)

// Printer writes server messages as styled terminal lines. Styles degrade
// to plain text when w is not a terminal.
type Printer struct {
	mu sync.Mutex
	w  io.Writer

	timestamp lipgloss.Style
	gesture   lipgloss.Style
	combo     lipgloss.Style
	err       lipgloss.Style
	dim       lipgloss.Style

	// Acks prints frame acknowledgements too.
	Acks bool
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:         w,
		timestamp: r.NewStyle().Foreground(colorGray),
		gesture:   r.NewStyle().Foreground(colorGreen).Bold(true),
		combo:     r.NewStyle().Foreground(colorMagenta).Bold(true),
		err:       r.NewStyle().Foreground(colorRed),
		dim:       r.NewStyle().Foreground(colorCyan),
	}
}

// Print writes msg. Messages with nothing to show are ignored.
func (p *Printer) Print(msg Message) {
	line := p.format(msg)
	if line == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.timestamp.Render(time.Now().Format("15:04:05.000"))+"  "+line)
}

func (p *Printer) format(msg Message) string {
	switch {
	case msg.Status != nil:
		return p.dim.Render("● " + msg.Status.Message)

	case msg.Gesture != nil:
		g := msg.Gesture
		if g.Gesture == nil {
			return p.dim.Render("– cleared") + p.timestamp.Render(fmt.Sprintf("  #%d", g.Sequence))
		}
		hand := "?"
		if g.Hand != nil {
			hand = *g.Hand
		}
		return fmt.Sprintf("%s  %.2f  %s%s",
			p.gesture.Render("✋ "+*g.Gesture),
			g.Confidence,
			hand,
			p.timestamp.Render(fmt.Sprintf("  #%d %dms", g.Sequence, g.ProcessingTimeMS)),
		)

	case msg.Combo != nil:
		c := msg.Combo
		line := fmt.Sprintf("%s  [%s]  %.2f",
			p.combo.Render("★ "+c.ComboName),
			strings.Join(c.Sequence, " → "),
			c.Confidence,
		)
		if c.Action != "" {
			line += "  action=" + c.Action
		}
		if c.Description != "" {
			line += p.timestamp.Render("  " + c.Description)
		}
		return line

	case msg.Error != nil:
		text := "✗ " + msg.Error.Message
		if msg.Error.Sequence != nil {
			text += fmt.Sprintf(" (#%d)", *msg.Error.Sequence)
		}
		return p.err.Render(text)

	case msg.Ack != nil && p.Acks:
		return p.timestamp.Render(fmt.Sprintf("ack #%d", msg.Ack.Sequence))
	}
	return ""
}
