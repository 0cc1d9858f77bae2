package render

import (
	"fmt"
	"strings"

	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/conversation"
	"github.com/derailed/tview"
	"github.com/mattn/go-runewidth"
)

// EmailRenderer formats inbox entries for the terminal dashboard
type EmailRenderer struct {
	colors *config.ColorsConfig
}

// NewEmailRenderer creates a renderer with the default colors
func NewEmailRenderer() *EmailRenderer {
	return &EmailRenderer{colors: config.DefaultColors()}
}

// UpdateFromConfig switches to a new theme
func (er *EmailRenderer) UpdateFromConfig(colors *config.ColorsConfig) {
	if colors != nil {
		er.colors = colors
	}
}

// FormatListItem returns the main and secondary text of an inbox list row,
// each fitted to width cells.
func (er *EmailRenderer) FormatListItem(e conversation.EmailSummary, width int) (string, string) {
	if width < 8 {
		width = 8
	}
	sender := SenderName(e.From)
	senderWidth := width / 3
	if senderWidth > 24 {
		senderWidth = 24
	}
	main := FitWidth(sender, senderWidth) + " " + FitWidth(e.Subject, width-senderWidth-1)
	return main, FitWidth(strings.Join(strings.Fields(e.Snippet), " "), width)
}

// FormatDetails renders the selected email with its suggested reply using
// tview color tags.
func (er *EmailRenderer) FormatDetails(e conversation.EmailSummary, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s::b]%s[-::-]\n", er.colors.Inbox.SubjectColor, tview.Escape(e.Subject))
	fmt.Fprintf(&b, "[%s]From:[-] %s\n", er.colors.Inbox.SenderColor, tview.Escape(e.From))
	if e.To != "" {
		fmt.Fprintf(&b, "[%s]To:[-]   %s\n", er.colors.Inbox.SenderColor, tview.Escape(e.To))
	}
	b.WriteString("\n")
	b.WriteString(tview.Escape(Wrap(Sanitize(e.Snippet), width)))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "[%s::b]Suggested reply[-::-]\n", er.colors.Inbox.ReplyColor)
	if strings.TrimSpace(e.AIReply) == "" {
		b.WriteString("(no suggestion available)")
	} else {
		b.WriteString(tview.Escape(Wrap(Sanitize(e.AIReply), width)))
	}
	return b.String()
}

// SenderName extracts the display name from "Name <addr>"
func SenderName(from string) string {
	from = strings.TrimSpace(from)
	if i := strings.Index(from, "<"); i > 0 && strings.Contains(from[i:], ">") {
		if name := strings.Trim(strings.TrimSpace(from[:i]), `"`); name != "" {
			return name
		}
	}
	return from
}

// FitWidth truncates with an ellipsis and pads on the right to exactly width cells
func FitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "...")
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}
