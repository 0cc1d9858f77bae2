package tui

import (
	"fmt"
	"strings"

	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/conversation"
	"github.com/ajramos/inboxpilot/internal/render"
	"github.com/ajramos/inboxpilot/internal/services"
	"github.com/derailed/tview"
)

const baselineStatus = "InboxPilot | Enter: send | Tab: switch pane | Ctrl+S: send reply | Ctrl+R: refine reply | Ctrl+C: quit"

// formatChat renders the conversation with role headers. Placeholders are
// dimmed until they resolve.
func formatChat(msgs []conversation.Message, colors *config.ColorsConfig) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		text := tview.Escape(render.Sanitize(m.Text))
		switch {
		case m.Role == conversation.RoleUser:
			fmt.Fprintf(&b, "[%s::b]You[-::-]\n[%s]%s[-]", colors.Chat.UserColor, colors.Chat.UserColor, text)
		case m.Text == services.PlaceholderFetching || m.Text == services.PlaceholderThinking:
			fmt.Fprintf(&b, "[%s::b]Assistant[-::-]\n[%s::i]%s[-::-]", colors.Chat.AssistantColor, colors.Chat.PlaceholderColor, text)
		default:
			fmt.Fprintf(&b, "[%s::b]Assistant[-::-]\n%s", colors.Chat.AssistantColor, text)
		}
	}
	return b.String()
}

// formatActivity lists activity entries newest first
func formatActivity(entries []string, colors *config.ColorsConfig) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		color := colors.Status.ActivityColor
		if strings.Contains(e, "failed") || strings.HasPrefix(e, "Error") {
			color = colors.Status.ErrorColor
		}
		lines = append(lines, fmt.Sprintf("[%s]• %s[-]", color, tview.Escape(e)))
	}
	return strings.Join(lines, "\n")
}

// busyText describes outstanding work for the status bar
func busyText(b conversation.Busy) string {
	var parts []string
	if b.LoadingEmails {
		parts = append(parts, "loading emails")
	}
	if b.Deleting {
		parts = append(parts, "deleting")
	}
	if b.SendingReply {
		parts = append(parts, "sending reply")
	}
	if b.RefiningReply {
		parts = append(parts, "refining reply")
	}
	if len(parts) == 0 {
		return ""
	}
	return "Working: " + strings.Join(parts, ", ") + "…"
}

func sameIDs(emails []conversation.EmailSummary, ids []string) bool {
	if len(emails) != len(ids) {
		return false
	}
	for i, e := range emails {
		if e.ID != ids[i] {
			return false
		}
	}
	return true
}

// render shows snap in every pane. It must run on the UI goroutine.
func (a *App) render(snap conversation.Snapshot) {
	a.mu.Lock()
	a.busy = snap.Busy.Blocking()
	a.mu.Unlock()

	chat := a.textView(paneChat)
	chat.SetText(formatChat(snap.Messages, a.colors))
	chat.ScrollToEnd()

	a.textView(paneActivity).SetText(formatActivity(snap.Activity, a.colors))

	a.renderInbox(snap)
	a.renderDetails(snap)

	input := a.inputField()
	if snap.Busy.Blocking() {
		input.SetLabel(busyLabel)
		input.SetLabelColor(a.colors.Status.BusyColor.Color())
	} else {
		input.SetLabel(inputLabel)
		input.SetLabelColor(a.colors.Frame.TitleColor.Color())
	}

	a.errorHandler.SetBaseline(snap.Busy)
}

func (a *App) renderInbox(snap conversation.Snapshot) {
	list := a.inboxList()
	_, _, width, _ := list.GetInnerRect()
	if width <= 0 {
		width = 60
	}

	a.syncing = true
	defer func() { a.syncing = false }()

	if !sameIDs(snap.Emails, a.listIDs) {
		list.Clear()
		a.listIDs = a.listIDs[:0]
		for _, e := range snap.Emails {
			main, secondary := a.renderer.FormatListItem(e, width)
			list.AddItem(tview.Escape(main), tview.Escape(secondary), 0, nil)
			a.listIDs = append(a.listIDs, e.ID)
		}
		if len(snap.Emails) == 0 {
			list.SetTitle(" 📧 Inbox ")
		} else {
			list.SetTitle(fmt.Sprintf(" 📧 Inbox (%d) ", len(snap.Emails)))
		}
	}
	for i, id := range a.listIDs {
		if id == snap.SelectedID && list.GetCurrentItem() != i {
			list.SetCurrentItem(i)
		}
	}
}

func (a *App) renderDetails(snap conversation.Snapshot) {
	details := a.textView(paneDetails)
	sel, ok := snap.Selected()
	if !ok {
		details.SetText(fmt.Sprintf("[%s]No email selected. Ask me to read your latest emails.[-]", a.colors.Chat.PlaceholderColor))
		return
	}
	_, _, width, _ := details.GetInnerRect()
	if width < 20 {
		// not laid out yet; let the view wrap
		width = 0
	}
	details.SetText(a.renderer.FormatDetails(sel, width))
	details.ScrollToBeginning()
}

// onInboxChanged follows the list cursor with the selection
func (a *App) onInboxChanged(index int) {
	if a.syncing || index < 0 || index >= len(a.listIDs) {
		return
	}
	a.ctrl.Select(a.listIDs[index])
}
