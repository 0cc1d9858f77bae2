package tui

import (
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

const inputLabel = " > "
const busyLabel = " Working… "

// styleBox applies the theme frame to a bordered pane
func (a *App) styleBox(box *tview.Box, title string) {
	box.SetBackgroundColor(a.colors.Body.BgColor.Color())
	box.SetBorder(true).
		SetBorderColor(a.colors.Frame.BorderColor.Color()).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(title).
		SetTitleColor(a.colors.Frame.TitleColor.Color()).
		SetTitleAlign(tview.AlignCenter)
}

// initComponents builds the panes and the layout:
//
//	+-----------+-----------------+
//	|   chat    | inbox           |
//	|           +-----------------+
//	|           | details         |
//	+-----------+-----------------+
//	| input                       |
//	| activity          | status  |
func (a *App) initComponents() {
	bg := a.colors.Body.BgColor.Color()
	fg := a.colors.Body.FgColor.Color()

	chat := tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetScrollable(true)
	chat.SetTextColor(fg)
	a.styleBox(chat.Box, " 💬 Assistant ")

	inbox := tview.NewList().ShowSecondaryText(true)
	inbox.SetMainTextColor(a.colors.Inbox.SubjectColor.Color()).
		SetSecondaryTextColor(a.colors.Status.ActivityColor.Color()).
		SetSelectedBackgroundColor(a.colors.Inbox.SelectedColor.Color()).
		SetSelectedTextColor(fg)
	a.styleBox(inbox.Box, " 📧 Inbox ")
	inbox.SetChangedFunc(func(index int, _, _ string, _ rune) {
		a.onInboxChanged(index)
	})

	details := tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetScrollable(true)
	details.SetTextColor(fg)
	a.styleBox(details.Box, " 📄 Email ")

	activity := tview.NewTextView().SetDynamicColors(true).SetWrap(false).SetScrollable(true)
	activity.SetTextColor(a.colors.Status.ActivityColor.Color())
	a.styleBox(activity.Box, " Activity ")

	input := tview.NewInputField().SetLabel(inputLabel)
	input.SetPlaceholder("Ask me to read, reply to or delete emails")
	input.SetLabelColor(a.colors.Frame.TitleColor.Color()).
		SetFieldBackgroundColor(bg).
		SetFieldTextColor(fg).
		SetPlaceholderTextColor(a.colors.Chat.PlaceholderColor.Color())
	a.styleBox(input.Box, " Command ")
	input.SetDoneFunc(a.onInputDone)
	input.SetInputCapture(a.inputCapture)

	status := tview.NewTextView().SetDynamicColors(true)
	status.SetBackgroundColor(bg)
	status.SetTextColor(fg)

	a.views[paneChat] = chat
	a.views[paneInbox] = inbox
	a.views[paneDetails] = details
	a.views[paneActivity] = activity
	a.views[paneInput] = input
	a.views[paneStatus] = status

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(inbox, 0, 2, false).
		AddItem(details, 0, 3, false)
	main := tview.NewFlex().
		AddItem(chat, 0, 1, false).
		AddItem(right, 0, 1, false)

	a.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(main, 0, 1, false).
		AddItem(input, 3, 0, true).
		AddItem(activity, 7, 0, false).
		AddItem(status, 1, 0, false)
}
