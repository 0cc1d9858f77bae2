package tui

import (
	"errors"
	"strings"

	"github.com/ajramos/inboxpilot/internal/services"
	"github.com/derailed/tcell/v2"
	"go.uber.org/zap"
)

// bindKeys installs the global shortcuts
func (a *App) bindKeys() {
	a.SetInputCapture(a.handleKey)
}

// handleKey processes shortcuts that work from every pane
func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyCtrlC:
		a.Stop()
		return nil
	case tcell.KeyTab:
		a.focusPane(focusOrder[(a.focusIdx+1)%len(focusOrder)])
		return nil
	case tcell.KeyBacktab:
		a.focusPane(focusOrder[(a.focusIdx+len(focusOrder)-1)%len(focusOrder)])
		return nil
	case tcell.KeyCtrlS:
		go a.sendReply()
		return nil
	case tcell.KeyCtrlR:
		input := a.inputField()
		instructions := strings.TrimSpace(input.GetText())
		input.SetText("")
		go a.refineReply(instructions)
		return nil
	}
	return ev
}

// inputCapture keeps the command field read-only while a fetch or delete runs
func (a *App) inputCapture(ev *tcell.EventKey) *tcell.EventKey {
	if !a.isBusy() {
		return ev
	}
	switch ev.Key() {
	case tcell.KeyRune, tcell.KeyBackspace, tcell.KeyBackspace2, tcell.KeyDelete, tcell.KeyEnter:
		return nil
	}
	return ev
}

func (a *App) onInputDone(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	input := a.inputField()
	text := strings.TrimSpace(input.GetText())
	if text == "" {
		return
	}
	if a.isBusy() {
		a.errorHandler.ShowWarning(a.ctx, "Please wait for the current command to finish")
		return
	}
	input.SetText("")
	go a.submit(text)
}

// submit runs a command off the UI goroutine; the state observer redraws
func (a *App) submit(text string) {
	_, err := a.ctrl.Submit(a.ctx, text)
	switch {
	case err == nil, errors.Is(err, services.ErrEmptyCommand):
	case errors.Is(err, services.ErrBusy):
		a.errorHandler.ShowWarning(a.ctx, "Please wait for the current command to finish")
	default:
		a.errorHandler.HandleError(a.ctx, err, "Command failed")
	}
}

func (a *App) sendReply() {
	res, err := a.ctrl.SendReply(a.ctx, "")
	switch {
	case errors.Is(err, services.ErrNoSelection):
		a.errorHandler.ShowWarning(a.ctx, "Select an email first")
	case errors.Is(err, services.ErrInvalidInput):
		a.errorHandler.ShowWarning(a.ctx, "There is no suggested reply to send")
	case err != nil:
		a.errorHandler.HandleError(a.ctx, err, "Could not send the reply")
	default:
		a.logger.Info("reply sent", zap.String("message_id", res.SentMessageID))
		a.errorHandler.ShowSuccess(a.ctx, "Reply sent")
	}
}

func (a *App) refineReply(instructions string) {
	_, err := a.ctrl.RefineReply(a.ctx, instructions)
	switch {
	case errors.Is(err, services.ErrNoSelection):
		a.errorHandler.ShowWarning(a.ctx, "Select an email first")
	case errors.Is(err, services.ErrInvalidInput):
		a.errorHandler.ShowWarning(a.ctx, "There is no suggested reply to refine")
	case err != nil:
		a.errorHandler.HandleError(a.ctx, err, "Could not refine the reply")
	default:
		a.errorHandler.ShowSuccess(a.ctx, "Suggested reply refined")
	}
}
