package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ajramos/inboxpilot/internal/conversation"
	"github.com/ajramos/inboxpilot/internal/services"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

const statusTTL = 5 * time.Second

// LogLevel represents the severity of a message
type LogLevel int

const (
	LogLevelInfo LogLevel = iota
	LogLevelWarning
	LogLevelError
	LogLevelSuccess
)

// ErrorHandler owns the status bar: a baseline with the busy indicator, and
// transient messages that fall back to it after a few seconds.
type ErrorHandler struct {
	mu         sync.Mutex
	appRef     *App
	statusView *tview.TextView
	logger     *zap.Logger

	currentStatus    string
	persistentStatus string
	statusTimer      *time.Timer
	closed           bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(appRef *App, statusView *tview.TextView, logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	eh := &ErrorHandler{appRef: appRef, statusView: statusView, logger: logger}
	eh.refreshStatusDisplay()
	return eh
}

// HandleError logs err and shows userMsg with a short explanation
func (eh *ErrorHandler) HandleError(ctx context.Context, err error, userMsg string) {
	if err == nil {
		return
	}
	eh.logger.Error(userMsg, zap.Error(err))
	if userMsg == "" {
		userMsg = "An error occurred"
	}
	if detail := userDetail(err); detail != "" {
		userMsg += ": " + detail
	}
	eh.ShowMessage(ctx, userMsg, LogLevelError)
}

// userDetail explains the well-known failures without leaking raw errors
func userDetail(err error) string {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return "Gmail access expired, run 'inboxpilot setup'"
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "the request timed out"
	case errors.Is(err, services.ErrNetworkUnavailable):
		return "network unavailable"
	case errors.Is(err, services.ErrRateLimited):
		return "Gmail is rate limiting requests, try again shortly"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return ""
	}
}

// ShowMessage displays a transient message to the user
func (eh *ErrorHandler) ShowMessage(_ context.Context, msg string, level LogLevel) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	eh.logger.Debug("status", zap.String("level", levelToString(level)), zap.String("message", msg))
	formatted := eh.formatMessage(msg, level)
	eh.appRef.queue(func() {
		eh.updateStatusMessage(formatted)
	})
}

// SetBaseline updates the busy indicator. It must run on the UI goroutine.
func (eh *ErrorHandler) SetBaseline(busy conversation.Busy) {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	if text := busyText(busy); text != "" {
		eh.persistentStatus = fmt.Sprintf("[%s]⏳ %s[-]", eh.appRef.colors.Status.BusyColor, text)
	} else {
		eh.persistentStatus = ""
	}
	eh.refreshStatusDisplay()
}

// Close stops the pending auto-clear
func (eh *ErrorHandler) Close() {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.closed = true
	if eh.statusTimer != nil {
		eh.statusTimer.Stop()
	}
}

func (eh *ErrorHandler) formatMessage(msg string, level LogLevel) string {
	colors := eh.appRef.colors
	switch level {
	case LogLevelWarning:
		return fmt.Sprintf("[%s]⚠️ %s[-]", colors.Status.BusyColor, tview.Escape(msg))
	case LogLevelError:
		return fmt.Sprintf("[%s]❌ %s[-]", colors.Status.ErrorColor, tview.Escape(msg))
	case LogLevelSuccess:
		return fmt.Sprintf("[%s]✅ %s[-]", colors.Inbox.ReplyColor, tview.Escape(msg))
	default:
		return "ℹ️ " + tview.Escape(msg)
	}
}

func levelToString(level LogLevel) string {
	switch level {
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// updateStatusMessage shows msg and schedules its removal
func (eh *ErrorHandler) updateStatusMessage(msg string) {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	if eh.closed {
		return
	}
	if eh.statusTimer != nil {
		eh.statusTimer.Stop()
	}
	eh.currentStatus = msg
	eh.refreshStatusDisplay()

	eh.statusTimer = time.AfterFunc(statusTTL, func() {
		eh.appRef.queue(func() { eh.clearStatus(msg) })
	})
}

// clearStatus drops msg unless a newer message replaced it
func (eh *ErrorHandler) clearStatus(expected string) {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	if eh.currentStatus == expected {
		eh.currentStatus = ""
		eh.refreshStatusDisplay()
	}
}

func (eh *ErrorHandler) refreshStatusDisplay() {
	if eh.statusView == nil {
		return
	}
	switch {
	case eh.currentStatus != "":
		eh.statusView.SetText(eh.currentStatus)
	case eh.persistentStatus != "":
		eh.statusView.SetText(eh.persistentStatus)
	default:
		eh.statusView.SetText(baselineStatus)
	}
}

// ShowInfo shows an info message
func (eh *ErrorHandler) ShowInfo(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelInfo)
}

// ShowWarning shows a warning message
func (eh *ErrorHandler) ShowWarning(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelWarning)
}

// ShowSuccess shows a success message
func (eh *ErrorHandler) ShowSuccess(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelSuccess)
}
