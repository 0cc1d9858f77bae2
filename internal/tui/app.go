// Package tui is the terminal chat dashboard: conversation, inbox, email
// details with the suggested reply, and the activity log.
package tui

import (
	"context"
	"sync"

	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/conversation"
	"github.com/ajramos/inboxpilot/internal/render"
	"github.com/ajramos/inboxpilot/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

// Pane names, in Tab order
const (
	paneInput    = "input"
	paneInbox    = "inbox"
	paneDetails  = "details"
	paneChat     = "chat"
	paneActivity = "activity"
	paneStatus   = "status"
)

var focusOrder = []string{paneInput, paneInbox, paneDetails, paneChat}

// App encapsulates the terminal UI around one chat session
type App struct {
	*tview.Application
	ctrl         *services.ChatController
	colors       *config.ColorsConfig
	renderer     *render.EmailRenderer
	errorHandler *ErrorHandler
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	views    map[string]tview.Primitive
	root     tview.Primitive
	focusIdx int

	mu        sync.Mutex
	busy      bool
	listIDs   []string
	syncing   bool // list is being rebuilt; ignore change events
	latest    *conversation.Snapshot
	seen      uint64
	dirty     chan struct{}
	unsubOnce sync.Once
	unsub     func()
	// queue schedules UI work; tests replace it to run inline
	queue func(func())
}

// NewApp creates the dashboard for ctrl. A nil colors uses the default theme.
func NewApp(ctrl *services.ChatController, colors *config.ColorsConfig, logger *zap.Logger) *App {
	if colors == nil {
		colors = config.DefaultColors()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		Application: tview.NewApplication(),
		ctrl:        ctrl,
		colors:      colors,
		renderer:    render.NewEmailRenderer(),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		views:       make(map[string]tview.Primitive),
		dirty:       make(chan struct{}, 1),
	}
	a.queue = func(f func()) { a.QueueUpdateDraw(f) }
	a.renderer.UpdateFromConfig(colors)

	a.initComponents()
	a.errorHandler = NewErrorHandler(a, a.statusView(), logger)
	a.bindKeys()

	a.render(ctrl.State().Snapshot())
	return a
}

// Run shows the dashboard until the user quits
func (a *App) Run() error {
	a.unsub = a.ctrl.State().Subscribe(a.onSnapshot)
	go a.drawLoop()
	defer a.shutdown()

	a.SetRoot(a.root, true).SetFocus(a.views[paneInput])
	return a.Application.Run()
}

// Stop cancels outstanding work and leaves the event loop
func (a *App) Stop() {
	a.shutdown()
	a.Application.Stop()
}

func (a *App) shutdown() {
	a.unsubOnce.Do(func() {
		a.cancel()
		if a.unsub != nil {
			a.unsub()
		}
		a.errorHandler.Close()
	})
}

// onSnapshot runs on whichever goroutine changed the state. Only the newest
// snapshot is kept; drawLoop renders it on the UI goroutine. Observers of
// concurrent mutations can deliver out of order, so older revisions are dropped.
func (a *App) onSnapshot(snap conversation.Snapshot) {
	a.mu.Lock()
	if snap.Revision <= a.seen {
		a.mu.Unlock()
		return
	}
	a.seen = snap.Revision
	a.latest = &snap
	a.mu.Unlock()
	select {
	case a.dirty <- struct{}{}:
	default:
	}
}

func (a *App) drawLoop() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.dirty:
			a.mu.Lock()
			snap := a.latest
			a.latest = nil
			a.mu.Unlock()
			if snap != nil {
				a.queue(func() { a.render(*snap) })
			}
		}
	}
}

func (a *App) isBusy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy
}

func (a *App) statusView() *tview.TextView {
	return a.views[paneStatus].(*tview.TextView)
}

func (a *App) inputField() *tview.InputField {
	return a.views[paneInput].(*tview.InputField)
}

func (a *App) inboxList() *tview.List {
	return a.views[paneInbox].(*tview.List)
}

func (a *App) textView(name string) *tview.TextView {
	return a.views[name].(*tview.TextView)
}

// focusPane moves focus to the named pane and highlights its border
func (a *App) focusPane(name string) {
	for i, n := range focusOrder {
		if n == name {
			a.focusIdx = i
		}
		if box, ok := a.views[n].(interface {
			SetBorderColor(tcell.Color) *tview.Box
		}); ok {
			if n == name {
				box.SetBorderColor(a.colors.Frame.FocusColor.Color())
			} else {
				box.SetBorderColor(a.colors.Frame.BorderColor.Color())
			}
		}
	}
	a.SetFocus(a.views[name])
}
