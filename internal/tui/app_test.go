package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ajramos/inboxpilot/internal/assistant"
	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/conversation"
	"github.com/ajramos/inboxpilot/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type mockInbox struct {
	mock.Mock
}

func (m *mockInbox) ListLatest(ctx context.Context) (*services.LatestResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*services.LatestResult)
	return res, args.Error(1)
}

func (m *mockInbox) Delete(ctx context.Context, req services.DeleteRequest) (*services.DeleteResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*services.DeleteResult)
	return res, args.Error(1)
}

func (m *mockInbox) SendReply(ctx context.Context, req services.ReplyRequest) (*services.ReplyResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*services.ReplyResult)
	return res, args.Error(1)
}

func (m *mockInbox) RefineReply(ctx context.Context, req services.RefineRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// newTestApp builds an App whose UI updates run inline
func newTestApp(t *testing.T, inbox services.InboxService) *App {
	t.Helper()
	interp := assistant.NewInterpreter(nil, "")
	ctrl := services.NewChatController(conversation.NewState("Ada"), interp, services.NewDispatcher(inbox, 5), inbox)
	a := NewApp(ctrl, nil, nil)
	a.queue = func(f func()) { f() }
	t.Cleanup(a.shutdown)
	return a
}

func sampleEmails() []conversation.EmailSummary {
	return []conversation.EmailSummary{
		{ID: "m1", From: "Jane <jane@x>", Subject: "Invoice", Snippet: "Please pay", AIReply: "Paid."},
		{ID: "m2", From: "bob@x", Subject: "Lunch", Snippet: "Free Friday?"},
	}
}

func TestFormatChat(t *testing.T) {
	colors := config.DefaultColors()
	out := formatChat([]conversation.Message{
		{ID: 1, Role: conversation.RoleAssistant, Text: "Hello"},
		{ID: 2, Role: conversation.RoleUser, Text: "delete [spam]"},
		{ID: 3, Role: conversation.RoleAssistant, Text: services.PlaceholderThinking},
	}, colors)

	assert.Contains(t, out, "Assistant[-::-]\nHello")
	assert.Contains(t, out, "You[-::-]")
	assert.Contains(t, out, "delete [spam[]")
	assert.Contains(t, out, fmt.Sprintf("[%s::i]%s", colors.Chat.PlaceholderColor, services.PlaceholderThinking))
	assert.Equal(t, 2, strings.Count(out, "\n\n"))
}

func TestFormatActivity(t *testing.T) {
	colors := config.DefaultColors()
	out := formatActivity([]string{"Send failed: quota", "Requested: read my email"}, colors)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], fmt.Sprintf("[%s]", colors.Status.ErrorColor)))
	assert.True(t, strings.HasPrefix(lines[1], fmt.Sprintf("[%s]", colors.Status.ActivityColor)))
}

func TestBusyText(t *testing.T) {
	assert.Equal(t, "", busyText(conversation.Busy{}))
	assert.Equal(t, "Working: loading emails…", busyText(conversation.Busy{LoadingEmails: true}))
	assert.Equal(t, "Working: deleting, refining reply…", busyText(conversation.Busy{Deleting: true, RefiningReply: true}))
}

func TestNewApp_InitialRender(t *testing.T) {
	a := newTestApp(t, &mockInbox{})

	assert.Contains(t, a.textView(paneChat).GetText(true), "Hi Ada")
	assert.Contains(t, a.textView(paneDetails).GetText(true), "No email selected")
	assert.Contains(t, a.textView(paneActivity).GetText(true), "Dashboard initialized")
	assert.Equal(t, baselineStatus, a.statusView().GetText(true))
	assert.Equal(t, 0, a.inboxList().GetItemCount())
}

func TestRender_InboxFollowsSelection(t *testing.T) {
	a := newTestApp(t, &mockInbox{})
	state := a.ctrl.State()

	state.SetEmails(sampleEmails())
	a.render(state.Snapshot())

	list := a.inboxList()
	require.Equal(t, 2, list.GetItemCount())
	main, _ := list.GetItemText(0)
	assert.True(t, strings.HasPrefix(main, "Jane"))
	assert.Contains(t, a.textView(paneDetails).GetText(true), "Paid.")

	a.onInboxChanged(1)
	sel, ok := state.Selected()
	require.True(t, ok)
	assert.Equal(t, "m2", sel.ID)

	a.render(state.Snapshot())
	assert.Equal(t, 1, list.GetCurrentItem())
	assert.Contains(t, a.textView(paneDetails).GetText(true), "Free Friday?")
	assert.Contains(t, a.textView(paneDetails).GetText(true), "(no suggestion available)")
}

func TestRender_BusyLocksInput(t *testing.T) {
	a := newTestApp(t, &mockInbox{})
	state := a.ctrl.State()
	key := tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)

	state.SetBusy(conversation.OpLoadingEmails, true)
	a.render(state.Snapshot())
	assert.Equal(t, busyLabel, a.inputField().GetLabel())
	assert.Nil(t, a.inputCapture(key))
	assert.Contains(t, a.statusView().GetText(true), "loading emails")

	state.SetBusy(conversation.OpLoadingEmails, false)
	a.render(state.Snapshot())
	assert.Equal(t, inputLabel, a.inputField().GetLabel())
	assert.Equal(t, key, a.inputCapture(key))
	assert.Equal(t, baselineStatus, a.statusView().GetText(true))
}

func TestOnSnapshot_DropsStaleRevisions(t *testing.T) {
	a := newTestApp(t, &mockInbox{})
	state := a.ctrl.State()

	older := state.Snapshot()
	state.Say("newer reply")
	newer := state.Snapshot()
	require.Greater(t, newer.Revision, older.Revision)

	a.onSnapshot(newer)
	a.onSnapshot(older)
	a.onSnapshot(newer)

	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotNil(t, a.latest)
	assert.Equal(t, newer.Revision, a.latest.Revision)
	assert.Contains(t, a.latest.Messages[len(a.latest.Messages)-1].Text, "newer reply")
}

func TestDrawLoop_RendersNewestAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	a := newTestApp(t, &mockInbox{})
	drawn := make(chan struct{}, 4)
	a.queue = func(f func()) {
		f()
		drawn <- struct{}{}
	}
	state := a.ctrl.State()
	older := state.Snapshot()
	state.Say("latest words")
	newer := state.Snapshot()

	done := make(chan struct{})
	go func() {
		a.drawLoop()
		close(done)
	}()

	a.onSnapshot(newer)
	a.onSnapshot(older)
	select {
	case <-drawn:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot was not drawn")
	}
	assert.Contains(t, a.textView(paneChat).GetText(true), "latest words")

	a.shutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("draw loop did not stop")
	}
	assert.Empty(t, drawn, "the stale snapshot is never drawn")
}

func TestHandleKey_TabCyclesFocus(t *testing.T) {
	a := newTestApp(t, &mockInbox{})
	tab := tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone)

	assert.Nil(t, a.handleKey(tab))
	assert.Equal(t, a.views[paneInbox], a.GetFocus())
	assert.Nil(t, a.handleKey(tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModNone)))
	assert.Equal(t, a.views[paneInput], a.GetFocus())

	other := tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone)
	assert.Equal(t, other, a.handleKey(other))
}

func TestSubmit_RunsCommand(t *testing.T) {
	inbox := &mockInbox{}
	a := newTestApp(t, inbox)
	inbox.On("ListLatest", mock.Anything).Return(&services.LatestResult{Emails: sampleEmails()}, nil)

	a.submit("read my emails")
	a.render(a.ctrl.State().Snapshot())

	assert.Contains(t, a.textView(paneChat).GetText(true), services.MsgEmailsLoaded)
	assert.Equal(t, 2, a.inboxList().GetItemCount())
	inbox.AssertExpectations(t)
}

func TestSendReply_Feedback(t *testing.T) {
	inbox := &mockInbox{}
	a := newTestApp(t, inbox)

	a.sendReply()
	assert.Contains(t, a.statusView().GetText(true), "Select an email first")

	a.ctrl.State().SetEmails(sampleEmails())
	inbox.On("SendReply", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("send: %w", services.ErrUnauthorized)).Once()
	a.sendReply()
	assert.Contains(t, a.statusView().GetText(true), "inboxpilot setup")

	inbox.On("SendReply", mock.Anything, mock.Anything).
		Return(&services.ReplyResult{Success: true, SentMessageID: "s1"}, nil).Once()
	a.sendReply()
	assert.Contains(t, a.statusView().GetText(true), "Reply sent")
}

func TestRefineReply_UpdatesDetails(t *testing.T) {
	inbox := &mockInbox{}
	a := newTestApp(t, inbox)
	a.ctrl.State().SetEmails(sampleEmails())

	inbox.On("RefineReply", mock.Anything, mock.MatchedBy(func(r services.RefineRequest) bool {
		return r.CurrentReply == "Paid." && r.Instructions == "warmer"
	})).Return("Paid in full, thank you!", nil)

	a.refineReply("warmer")
	a.render(a.ctrl.State().Snapshot())
	assert.Contains(t, a.textView(paneDetails).GetText(true), "Paid in full, thank you!")
	assert.Contains(t, a.statusView().GetText(true), "Suggested reply refined")
}

func TestErrorHandler_ClearOnlyMatching(t *testing.T) {
	a := newTestApp(t, &mockInbox{})
	eh := a.errorHandler

	eh.ShowInfo(context.Background(), "first")
	first := eh.currentStatus
	eh.ShowWarning(context.Background(), "second")

	eh.clearStatus(first)
	assert.Contains(t, a.statusView().GetText(true), "second")

	eh.clearStatus(eh.currentStatus)
	assert.Equal(t, baselineStatus, a.statusView().GetText(true))
}

func TestUserDetail(t *testing.T) {
	assert.Contains(t, userDetail(fmt.Errorf("x: %w", services.ErrUnauthorized)), "setup")
	assert.Equal(t, "the request timed out", userDetail(context.DeadlineExceeded))
	assert.Equal(t, "", userDetail(errors.New("other")))
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "inboxpilot.log")
	logger, err := NewFileLogger(path, "debug")
	require.NoError(t, err)
	logger.Debug("hello from the dashboard")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the dashboard")

	_, err = NewFileLogger(path, "loud")
	assert.Error(t, err)
}
