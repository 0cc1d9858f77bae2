package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ajramos/inboxpilot/internal/assistant"
	"github.com/ajramos/inboxpilot/internal/conversation"
	"go.uber.org/zap"
)

// Outcome texts shown in the chat
const (
	MsgDraftReply      = "I can help you draft smart replies. In the next step, I'll be able to send them via Gmail."
	MsgUnknown         = "I've received your request. I'll connect this to more advanced email actions soon."
	MsgWhichEmail      = "Please tell me which email to delete (mention the subject or sender)."
	MsgDeleteProblem   = "I ran into a problem while trying to delete that email. Please try again."
	MsgNoRecentEmails  = "I checked your inbox but didn't find any recent emails."
	MsgEmailsLoaded    = "I've loaded your latest emails. Use the inbox panel to review each email and its suggested reply."
	MsgFetchFailed     = "I couldn't fetch your emails due to an error. Please try again later."
	MsgFetchProblem    = "I ran into a problem while trying to fetch your emails."
	MsgDeletedFallback = "Deleted the requested email."
	defaultDeleteWhy   = "No matching email found."
)

// Dispatcher runs the handler for an interpreted action against a session.
// Handlers never return errors: failures become activity entries and a
// user-safe outcome text.
type Dispatcher struct {
	inbox      InboxService
	fetchCount int64
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher. fetchCount only affects the activity text.
func NewDispatcher(inbox InboxService, fetchCount int64) *Dispatcher {
	if fetchCount <= 0 {
		fetchCount = 5
	}
	return &Dispatcher{inbox: inbox, fetchCount: fetchCount, logger: zap.NewNop()}
}

// SetLogger sets the logger
func (d *Dispatcher) SetLogger(logger *zap.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Dispatch executes the action and returns the assistant's reply text
func (d *Dispatcher) Dispatch(ctx context.Context, in assistant.Interpretation, command string, state *conversation.State) string {
	switch in.Action {
	case assistant.ActionFetchLatest:
		state.Log("Requested: Read latest emails.")
		return d.fetchLatest(ctx, state)
	case assistant.ActionDeleteEmail:
		state.Log("Requested: Delete a specific email.")
		return d.deleteEmail(ctx, in, command, state)
	case assistant.ActionHelp:
		state.Log("Displayed help and available commands.")
		return conversation.CommandHelp
	case assistant.ActionDraftReply:
		state.Log("Queued action: Draft reply.")
		return MsgDraftReply
	}

	// The model may answer unknown for text the keyword rules understand.
	if in.Source != assistant.SourceHeuristic {
		if again := assistant.Classify(command); again.Action != assistant.ActionUnknown {
			return d.Dispatch(ctx, again, command, state)
		}
	}
	state.Log("Received a free-form request. Will map to email actions later.")
	return MsgUnknown
}

func (d *Dispatcher) fetchLatest(ctx context.Context, state *conversation.State) (outcome string) {
	state.SetBusy(conversation.OpLoadingEmails, true)
	defer state.SetBusy(conversation.OpLoadingEmails, false)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("fetch handler panicked", zap.Any("panic", r))
			state.Logf("Unexpected error while fetching emails: %v", r)
			outcome = MsgFetchProblem
		}
	}()

	state.Logf("Fetching your last %d emails from Gmail…", d.fetchCount)

	res, err := d.inbox.ListLatest(ctx)
	if err != nil {
		d.logger.Warn("fetch latest failed", zap.Error(err))
		state.Logf("Failed to fetch emails: %v", err)
		return MsgFetchFailed
	}
	for _, diag := range res.Diagnostics {
		state.Log("AI debug: " + diag)
	}
	if len(res.Emails) == 0 {
		state.Log("No recent emails found in your inbox.")
		return MsgNoRecentEmails
	}

	state.Logf("Fetched %d emails from your inbox.", len(res.Emails))
	state.SetEmails(res.Emails)
	return MsgEmailsLoaded
}

// criterion picks the delete target. Only model-produced params are trusted;
// the heuristic's whole-command guess is refined from the raw text.
func criterion(in assistant.Interpretation, command string) (assistant.DeleteCriterion, bool) {
	if in.Source == assistant.SourceModel && in.DeleteParams != nil && in.DeleteParams.Valid() {
		return *in.DeleteParams, true
	}
	c, ok := assistant.ExtractDeletionParams(command)
	if !ok || strings.TrimSpace(c.Keyword) == "" {
		return assistant.DeleteCriterion{}, false
	}
	return c, true
}

func localMatch(emails []conversation.EmailSummary, c assistant.DeleteCriterion) (conversation.EmailSummary, bool) {
	needle := strings.ToLower(c.Keyword)
	for _, e := range emails {
		hay := e.Subject
		if c.Field == assistant.FieldFrom {
			hay = e.From
		}
		if strings.Contains(strings.ToLower(hay), needle) {
			return e, true
		}
	}
	return conversation.EmailSummary{}, false
}

func (d *Dispatcher) deleteEmail(ctx context.Context, in assistant.Interpretation, command string, state *conversation.State) (outcome string) {
	c, ok := criterion(in, command)
	if !ok {
		return MsgWhichEmail
	}

	req := DeleteRequest{Keyword: c.Keyword, Field: c.Field}
	if match, ok := localMatch(state.Emails(), c); ok {
		req.MessageID = match.ID
		req.SelectedSubject = match.Subject
		req.SelectedFrom = match.From
	}

	state.Logf("Attempting to delete an email matching %q (%s).", c.Keyword, c.Field)
	state.SetBusy(conversation.OpDeleting, true)
	defer state.SetBusy(conversation.OpDeleting, false)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("delete handler panicked", zap.Any("panic", r))
			state.Logf("Delete request failed: %v", r)
			outcome = MsgDeleteProblem
		}
	}()

	res, err := d.inbox.Delete(ctx, req)
	if err != nil && (res == nil || res.Reason == "") {
		d.logger.Warn("delete failed", zap.Error(err))
		state.Logf("Delete request failed: %v", err)
		if errors.Is(err, ErrInvalidInput) {
			return MsgWhichEmail
		}
		return MsgDeleteProblem
	}
	if res == nil {
		d.logger.Warn("delete returned no result")
		state.Log("Delete request failed: no result from the mail service")
		return MsgDeleteProblem
	}
	if err != nil || !res.Success {
		reason := res.Reason
		if reason == "" {
			reason = defaultDeleteWhy
		}
		if err != nil {
			d.logger.Warn("delete failed", zap.String("reason", reason), zap.Error(err))
		}
		state.Log("Delete failed: " + reason)
		return fmt.Sprintf("I couldn't delete any email matching %q. %s", c.Keyword, reason)
	}

	summary := MsgDeletedFallback
	if res.Deleted != nil {
		state.RemoveEmail(res.Deleted.ID)
		summary = fmt.Sprintf("Deleted email from %s with subject %q.", res.Deleted.From, res.Deleted.Subject)
	}
	state.Log(summary)
	return summary
}
