package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ajramos/inboxpilot/internal/assistant"
	"github.com/ajramos/inboxpilot/internal/conversation"
	"go.uber.org/zap"
)

// Placeholder texts shown while a command runs
const (
	PlaceholderFetching = "Let me pull your latest emails…"
	PlaceholderThinking = "Let me think about that…"
)

// ChatController drives one conversation: it owns the state and runs each
// submitted command through the interpreter and the dispatcher.
type ChatController struct {
	state       *conversation.State
	interpreter Interpreter
	dispatcher  *Dispatcher
	inbox       InboxService
	logger      *zap.Logger

	inflight atomic.Bool
}

// NewChatController creates a controller for state
func NewChatController(state *conversation.State, interpreter Interpreter, dispatcher *Dispatcher, inbox InboxService) *ChatController {
	return &ChatController{
		state:       state,
		interpreter: interpreter,
		dispatcher:  dispatcher,
		inbox:       inbox,
		logger:      zap.NewNop(),
	}
}

// SetLogger sets the logger
func (c *ChatController) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// State returns the conversation the controller drives
func (c *ChatController) State() *conversation.State {
	return c.state
}

// Busy reports whether a command is in flight
func (c *ChatController) Busy() bool {
	return c.inflight.Load() || c.state.Busy().Blocking()
}

// Placeholder picks the interim text for a command
func Placeholder(command string) string {
	if assistant.Classify(command).Action == assistant.ActionFetchLatest {
		return PlaceholderFetching
	}
	return PlaceholderThinking
}

// Submit runs one command to completion. The user message and placeholder
// are recorded before any network call; a second submission while one is
// running is rejected with ErrBusy.
func (c *ChatController) Submit(ctx context.Context, text string) (conversation.Snapshot, error) {
	command := strings.TrimSpace(text)
	if command == "" {
		return c.state.Snapshot(), ErrEmptyCommand
	}
	if c.state.Busy().Blocking() || !c.inflight.CompareAndSwap(false, true) {
		return c.state.Snapshot(), ErrBusy
	}
	defer c.inflight.Store(false)

	id := c.state.BeginExchange(command, Placeholder(command))

	in := c.interpreter.Interpret(ctx, command)
	c.logger.Info("command interpreted",
		zap.String("action", in.Action.String()),
		zap.String("source", string(in.Source)))

	outcome := c.dispatcher.Dispatch(ctx, in, command, c.state)
	if err := c.state.Resolve(id, outcome); err != nil {
		c.logger.Error("failed to resolve placeholder", zap.Int("message_id", id), zap.Error(err))
	}
	return c.state.Snapshot(), nil
}

// Select marks an email as the one the reply actions work on
func (c *ChatController) Select(id string) bool {
	return c.state.Select(id)
}

// SendReply sends text (or the suggested reply when text is blank) to the
// sender of the selected email.
func (c *ChatController) SendReply(ctx context.Context, text string) (*ReplyResult, error) {
	email, ok := c.state.Selected()
	if !ok {
		return nil, ErrNoSelection
	}
	body := strings.TrimSpace(text)
	if body == "" {
		body = strings.TrimSpace(email.AIReply)
	}
	if body == "" {
		return nil, fmt.Errorf("nothing to send: %w", ErrInvalidInput)
	}

	c.state.SetBusy(conversation.OpSendingReply, true)
	defer c.state.SetBusy(conversation.OpSendingReply, false)
	c.state.Logf("Sending reply to %s…", email.From)

	res, err := c.inbox.SendReply(ctx, ReplyRequest{
		MessageID: email.ID,
		ThreadID:  email.ThreadID,
		To:        email.From,
		Subject:   email.Subject,
		ReplyText: body,
	})
	if err != nil {
		c.logger.Warn("send reply failed", zap.String("message_id", email.ID), zap.Error(err))
		c.state.Logf("Send failed: %v", err)
		c.state.Say("I couldn't send that reply. Please try again.")
		return nil, err
	}
	c.state.Logf("Reply sent to %s.", email.From)
	c.state.Say(fmt.Sprintf("Sent your reply to %s.", email.From))
	return res, nil
}

// RefineReply rewrites the selected email's suggested reply
func (c *ChatController) RefineReply(ctx context.Context, instructions string) (string, error) {
	email, ok := c.state.Selected()
	if !ok {
		return "", ErrNoSelection
	}
	if strings.TrimSpace(email.AIReply) == "" {
		return "", fmt.Errorf("selected email has no suggested reply: %w", ErrInvalidInput)
	}

	c.state.SetBusy(conversation.OpRefiningReply, true)
	defer c.state.SetBusy(conversation.OpRefiningReply, false)
	c.state.Log("Refining the suggested reply…")

	refined, err := c.inbox.RefineReply(ctx, RefineRequest{
		CurrentReply: email.AIReply,
		Instructions: instructions,
		EmailContext: &EmailContext{From: email.From, Subject: email.Subject, Snippet: email.Snippet},
	})
	if err != nil {
		c.logger.Warn("refine reply failed", zap.String("message_id", email.ID), zap.Error(err))
		c.state.Logf("Refine failed: %v", err)
		return "", err
	}
	c.state.SetReply(email.ID, refined)
	c.state.Log("Suggested reply refined.")
	return refined, nil
}
