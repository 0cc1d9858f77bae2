package services

import (
	"context"
	"time"

	"github.com/ajramos/inboxpilot/internal/assistant"
	"github.com/ajramos/inboxpilot/internal/conversation"
	"github.com/ajramos/inboxpilot/internal/gmail"
	gmail_v1 "google.golang.org/api/gmail/v1"
)

// MailClient is the subset of *gmail.Client the services need
type MailClient interface {
	ActiveAccountEmail(ctx context.Context) (string, error)
	ListInbox(ctx context.Context, maxResults int64) ([]*gmail_v1.Message, error)
	SearchInbox(ctx context.Context, query string, maxResults int64) ([]*gmail_v1.Message, error)
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
	GetMessagesParallel(ctx context.Context, ids []string, maxWorkers int) ([]*gmail.Message, error)
	TrashMessage(ctx context.Context, id string) error
	SendReply(ctx context.Context, in gmail.ReplyInput) (*gmail.SentMessage, error)
}

// InboxService handles the Gmail-facing operations of the assistant
type InboxService interface {
	ListLatest(ctx context.Context) (*LatestResult, error)
	Delete(ctx context.Context, req DeleteRequest) (*DeleteResult, error)
	SendReply(ctx context.Context, req ReplyRequest) (*ReplyResult, error)
	RefineReply(ctx context.Context, req RefineRequest) (string, error)
}

// AIService handles AI-related operations
type AIService interface {
	Available() bool
	Summarize(ctx context.Context, email EmailContent, options SummaryOptions) (*SummaryResult, error)
	DraftReply(ctx context.Context, email EmailContent, options SummaryOptions) (*SummaryResult, error)
	Refine(ctx context.Context, req RefineRequest) (string, error)
	Forget(ctx context.Context, accountEmail, messageID string) error
}

// CacheService handles AI output caching
type CacheService interface {
	GetSummary(ctx context.Context, accountEmail, messageID string) (string, bool, error)
	SaveSummary(ctx context.Context, accountEmail, messageID, summary string) error
	GetReply(ctx context.Context, accountEmail, messageID string) (string, bool, error)
	SaveReply(ctx context.Context, accountEmail, messageID, reply string) error
	Invalidate(ctx context.Context, accountEmail, messageID string) error
}

// Interpreter resolves a command to an action
type Interpreter interface {
	Interpret(ctx context.Context, command string) assistant.Interpretation
}

// LatestResult is the outcome of loading the newest inbox messages.
// Diagnostics describe AI problems that did not prevent the load.
type LatestResult struct {
	Emails      []conversation.EmailSummary `json:"emails"`
	Diagnostics []string                    `json:"diagnostics,omitempty"`
}

// DeleteRequest targets one email either by id or by keyword
type DeleteRequest struct {
	Keyword         string          `json:"keyword,omitempty"`
	Field           assistant.Field `json:"field,omitempty"`
	MessageID       string          `json:"messageId,omitempty"`
	SelectedSubject string          `json:"selectedSubject,omitempty"`
	SelectedFrom    string          `json:"selectedFrom,omitempty"`
}

// DeletedEmail identifies a trashed email
type DeletedEmail struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
}

// DeleteResult reports whether an email was trashed and, if not, why
type DeleteResult struct {
	Success bool          `json:"success"`
	Deleted *DeletedEmail `json:"deleted,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

// ReplyRequest is a reply to send through Gmail
type ReplyRequest struct {
	MessageID string `json:"messageId,omitempty"`
	ThreadID  string `json:"threadId,omitempty"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	ReplyText string `json:"replyText"`
}

// ReplyResult is the outcome of a successful send
type ReplyResult struct {
	Success       bool   `json:"success"`
	SentMessageID string `json:"sentMessageId"`
	ThreadID      string `json:"threadId,omitempty"`
}

// EmailContext is optional background for refining a reply
type EmailContext struct {
	From    string `json:"from,omitempty"`
	Subject string `json:"subject,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// RefineRequest asks the model to rewrite a draft reply
type RefineRequest struct {
	CurrentReply string        `json:"currentReply"`
	Instructions string        `json:"instructions,omitempty"`
	EmailContext *EmailContext `json:"emailContext,omitempty"`
}

// EmailContent is the input to summary and reply generation
type EmailContent struct {
	MessageID string
	From      string
	Subject   string
	Body      string
}

// SummaryOptions controls AI generation and caching
type SummaryOptions struct {
	// MaxLength caps the body runes sent to the model; 0 uses the default
	MaxLength    int
	UseCache     bool
	AccountEmail string
}

// SummaryResult is a generated text with its provenance
type SummaryResult struct {
	Text      string
	FromCache bool
	Duration  time.Duration
}
