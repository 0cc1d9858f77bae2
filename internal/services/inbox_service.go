package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ajramos/inboxpilot/internal/assistant"
	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/conversation"
	"github.com/ajramos/inboxpilot/internal/gmail"
	"github.com/ajramos/inboxpilot/internal/llm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	unknownSender = "Unknown"
	noSubject     = "(no subject)"

	ReasonNothingToDelete = "No emails found to delete with that keyword."
	ReasonNoMatch         = "No email matched the provided keyword."
	ReasonTrashFailed     = "Unable to delete message"
)

// InboxServiceImpl implements InboxService on top of Gmail and the AI service
type InboxServiceImpl struct {
	mail   MailClient
	ai     AIService
	inbox   config.InboxConfig
	cache   bool
	maxBody int
	logger  *zap.Logger
}

// NewInboxService creates an inbox service. ai may be nil.
func NewInboxService(mail MailClient, ai AIService, cfg *config.Config) *InboxServiceImpl {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	inbox := cfg.Inbox
	def := config.DefaultInboxConfig()
	if inbox.MaxResults <= 0 {
		inbox.MaxResults = def.MaxResults
	}
	if inbox.DetailWorkers <= 0 {
		inbox.DetailWorkers = def.DetailWorkers
	}
	if inbox.DeleteSearchLimit <= 0 {
		inbox.DeleteSearchLimit = def.DeleteSearchLimit
	}
	if inbox.DeleteFallbackLimit <= 0 {
		inbox.DeleteFallbackLimit = def.DeleteFallbackLimit
	}
	return &InboxServiceImpl{
		mail:    mail,
		ai:      ai,
		inbox:   inbox,
		cache:   cfg.LLM.CacheEnabled,
		maxBody: cfg.LLM.MaxBodyLength,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger
func (s *InboxServiceImpl) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// MaxResults is how many emails ListLatest loads
func (s *InboxServiceImpl) MaxResults() int64 {
	return s.inbox.MaxResults
}

// ListLatest loads the newest INBOX emails with AI summaries and suggested
// replies. AI problems are reported as diagnostics, never as errors.
func (s *InboxServiceImpl) ListLatest(ctx context.Context) (*LatestResult, error) {
	refs, err := s.mail.ListInbox(ctx, s.inbox.MaxResults)
	if err != nil {
		return nil, wrapMailError("failed to list messages", err)
	}
	result := &LatestResult{Emails: []conversation.EmailSummary{}}
	if len(refs) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.Id)
	}
	details, err := s.mail.GetMessagesParallel(ctx, ids, s.inbox.DetailWorkers)
	if err != nil {
		return nil, wrapMailError("failed to fetch message details", err)
	}

	var messages []*gmail.Message
	for _, m := range details {
		if m != nil {
			messages = append(messages, m)
		}
	}

	aiOn := s.ai != nil && s.ai.Available()
	if !aiOn {
		result.Diagnostics = append(result.Diagnostics,
			"No AI provider configured (set GEMINI_API_KEY); skipping AI summaries.",
			"No AI provider configured (set GEMINI_API_KEY); skipping AI replies.")
	}

	opts := SummaryOptions{MaxLength: s.maxBody, UseCache: s.cache}
	if aiOn && s.cache {
		account, err := s.mail.ActiveAccountEmail(ctx)
		if err != nil {
			s.logger.Debug("account lookup failed, AI cache disabled for this load", zap.Error(err))
			opts.UseCache = false
		}
		opts.AccountEmail = account
	}

	emails := make([]conversation.EmailSummary, len(messages))
	diags := make([][]string, len(messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.inbox.DetailWorkers)
	for i, m := range messages {
		g.Go(func() error {
			emails[i], diags[i] = s.enrich(gctx, m, aiOn, opts)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Emails = emails
	for _, d := range diags {
		result.Diagnostics = append(result.Diagnostics, d...)
	}
	return result, nil
}

func (s *InboxServiceImpl) enrich(ctx context.Context, m *gmail.Message, aiOn bool, opts SummaryOptions) (conversation.EmailSummary, []string) {
	e := conversation.EmailSummary{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		From:     orDefault(m.From, unknownSender),
		To:       m.To,
		Subject:  orDefault(m.Subject, noSubject),
		Snippet:  m.Snippet,
	}
	if !aiOn {
		return e, nil
	}

	content := EmailContent{MessageID: m.ID, From: e.From, Subject: e.Subject, Body: m.PlainText}
	var diags []string

	if res, err := s.ai.Summarize(ctx, content, opts); err != nil {
		diags = append(diags, describeAIError("summary", err))
	} else {
		e.Snippet = res.Text
	}
	if res, err := s.ai.DraftReply(ctx, content, opts); err != nil {
		diags = append(diags, describeAIError("reply", err))
	} else {
		e.AIReply = res.Text
	}
	return e, diags
}

func describeAIError(what string, err error) string {
	if errors.Is(err, llm.ErrEmptyResponse) {
		return fmt.Sprintf("AI provider returned an empty %s.", what)
	}
	return fmt.Sprintf("AI %s request failed: %v", what, err)
}

// Delete trashes one email chosen by id or by keyword. A result with
// Success false and a Reason means nothing matched; an error means the
// request itself failed.
func (s *InboxServiceImpl) Delete(ctx context.Context, req DeleteRequest) (*DeleteResult, error) {
	keyword := strings.TrimSpace(req.Keyword)
	messageID := strings.TrimSpace(req.MessageID)
	field := req.Field
	if !field.Valid() {
		field = assistant.FieldSubject
	}
	if keyword == "" && messageID == "" {
		return nil, fmt.Errorf("provide a keyword or message ID to delete an email: %w", ErrInvalidInput)
	}

	if messageID != "" {
		if err := s.mail.TrashMessage(ctx, messageID); err != nil {
			return &DeleteResult{Reason: ReasonTrashFailed}, wrapMailError(ReasonTrashFailed, err)
		}
		s.forget(ctx, messageID)
		return &DeleteResult{
			Success: true,
			Deleted: &DeletedEmail{
				ID:      messageID,
				From:    orDefault(req.SelectedFrom, unknownSender),
				Subject: orDefault(req.SelectedSubject, noSubject),
			},
		}, nil
	}

	refs, err := s.mail.SearchInbox(ctx, searchQuery(field, keyword), s.inbox.DeleteSearchLimit)
	if err != nil {
		return nil, wrapMailError("failed to list messages", err)
	}
	if len(refs) == 0 {
		fallback, err := s.mail.ListInbox(ctx, s.inbox.DeleteFallbackLimit)
		if err != nil {
			s.logger.Debug("fallback inbox listing failed", zap.Error(err))
		} else {
			refs = fallback
		}
	}
	if len(refs) == 0 {
		return &DeleteResult{Reason: ReasonNothingToDelete}, nil
	}

	for _, ref := range refs {
		m, err := s.mail.GetMessage(ctx, ref.Id)
		if err != nil {
			if errors.Is(err, gmail.ErrUnauthorized) || ctx.Err() != nil {
				return nil, wrapMailError("failed to read message", err)
			}
			s.logger.Debug("skipping unreadable message", zap.String("message_id", ref.Id), zap.Error(err))
			continue
		}
		from := orDefault(m.From, unknownSender)
		subject := orDefault(m.Subject, noSubject)
		target := subject
		if field == assistant.FieldFrom {
			target = from
		}
		if !strings.Contains(strings.ToLower(target), strings.ToLower(keyword)) {
			continue
		}
		if err := s.mail.TrashMessage(ctx, m.ID); err != nil {
			return &DeleteResult{Reason: ReasonTrashFailed}, wrapMailError(ReasonTrashFailed, err)
		}
		s.forget(ctx, m.ID)
		return &DeleteResult{
			Success: true,
			Deleted: &DeletedEmail{ID: m.ID, From: from, Subject: subject},
		}, nil
	}
	return &DeleteResult{Reason: ReasonNoMatch}, nil
}

// forget drops cached AI output for a trashed message. Failures only log;
// the email is already gone.
func (s *InboxServiceImpl) forget(ctx context.Context, messageID string) {
	if !s.cache || s.ai == nil {
		return
	}
	account, err := s.mail.ActiveAccountEmail(ctx)
	if err != nil || account == "" {
		s.logger.Debug("account lookup failed, cache entry kept", zap.String("message_id", messageID), zap.Error(err))
		return
	}
	if err := s.ai.Forget(ctx, account, messageID); err != nil {
		s.logger.Warn("failed to forget cached AI output", zap.String("message_id", messageID), zap.Error(err))
	}
}

// searchQuery builds a Gmail search operator, quoting multi-word keywords
func searchQuery(field assistant.Field, keyword string) string {
	if strings.ContainsAny(keyword, " \t") {
		keyword = `"` + strings.ReplaceAll(keyword, `"`, "") + `"`
	}
	return string(field) + ":" + keyword
}

// SendReply sends a plain-text reply in the original thread
func (s *InboxServiceImpl) SendReply(ctx context.Context, req ReplyRequest) (*ReplyResult, error) {
	to := strings.TrimSpace(req.To)
	subject := strings.TrimSpace(req.Subject)
	text := strings.TrimSpace(req.ReplyText)
	if to == "" || subject == "" || text == "" {
		return nil, fmt.Errorf("missing required fields: 'to', 'subject', or 'replyText': %w", ErrInvalidInput)
	}

	sent, err := s.mail.SendReply(ctx, gmail.ReplyInput{
		To:       to,
		Subject:  subject,
		Body:     text,
		ThreadID: strings.TrimSpace(req.ThreadID),
	})
	if err != nil {
		return nil, wrapMailError("failed to send reply", err)
	}
	return &ReplyResult{Success: true, SentMessageID: sent.ID, ThreadID: sent.ThreadID}, nil
}

// RefineReply rewrites a draft reply. Without an AI service the draft is
// echoed back.
func (s *InboxServiceImpl) RefineReply(ctx context.Context, req RefineRequest) (string, error) {
	if strings.TrimSpace(req.CurrentReply) == "" {
		return "", fmt.Errorf("missing 'currentReply': %w", ErrInvalidInput)
	}
	if s.ai == nil {
		return strings.TrimSpace(req.CurrentReply), nil
	}
	return s.ai.Refine(ctx, req)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var (
	_ InboxService = (*InboxServiceImpl)(nil)
	_ AIService    = (*AIServiceImpl)(nil)
	_ CacheService = (*CacheServiceImpl)(nil)
	_ MailClient   = (*gmail.Client)(nil)
)
