package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/llm"
	"go.uber.org/zap"
)

const (
	defaultMaxBodyLength = 8000
	noBodyPlaceholder    = "(no body available)"
	defaultInstructions  = "Please improve clarity, tone, and professionalism while keeping the original intent.\n\n"
)

// AIServiceImpl implements AIService
type AIServiceImpl struct {
	provider     llm.Provider
	cacheService CacheService
	config       *config.Config
	logger       *zap.Logger
}

// NewAIService creates a new AI service. provider and cacheService may be nil.
func NewAIService(provider llm.Provider, cacheService CacheService, cfg *config.Config) *AIServiceImpl {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &AIServiceImpl{
		provider:     provider,
		cacheService: cacheService,
		config:       cfg,
		logger:       zap.NewNop(),
	}
}

// SetLogger sets the logger
func (s *AIServiceImpl) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Available reports whether a model is configured
func (s *AIServiceImpl) Available() bool {
	return s.provider != nil
}

// Summarize writes a short summary of an email, consulting the cache first
func (s *AIServiceImpl) Summarize(ctx context.Context, email EmailContent, options SummaryOptions) (*SummaryResult, error) {
	return s.generate(ctx, "summary", email, options, s.config.LLM.GetSummarizePrompt(), cacheOps{
		get:  s.cacheGetSummary,
		save: s.cacheSaveSummary,
	})
}

// DraftReply writes a suggested reply to an email, consulting the cache first
func (s *AIServiceImpl) DraftReply(ctx context.Context, email EmailContent, options SummaryOptions) (*SummaryResult, error) {
	return s.generate(ctx, "reply", email, options, s.config.LLM.GetReplyPrompt(), cacheOps{
		get:  s.cacheGetReply,
		save: s.cacheSaveReply,
	})
}

// Forget drops the cached summary and reply of a message. It is a no-op
// without a cache.
func (s *AIServiceImpl) Forget(ctx context.Context, accountEmail, messageID string) error {
	if s.cacheService == nil {
		return nil
	}
	return s.cacheService.Invalidate(ctx, accountEmail, messageID)
}

type cacheOps struct {
	get  func(ctx context.Context, account, id string) (string, bool)
	save func(ctx context.Context, account, id, text string)
}

func (s *AIServiceImpl) generate(ctx context.Context, what string, email EmailContent, options SummaryOptions, template string, cache cacheOps) (*SummaryResult, error) {
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}
	if strings.TrimSpace(email.Body) == "" && strings.TrimSpace(email.Subject) == "" {
		return nil, ErrEmptyContent
	}

	start := time.Now()
	useCache := options.UseCache && s.cacheService != nil && options.AccountEmail != "" && email.MessageID != ""
	if useCache {
		if cached, ok := cache.get(ctx, options.AccountEmail, email.MessageID); ok {
			return &SummaryResult{Text: cached, FromCache: true, Duration: time.Since(start)}, nil
		}
	}

	maxLength := defaultMaxBodyLength
	if options.MaxLength > 0 {
		maxLength = options.MaxLength
	}
	body := email.Body
	if r := []rune(body); len(r) > maxLength {
		body = string(r[:maxLength])
	}
	if strings.TrimSpace(body) == "" {
		body = noBodyPlaceholder
	}

	prompt := renderPrompt(template, map[string]string{
		"from":    email.From,
		"subject": email.Subject,
		"body":    body,
	})

	text, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", what, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("failed to generate %s: %w", what, llm.ErrEmptyResponse)
	}

	if useCache {
		cache.save(ctx, options.AccountEmail, email.MessageID, text)
	}
	return &SummaryResult{Text: text, Duration: time.Since(start)}, nil
}

// Refine rewrites a draft reply. Without a provider, or when the model
// returns nothing, the draft is returned unchanged.
func (s *AIServiceImpl) Refine(ctx context.Context, req RefineRequest) (string, error) {
	current := strings.TrimSpace(req.CurrentReply)
	if current == "" {
		return "", fmt.Errorf("missing current reply: %w", ErrInvalidInput)
	}
	if s.provider == nil {
		return current, nil
	}

	prompt := renderPrompt(s.config.LLM.GetRefinePrompt(), map[string]string{
		"context":      refineContext(req.EmailContext),
		"instructions": refineInstructions(req.Instructions),
		"reply":        current,
	})
	refined, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to refine reply: %w", err)
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return current, nil
	}
	return refined, nil
}

func refineContext(ec *EmailContext) string {
	if ec == nil {
		return ""
	}
	var lines []string
	if ec.From != "" {
		lines = append(lines, "Sender: "+ec.From)
	}
	if ec.Subject != "" {
		lines = append(lines, "Subject: "+ec.Subject)
	}
	if ec.Snippet != "" {
		lines = append(lines, "Email snippet: "+ec.Snippet)
	}
	if len(lines) == 0 {
		return ""
	}
	return "Original email context (for reference):\n" + strings.Join(lines, "\n") + "\n\n"
}

func refineInstructions(instructions string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return defaultInstructions
	}
	return "User refinement instructions: " + instructions + "\n\n"
}

// renderPrompt substitutes {{name}} placeholders in one pass so values that
// themselves contain placeholders are left alone.
func renderPrompt(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func (s *AIServiceImpl) cacheGetSummary(ctx context.Context, account, id string) (string, bool) {
	text, ok, err := s.cacheService.GetSummary(ctx, account, id)
	if err != nil {
		s.logger.Debug("summary cache lookup failed", zap.String("message_id", id), zap.Error(err))
		return "", false
	}
	return text, ok
}

func (s *AIServiceImpl) cacheSaveSummary(ctx context.Context, account, id, text string) {
	if err := s.cacheService.SaveSummary(ctx, account, id, text); err != nil {
		s.logger.Warn("summary cache save failed", zap.String("message_id", id), zap.Error(err))
	}
}

func (s *AIServiceImpl) cacheGetReply(ctx context.Context, account, id string) (string, bool) {
	text, ok, err := s.cacheService.GetReply(ctx, account, id)
	if err != nil {
		s.logger.Debug("reply cache lookup failed", zap.String("message_id", id), zap.Error(err))
		return "", false
	}
	return text, ok
}

func (s *AIServiceImpl) cacheSaveReply(ctx context.Context, account, id, text string) {
	if err := s.cacheService.SaveReply(ctx, account, id, text); err != nil {
		s.logger.Warn("reply cache save failed", zap.String("message_id", id), zap.Error(err))
	}
}
