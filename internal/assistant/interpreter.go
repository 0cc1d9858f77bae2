package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/ajramos/inboxpilot/internal/llm"
	"go.uber.org/zap"
)

// DefaultInterpretPrompt is the routing prompt. {{command}} is replaced with
// the user's text.
const DefaultInterpretPrompt = `You are an AI email assistant command router. A user will type a natural language command about their email.

Your job is to classify the command into one of these actions:
- "fetch_latest": user wants to read or see their most recent emails.
- "delete_email": user wants to delete or remove one or more emails.
- "help": user is asking for help or what commands are available.
- "draft_reply": user wants help drafting or sending a reply.
- "unknown": anything else that does not clearly match.

If the action is "delete_email", you MAY also infer structured delete parameters:
- deleteParams.keyword: a short keyword or phrase to match emails.
- deleteParams.field: either "subject" or "from".

Return STRICTLY a single JSON object with this shape (no extra keys, no explanation text):
{
  "action": "fetch_latest" | "delete_email" | "help" | "draft_reply" | "unknown",
  "deleteParams"?: {
    "keyword": string,
    "field": "subject" | "from"
  }
}

User command: "{{command}}"`

// Strategy is one link of the interpretation chain.
type Strategy interface {
	Name() string
	Interpret(ctx context.Context, command string) (Interpretation, error)
}

// HeuristicStrategy wraps Classify. It never fails.
type HeuristicStrategy struct{}

// Name returns the strategy name
func (HeuristicStrategy) Name() string { return "heuristic" }

// Interpret classifies the command with keyword rules
func (HeuristicStrategy) Interpret(_ context.Context, command string) (Interpretation, error) {
	return Classify(command), nil
}

// ModelStrategy asks a language model to route the command. It issues at most
// one request per call and never retries.
type ModelStrategy struct {
	provider llm.Provider
	template string
}

// NewModelStrategy creates a model strategy. A nil provider makes every call
// fail with ErrNoCredential without touching the network.
func NewModelStrategy(provider llm.Provider, template string) *ModelStrategy {
	if strings.TrimSpace(template) == "" {
		template = DefaultInterpretPrompt
	}
	return &ModelStrategy{provider: provider, template: template}
}

// Name returns the strategy name
func (s *ModelStrategy) Name() string { return "model" }

// Prompt renders the routing prompt for command.
func (s *ModelStrategy) Prompt(command string) string {
	return strings.ReplaceAll(s.template, "{{command}}", command)
}

// Interpret sends the prompt and validates the response.
func (s *ModelStrategy) Interpret(ctx context.Context, command string) (Interpretation, error) {
	if s.provider == nil {
		return Interpretation{}, ErrNoCredential
	}
	text, err := s.provider.Generate(ctx, s.Prompt(command))
	if err != nil {
		return Interpretation{}, err
	}
	return ParseModelOutput(text)
}

// Interpreter runs strategies left to right and returns the first success.
// The last strategy is always the heuristic classifier, so Interpret cannot
// fail.
type Interpreter struct {
	chain  []Strategy
	logger *zap.Logger
}

// NewInterpreter builds the model -> heuristic chain. provider may be nil.
func NewInterpreter(provider llm.Provider, template string) *Interpreter {
	return NewInterpreterChain(NewModelStrategy(provider, template))
}

// NewInterpreterChain builds an interpreter from explicit strategies; the
// heuristic classifier is appended as the final fallback.
func NewInterpreterChain(strategies ...Strategy) *Interpreter {
	chain := make([]Strategy, 0, len(strategies)+1)
	for _, s := range strategies {
		if s != nil {
			chain = append(chain, s)
		}
	}
	chain = append(chain, HeuristicStrategy{})
	return &Interpreter{chain: chain, logger: zap.NewNop()}
}

// SetLogger sets the logger for fallback diagnostics
func (i *Interpreter) SetLogger(logger *zap.Logger) {
	if logger != nil {
		i.logger = logger
	}
}

// Interpret resolves command to an action. It always returns a well-formed
// result.
func (i *Interpreter) Interpret(ctx context.Context, command string) Interpretation {
	for _, s := range i.chain {
		res, err := s.Interpret(ctx, command)
		if err == nil {
			return res.normalize()
		}
		if !errors.Is(err, ErrNoCredential) {
			i.logger.Debug("interpretation strategy failed, falling back",
				zap.String("strategy", s.Name()), zap.Error(err))
		}
	}
	// Unreachable: HeuristicStrategy never fails.
	return Classify(command).normalize()
}
