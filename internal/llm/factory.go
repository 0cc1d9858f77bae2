package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Options carries the provider fields from the llm config section
type Options struct {
	Provider string
	Model    string
	Endpoint string
	Region   string
	APIKey   string
	Timeout  time.Duration
}

// NewProviderFromConfig creates a Provider from config fields. For gemini the
// API key falls back to GEMINI_API_KEY; a missing key yields ErrMissingAPIKey.
func NewProviderFromConfig(ctx context.Context, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "gemini", "":
		key := opts.APIKey
		if strings.TrimSpace(key) == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		g, err := NewGemini(ctx, key, opts.Model, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "ollama":
		return NewOllama(opts.Endpoint, opts.Model, opts.Timeout), nil
	case "bedrock":
		region := opts.Region
		if strings.TrimSpace(region) == "" {
			region = os.Getenv("AWS_REGION")
		}
		b, err := NewBedrock(ctx, region, opts.Model, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
