package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":"  {\"action\":\"help\"}  "}`))
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "llama3.2", time.Second)
	out, err := c.Generate(context.Background(), "route this")
	require.NoError(t, err)
	assert.Equal(t, `{"action":"help"}`, out)
	assert.Equal(t, "llama3.2", got.Model)
	assert.Equal(t, "route this", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, "ollama", c.Name())
}

func TestOllamaGenerate_Errors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()
		_, err := NewOllama(srv.URL, "m", time.Second).Generate(context.Background(), "p")
		assert.Error(t, err)
	})

	t.Run("empty response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response":"   "}`))
		}))
		defer srv.Close()
		_, err := NewOllama(srv.URL, "m", time.Second).Generate(context.Background(), "p")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestNewOllama_DefaultEndpoint(t *testing.T) {
	c := NewOllama("", "m", time.Second)
	assert.Equal(t, "http://localhost:11434/api/generate", c.Endpoint)
}

type fakeInvoker struct {
	body  []byte
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockGenerate(t *testing.T) {
	inv := &fakeInvoker{body: []byte(`{"content":[{"type":"text","text":" hello "}]}`)}
	b := &BedrockClient{Model: "anthropic.claude-3-haiku-20240307-v1", svc: inv}

	out, err := b.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", *inv.input.ModelId)
}

func TestBedrockGenerate_UnsupportedFamily(t *testing.T) {
	b := &BedrockClient{Model: "meta.llama3", svc: &fakeInvoker{}}
	_, err := b.Generate(context.Background(), "hi")
	assert.Error(t, err)
}

func TestBedrockGenerate_AnnotatesInvalidModel(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("ValidationException: The provided model identifier is invalid")}
	b := &BedrockClient{Model: "anthropic.claude-x", svc: inv}
	_, err := b.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Hint:")
}

func TestDetectBedrockFamily(t *testing.T) {
	assert.Equal(t, "anthropic", detectBedrockFamily("us.anthropic.claude-3-5-haiku"))
	assert.Equal(t, "meta", detectBedrockFamily("meta.llama3"))
	assert.Equal(t, "titan", detectBedrockFamily("amazon.titan-text"))
	assert.Equal(t, "", detectBedrockFamily("mistral.large"))
}

func TestNewProviderFromConfig(t *testing.T) {
	t.Run("gemini without key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		p, err := NewProviderFromConfig(context.Background(), Options{Provider: "gemini"})
		assert.Nil(t, p)
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("ollama", func(t *testing.T) {
		p, err := NewProviderFromConfig(context.Background(), Options{Provider: "ollama", Model: "m"})
		require.NoError(t, err)
		assert.Equal(t, "ollama", p.Name())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewProviderFromConfig(context.Background(), Options{Provider: "openai"})
		assert.Error(t, err)
	})
}
