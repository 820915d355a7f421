package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"weeklyreport/config"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Generator turns article text into a short summary
type Generator interface {
	Generate(ctx context.Context, text string, sentences int) (string, error)
	Name() string
}

// ErrEmptyResponse is returned when a provider answers with no text
var ErrEmptyResponse = errors.New("empty response from text generator")

// Prompt builds the instruction sent to the model
func Prompt(text string, sentences int) string {
	return fmt.Sprintf("Summarize the following article in %d sentences as a coherent paragraph:\n\n%s", sentences, text)
}

// NewGenerator picks the generator once at startup. A missing credential
// falls back to Passthrough with a warning.
func NewGenerator(cfg *config.Config, getenv config.Getenv, log *slog.Logger) Generator {
	switch cfg.LLMProvider {
	case config.ProviderNone:
		log.Info("Text generation disabled; summaries pass article text through")
		return Passthrough{}
	case config.ProviderCohere:
		key := strings.TrimSpace(getenv("COHERE_API_KEY"))
		if key == "" {
			log.Warn("COHERE_API_KEY not set; summaries pass article text through")
			return Passthrough{}
		}
		return NewCohereGenerator(key, cfg.LLMModel, cfg.Timeout(), nil)
	default:
		key := strings.TrimSpace(getenv("OPENAI_API_KEY"))
		if key == "" {
			log.Warn("OPENAI_API_KEY not set; summaries pass article text through")
			return Passthrough{}
		}
		return NewOpenAIGenerator(key, cfg.LLMModel, cfg.Timeout())
	}
}

// Passthrough returns the input text unchanged
type Passthrough struct{}

func (Passthrough) Name() string { return "passthrough" }

func (Passthrough) Generate(_ context.Context, text string, _ int) (string, error) {
	return text, nil
}

// OpenAIGenerator uses the OpenAI chat completions API
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIGenerator creates an OpenAI-backed generator
func NewOpenAIGenerator(apiKey, model string, timeout time.Duration, opts ...option.RequestOption) *OpenAIGenerator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIGenerator{client: &client, model: model, timeout: timeout}
}

func (g *OpenAIGenerator) Name() string { return "openai:" + g.model }

func (g *OpenAIGenerator) Generate(ctx context.Context, text string, sentences int) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(Prompt(text, sentences)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// CohereGenerator uses the Cohere chat API
type CohereGenerator struct {
	client  *cohereclient.Client
	model   string
	timeout time.Duration
}

// NewCohereGenerator creates a Cohere-backed generator. httpClient may be nil.
func NewCohereGenerator(apiKey, model string, timeout time.Duration, httpClient *http.Client) *CohereGenerator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = "command-r"
	}
	return &CohereGenerator{client: client, model: model, timeout: timeout}
}

func (g *CohereGenerator) Name() string { return "cohere:" + g.model }

func (g *CohereGenerator) Generate(ctx context.Context, text string, sentences int) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	model := g.model
	resp, err := g.client.Chat(ctx, &cohere.ChatRequest{
		Message: Prompt(text, sentences),
		Model:   &model,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Text), nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
