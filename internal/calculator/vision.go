package calculator

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultVisionTimeout   = 60 * time.Second
	defaultVisionMaxTokens = 1024
)

// provider base URLs for OpenAI-compatible chat completion endpoints.
var providerBaseURLs = map[string]string{
	"gemini":     "https://generativelanguage.googleapis.com/v1beta/openai",
	"openrouter": "https://openrouter.ai/api/v1",
	"ollama":     "http://localhost:11434/v1",
}

// VisionConfig selects the model behind VisionAnalyzer.
type VisionConfig struct {
	Provider  string // gemini, openai, openrouter, ollama, or any name with BaseURL
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// VisionAnalyzer asks a multimodal chat model to read the canvas.
type VisionAnalyzer struct {
	client    *openai.Client
	model     string
	provider  string
	timeout   time.Duration
	maxTokens int
	logger    *zap.Logger
}

// NewVisionAnalyzer builds an analyzer for cfg. It returns
// ErrAnalyzerUnavailable when the provider needs an API key and none is set.
func NewVisionAnalyzer(cfg VisionConfig, logger *zap.Logger) (*VisionAnalyzer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "openai"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: model name is empty", ErrAnalyzerUnavailable)
	}
	if cfg.APIKey == "" && provider != "ollama" {
		return nil, fmt.Errorf("%w: %s requires an API key", ErrAnalyzerUnavailable, provider)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	case providerBaseURLs[provider] != "":
		clientConfig.BaseURL = providerBaseURLs[provider]
	case provider != "openai":
		return nil, fmt.Errorf("%w: provider %s needs a base URL", ErrAnalyzerUnavailable, provider)
	}
	clientConfig.HTTPClient = newHTTPClient()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultVisionTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultVisionMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VisionAnalyzer{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		provider:  provider,
		timeout:   timeout,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

// Analyze sends the image and prompt to the model and parses its reply.
func (a *VisionAnalyzer) Analyze(ctx context.Context, png []byte, vars map[string]string) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: buildPrompt(vars),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrUnparseableAnswer)
	}

	content := resp.Choices[0].Message.Content
	a.logger.Debug("vision model replied",
		zap.String("provider", a.provider),
		zap.String("model", a.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
		zap.Int("reply_length", len(content)),
	)

	return ParseAnswers(content)
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 120 * time.Second,
		},
	}
}
