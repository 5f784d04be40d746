package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ranjiththeeti/harass/internal/gemini"
	"github.com/Ranjiththeeti/harass/internal/openai"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrRateLimitWait is returned when a request gives up waiting for the local
// rate limiter. The provider itself was never called.
var ErrRateLimitWait = errors.New("rate limit wait cancelled")

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderGemini     ProviderType = "gemini"
	ProviderOpenAI     ProviderType = "openai"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
)

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type      ProviderType  `yaml:"type"`
	APIKey    string        `yaml:"api_key"`
	ModelName string        `yaml:"model_name"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	// Rate limiting per provider, 0 means unlimited
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Provider sends a system prompt and a user text to a model and returns the
// raw model output.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

// NewProvider builds the client for one configured provider
func NewProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Type {
	case ProviderGemini:
		return gemini.NewClient(gemini.Config{
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
		}, logger)
	case ProviderOpenAI, ProviderGroq, ProviderOpenRouter:
		return openai.NewClient(openai.Config{
			Provider:  string(cfg.Type),
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

// RateLimitedProvider wraps a provider with a token bucket
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewRateLimitedProvider wraps a provider with rate limiting
func NewRateLimitedProvider(provider Provider, requestsPerMinute int, logger *zap.Logger) *RateLimitedProvider {
	limit := rate.Inf
	burst := 1
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
		burst = requestsPerMinute
	}

	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
}

func (p *RateLimitedProvider) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRateLimitWait, err)
	}

	return p.provider.Complete(ctx, systemPrompt, userText)
}

func (p *RateLimitedProvider) Close() error {
	return p.provider.Close()
}

func (p *RateLimitedProvider) GetModelInfo() map[string]interface{} {
	return p.provider.GetModelInfo()
}
