package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrNoProviderAvailable is returned when every provider's circuit is open
var ErrNoProviderAvailable = errors.New("no llm provider available")

// MultiProviderConfig holds configuration for multiple providers
type MultiProviderConfig struct {
	Providers []ProviderConfig
	// Consecutive failures that open a provider's circuit
	MaxFailures uint32
	// How long an open circuit stays open before a trial request
	OpenTimeout time.Duration
}

type breakerProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// MultiProviderClient sends each request to the first provider whose circuit
// is not open. A request is never repeated on another provider; failures only
// move later requests along the list.
type MultiProviderClient struct {
	providers []breakerProvider
	logger    *zap.Logger
}

// NewMultiProviderClient builds every configured provider. Providers that fail
// to initialise are skipped.
func NewMultiProviderClient(cfg MultiProviderConfig, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}

	providers := make([]Provider, 0, len(cfg.Providers))
	for i, providerCfg := range cfg.Providers {
		provider, err := NewProvider(providerCfg, logger)
		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		providers = append(providers, NewRateLimitedProvider(provider, providerCfg.RequestsPerMinute, logger))

		logger.Info("Provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.String("model", providerCfg.ModelName),
			zap.Int("rate_limit", providerCfg.RequestsPerMinute),
			zap.Int("index", i))
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers could be initialized")
	}

	return NewMultiProviderClientFrom(providers, cfg, logger), nil
}

// NewMultiProviderClientFrom wraps already built providers
func NewMultiProviderClientFrom(providers []Provider, cfg MultiProviderConfig, logger *zap.Logger) *MultiProviderClient {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}

	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = time.Minute
	}

	client := &MultiProviderClient{
		providers: make([]breakerProvider, 0, len(providers)),
		logger:    logger,
	}

	for i, p := range providers {
		name := fmt.Sprintf("provider-%d", i)
		if t, ok := p.GetModelInfo()["provider"].(string); ok {
			name = fmt.Sprintf("%s-%d", t, i)
		}

		maxFailures := cfg.MaxFailures
		settings := gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			// A caller hanging up or our own limiter says nothing about the provider
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrRateLimitWait)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Provider circuit state changed",
					zap.String("provider", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}

		client.providers = append(client.providers, breakerProvider{
			provider: p,
			breaker:  gobreaker.NewCircuitBreaker(settings),
		})
	}

	return client
}

// Complete sends the prompt to the first available provider, once
func (c *MultiProviderClient) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	for i, bp := range c.providers {
		if bp.breaker.State() == gobreaker.StateOpen {
			continue
		}

		result, err := bp.breaker.Execute(func() (interface{}, error) {
			return bp.provider.Complete(ctx, systemPrompt, userText)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Another request holds the half-open trial slot
			continue
		}
		if err != nil {
			c.logger.Error("Provider failed",
				zap.String("provider", bp.breaker.Name()),
				zap.Int("provider_index", i),
				zap.Error(err))
			return "", fmt.Errorf("%s: %w", bp.breaker.Name(), err)
		}

		return result.(string), nil
	}

	return "", ErrNoProviderAvailable
}

// Close closes all providers
func (c *MultiProviderClient) Close() error {
	var errs []error
	for i, bp := range c.providers {
		if err := bp.provider.Close(); err != nil {
			c.logger.Error("Failed to close provider",
				zap.Int("index", i),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetModelInfo describes the provider that would serve the next request
func (c *MultiProviderClient) GetModelInfo() map[string]interface{} {
	for i, bp := range c.providers {
		if bp.breaker.State() == gobreaker.StateOpen {
			continue
		}
		info := bp.provider.GetModelInfo()
		info["provider_index"] = i
		info["total_providers"] = len(c.providers)
		return info
	}

	return map[string]interface{}{
		"provider":        "none",
		"model":           "unknown",
		"total_providers": len(c.providers),
	}
}

// GetProvidersInfo returns information about all providers
func (c *MultiProviderClient) GetProvidersInfo() []map[string]interface{} {
	info := make([]map[string]interface{}, len(c.providers))
	for i, bp := range c.providers {
		providerInfo := bp.provider.GetModelInfo()
		providerInfo["circuit"] = bp.breaker.State().String()
		info[i] = providerInfo
	}
	return info
}
