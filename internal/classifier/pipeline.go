package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/Ranjiththeeti/harass/internal/metrics"
	"github.com/Ranjiththeeti/harass/internal/models"

	"go.uber.org/zap"
)

// Adapter is the language model the pipeline asks for a verdict
type Adapter interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Config for the classification pipeline
type Config struct {
	// Timeout bounds a single model call, 0 means the caller's deadline only
	Timeout  time.Duration
	Keywords []string
}

// Pipeline turns message text into a Verdict
type Pipeline struct {
	adapter  Adapter
	override *KeywordOverride
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewPipeline creates a classification pipeline
func NewPipeline(adapter Adapter, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		adapter:  adapter,
		override: NewKeywordOverride(cfg.Keywords),
		timeout:  cfg.Timeout,
		metrics:  m,
		logger:   logger,
	}
}

// Classify always returns a verdict. Any model or parsing failure resolves to
// models.SafeVerdict. The keyword override only corrects verdicts the model
// actually returned.
func (p *Pipeline) Classify(ctx context.Context, text string) models.Verdict {
	verdict, err := p.analyze(ctx, text)
	outcome := outcomeOf(verdict)
	if err != nil {
		p.logger.Error("Classification failed, using safe default", zap.Error(err))
		verdict = models.SafeVerdict()
		outcome = metrics.OutcomeFallback
	} else if overridden, ok := p.override.Apply(verdict, text); ok {
		p.logger.Warn("Model missed harassment keyword, overriding verdict",
			zap.Stringp("reason", overridden.FlaggedReason))
		verdict = overridden
		outcome = metrics.OutcomeKeywordOverride
	}

	p.metrics.ObserveClassification(outcome)

	p.logger.Info("Message classified",
		zap.Bool("is_flagged", verdict.IsFlagged),
		zap.Float64("safety_score", verdict.SafetyScore),
		zap.String("outcome", outcome))

	return verdict
}

// analyze asks the model once and parses its answer
func (p *Pipeline) analyze(ctx context.Context, text string) (verdict models.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classification panicked: %v", r)
		}
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := p.adapter.Complete(ctx, SystemInstruction, BuildPrompt(text))
	p.metrics.ObserveAdapterCall(start, err)
	if err != nil {
		return models.Verdict{}, fmt.Errorf("llm call failed: %w", err)
	}

	p.logger.Debug("Model response", zap.String("raw", raw))

	verdict, err = ParseVerdict(raw)
	if err != nil {
		p.logger.Error("Failed to parse model response",
			zap.Error(err),
			zap.String("original_response", raw))
		return models.Verdict{}, err
	}

	return verdict, nil
}

func outcomeOf(v models.Verdict) string {
	if v.IsFlagged {
		return metrics.OutcomeFlagged
	}
	return metrics.OutcomeSafe
}
