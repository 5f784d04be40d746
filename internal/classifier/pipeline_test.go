package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ranjiththeeti/harass/internal/metrics"
	"github.com/Ranjiththeeti/harass/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAdapter struct {
	mock.Mock
}

func (m *mockAdapter) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	args := m.Called(ctx, systemPrompt, userText)
	return args.String(0), args.Error(1)
}

type panicAdapter struct{}

func (panicAdapter) Complete(context.Context, string, string) (string, error) {
	panic("boom")
}

type slowAdapter struct{}

func (slowAdapter) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newTestPipeline(adapter Adapter, m *metrics.Metrics) *Pipeline {
	return NewPipeline(adapter, Config{}, m, zap.NewNop())
}

func TestPipeline_ModelVerdictUsed(t *testing.T) {
	adapter := new(mockAdapter)
	adapter.On("Complete", mock.Anything, SystemInstruction, BuildPrompt("I know where you live")).
		Return(`{"is_flagged": true, "safety_score": 0.1, "harassment_type": "threats", "flagged_reason": "Implied threat"}`, nil).
		Once()

	v := newTestPipeline(adapter, nil).Classify(context.Background(), "I know where you live")

	assert.True(t, v.IsFlagged)
	assert.Equal(t, 0.1, v.SafetyScore)
	require.NotNil(t, v.HarassmentType)
	assert.Equal(t, models.Threats, *v.HarassmentType)
	adapter.AssertExpectations(t)
}

func TestPipeline_SafeMessage(t *testing.T) {
	adapter := new(mockAdapter)
	adapter.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"is_flagged": false, "safety_score": 1.0, "harassment_type": null, "flagged_reason": null}`, nil)

	v := newTestPipeline(adapter, nil).Classify(context.Background(), "Thank you for your help")

	assert.Equal(t, models.SafeVerdict(), v)
}

func TestPipeline_KeywordOverridesSafeModel(t *testing.T) {
	adapter := new(mockAdapter)
	adapter.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"is_flagged": false, "safety_score": 1.0}`, nil)

	v := newTestPipeline(adapter, nil).Classify(context.Background(), "you're so annoying")

	assert.True(t, v.IsFlagged)
	assert.Equal(t, 0.3, v.SafetyScore)
	require.NotNil(t, v.HarassmentType)
	assert.Equal(t, models.Bullying, *v.HarassmentType)
	require.NotNil(t, v.FlaggedReason)
	assert.Contains(t, *v.FlaggedReason, "annoying")
}

func TestPipeline_FailureIgnoresKeywords(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		err    error
	}{
		{"adapter error", "", errors.New("timeout")},
		{"malformed answer", "not json at all", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := new(mockAdapter)
			adapter.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(tt.answer, tt.err)

			m := metrics.New()
			v := newTestPipeline(adapter, m).Classify(context.Background(), "you are stupid")

			assert.Equal(t, models.SafeVerdict(), v)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Classifications.WithLabelValues(metrics.OutcomeFallback)))
			assert.Equal(t, 0.0, testutil.ToFloat64(m.Classifications.WithLabelValues(metrics.OutcomeKeywordOverride)))
		})
	}
}

func TestPipeline_FailuresFallBackToSafe(t *testing.T) {
	tests := []struct {
		name    string
		adapter Adapter
	}{
		{"adapter error", func() Adapter {
			a := new(mockAdapter)
			a.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))
			return a
		}()},
		{"prose answer", func() Adapter {
			a := new(mockAdapter)
			a.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("This message looks fine to me.", nil)
			return a
		}()},
		{"out of range score", func() Adapter {
			a := new(mockAdapter)
			a.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(`{"is_flagged": false, "safety_score": 7}`, nil)
			return a
		}()},
		{"panic", panicAdapter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			v := newTestPipeline(tt.adapter, m).Classify(context.Background(), "Have a nice day")

			assert.Equal(t, models.SafeVerdict(), v)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Classifications.WithLabelValues(metrics.OutcomeFallback)))
		})
	}
}

func TestPipeline_TimeoutFallsBackToSafe(t *testing.T) {
	p := NewPipeline(slowAdapter{}, Config{Timeout: 20 * time.Millisecond}, nil, zap.NewNop())

	start := time.Now()
	v := p.Classify(context.Background(), "hello there")

	assert.Equal(t, models.SafeVerdict(), v)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPipeline_SingleCallPerMessage(t *testing.T) {
	adapter := new(mockAdapter)
	adapter.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("rate limited")).
		Once()

	newTestPipeline(adapter, nil).Classify(context.Background(), "hello")

	adapter.AssertNumberOfCalls(t, "Complete", 1)
}

func TestPipeline_ScoreAlwaysInRange(t *testing.T) {
	answers := []string{
		`{"is_flagged": true, "safety_score": 0.0, "harassment_type": "hate_speech", "flagged_reason": "Slur"}`,
		`{"is_flagged": false, "safety_score": 1.0}`,
		`{"is_flagged": false, "safety_score": 1.01}`,
		`{"is_flagged": true, "safety_score": -1, "harassment_type": "toxic", "flagged_reason": "x"}`,
		"not json",
	}

	for _, answer := range answers {
		adapter := new(mockAdapter)
		adapter.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(answer, nil)

		v := newTestPipeline(adapter, nil).Classify(context.Background(), "some text")

		assert.GreaterOrEqual(t, v.SafetyScore, 0.0, answer)
		assert.LessOrEqual(t, v.SafetyScore, 1.0, answer)
		if v.IsFlagged {
			assert.NotNil(t, v.HarassmentType, answer)
			assert.NotNil(t, v.FlaggedReason, answer)
		} else {
			assert.Nil(t, v.HarassmentType, answer)
			assert.Nil(t, v.FlaggedReason, answer)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "Analyze this message for harassment: 'hi'", BuildPrompt("hi"))
}
