package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Ranjiththeeti/harass/internal/models"
	"github.com/Ranjiththeeti/harass/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// ListLimit caps the number of messages returned by List
	ListLimit = 100
	// RecentFlaggedLimit caps the flagged messages included in analytics
	RecentFlaggedLimit = 10
)

// Classifier produces a verdict for message text and never fails
type Classifier interface {
	Classify(ctx context.Context, text string) models.Verdict
}

// Moderator handles the message operations
type Moderator struct {
	classifier Classifier
	repo       repository.MessageRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewModerator creates a new moderator service
func NewModerator(
	classifier Classifier,
	repo repository.MessageRepository,
	logger *zap.Logger,
) *Moderator {
	return &Moderator{
		classifier: classifier,
		repo:       repo,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateMessage classifies content and stores it
func (m *Moderator) CreateMessage(ctx context.Context, content string) (*models.Message, error) {
	verdict := m.classifier.Classify(ctx, content)

	message := &models.Message{
		ID:             uuid.New().String(),
		Content:        content,
		// Stores keep microseconds; truncating keeps the returned record identical to a re-read
		Timestamp:      m.now().UTC().Truncate(time.Microsecond),
		IsFlagged:      verdict.IsFlagged,
		SafetyScore:    verdict.SafetyScore,
		HarassmentType: verdict.HarassmentType,
		FlaggedReason:  verdict.FlaggedReason,
	}

	if err := m.repo.Insert(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	m.logger.Info("Message stored",
		zap.String("id", message.ID),
		zap.Bool("is_flagged", message.IsFlagged))

	return message, nil
}

// ListMessages returns the most recent messages, newest first
func (m *Moderator) ListMessages(ctx context.Context) ([]*models.Message, error) {
	messages, err := m.repo.Find(ctx, repository.Filter{}, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// GetAnalytics summarises stored messages
func (m *Moderator) GetAnalytics(ctx context.Context) (*models.Analytics, error) {
	total, err := m.repo.Count(ctx, repository.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	flagged, err := m.repo.Count(ctx, repository.Flagged())
	if err != nil {
		return nil, fmt.Errorf("failed to count flagged messages: %w", err)
	}

	byType, err := m.repo.CountByHarassmentType(ctx)
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]int64, len(models.HarassmentTypes))
	for _, t := range models.HarassmentTypes {
		breakdown[models.CategoryNames[t]] = byType[t]
	}

	recent, err := m.repo.Find(ctx, repository.Flagged(), RecentFlaggedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent flagged messages: %w", err)
	}

	return &models.Analytics{
		TotalMessages:         total,
		FlaggedMessages:       flagged,
		SafetyPercentage:      SafetyPercentage(total, flagged),
		HarassmentBreakdown:   breakdown,
		RecentFlaggedMessages: recent,
	}, nil
}

// ClearMessages deletes every stored message and returns how many were removed
func (m *Moderator) ClearMessages(ctx context.Context) (int64, error) {
	deleted, err := m.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear messages: %w", err)
	}

	m.logger.Info("Messages cleared", zap.Int64("deleted", deleted))
	return deleted, nil
}

// SafetyPercentage is the share of unflagged messages, rounded to one
// decimal. An empty store yields 0.
func SafetyPercentage(total, flagged int64) float64 {
	denominator := total
	if denominator < 1 {
		denominator = 1
	}
	pct := float64(total-flagged) / float64(denominator) * 100
	return math.Round(pct*10) / 10
}
