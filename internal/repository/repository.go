package repository

import (
	"context"
	"fmt"

	"github.com/Ranjiththeeti/harass/internal/models"

	"go.uber.org/zap"
)

// Filter narrows counts and finds. Zero value matches every message.
type Filter struct {
	Flagged        *bool
	HarassmentType *models.HarassmentType
}

// Flagged matches flagged messages only
func Flagged() Filter {
	flagged := true
	return Filter{Flagged: &flagged}
}

// OfType matches messages of one harassment category
func OfType(t models.HarassmentType) Filter {
	return Filter{HarassmentType: &t}
}

// MessageRepository stores classified messages. Find results are ordered by
// timestamp, newest first.
type MessageRepository interface {
	Insert(ctx context.Context, msg *models.Message) error
	Count(ctx context.Context, filter Filter) (int64, error)
	CountByHarassmentType(ctx context.Context) (map[models.HarassmentType]int64, error)
	Find(ctx context.Context, filter Filter, limit int) ([]*models.Message, error)
	DeleteAll(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a store
type Options struct {
	Type string // "sqlite", "postgres" or "mongo"
	Path string
	URL  string
	Name string
}

// New opens the configured store and prepares its schema
func New(ctx context.Context, opts Options, logger *zap.Logger) (MessageRepository, error) {
	switch opts.Type {
	case "sqlite":
		return NewSQLiteRepository(opts.Path, logger)
	case "postgres":
		return NewPostgresRepository(opts.URL, logger)
	case "mongo":
		return NewMongoRepository(ctx, opts.URL, opts.Name, logger)
	default:
		return nil, fmt.Errorf("unsupported database type %q", opts.Type)
	}
}

// storedMessage is the persisted layout shared by every backend
type storedMessage struct {
	ID             string
	Content        string
	Timestamp      string
	IsFlagged      bool
	SafetyScore    float64
	HarassmentType *string
	FlaggedReason  *string
}

func toStored(msg *models.Message) storedMessage {
	s := storedMessage{
		ID:            msg.ID,
		Content:       msg.Content,
		Timestamp:     models.FormatTimestamp(msg.Timestamp),
		IsFlagged:     msg.IsFlagged,
		SafetyScore:   msg.SafetyScore,
		FlaggedReason: msg.FlaggedReason,
	}
	if msg.HarassmentType != nil {
		t := string(*msg.HarassmentType)
		s.HarassmentType = &t
	}
	return s
}

func (s storedMessage) toModel() (*models.Message, error) {
	ts, err := models.ParseTimestamp(s.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q for message %s: %w", s.Timestamp, s.ID, err)
	}

	msg := &models.Message{
		ID:            s.ID,
		Content:       s.Content,
		Timestamp:     ts,
		IsFlagged:     s.IsFlagged,
		SafetyScore:   s.SafetyScore,
		FlaggedReason: s.FlaggedReason,
	}
	if s.HarassmentType != nil {
		t := models.HarassmentType(*s.HarassmentType)
		msg.HarassmentType = &t
	}
	return msg, nil
}
