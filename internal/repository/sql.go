package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Ranjiththeeti/harass/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const messageColumns = `id, content, timestamp, is_flagged, safety_score, harassment_type, flagged_reason`

// messageRow is the SQL shape of a stored message
type messageRow struct {
	ID             string         `db:"id"`
	Content        string         `db:"content"`
	Timestamp      string         `db:"timestamp"`
	IsFlagged      bool           `db:"is_flagged"`
	SafetyScore    float64        `db:"safety_score"`
	HarassmentType sql.NullString `db:"harassment_type"`
	FlaggedReason  sql.NullString `db:"flagged_reason"`
}

func (r messageRow) toStored() storedMessage {
	s := storedMessage{
		ID:          r.ID,
		Content:     r.Content,
		Timestamp:   r.Timestamp,
		IsFlagged:   r.IsFlagged,
		SafetyScore: r.SafetyScore,
	}
	if r.HarassmentType.Valid {
		s.HarassmentType = &r.HarassmentType.String
	}
	if r.FlaggedReason.Valid {
		s.FlaggedReason = &r.FlaggedReason.String
	}
	return s
}

type sqlMessageRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSQLiteRepository opens (creating if needed) a SQLite database file
func NewSQLiteRepository(dbPath string, logger *zap.Logger) (MessageRepository, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	if err := migrateUp(db.DB, dialectSQLite, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("SQLite message repository initialized", zap.String("db_path", dbPath))

	return &sqlMessageRepository{db: db, logger: logger}, nil
}

// NewPostgresRepository connects to PostgreSQL and runs migrations
func NewPostgresRepository(dataSourceName string, logger *zap.Logger) (MessageRepository, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrateUp(db.DB, dialectPostgres, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Successfully connected to the database!")

	return &sqlMessageRepository{db: db, logger: logger}, nil
}

// where renders the filter with ? placeholders
func (f Filter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Flagged != nil {
		conds = append(conds, "is_flagged = ?")
		args = append(args, *f.Flagged)
	}
	if f.HarassmentType != nil {
		conds = append(conds, "harassment_type = ?")
		args = append(args, string(*f.HarassmentType))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *sqlMessageRepository) Insert(ctx context.Context, msg *models.Message) error {
	s := toStored(msg)
	query := r.db.Rebind(`INSERT INTO messages (` + messageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Content,
		s.Timestamp,
		s.IsFlagged,
		s.SafetyScore,
		s.HarassmentType,
		s.FlaggedReason,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

func (r *sqlMessageRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := filter.where()

	var count int64
	if err := r.db.GetContext(ctx, &count, r.db.Rebind("SELECT COUNT(*) FROM messages"+where), args...); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return count, nil
}

func (r *sqlMessageRepository) CountByHarassmentType(ctx context.Context) (map[models.HarassmentType]int64, error) {
	query := `
		SELECT harassment_type, COUNT(*) AS count
		FROM messages
		WHERE harassment_type IS NOT NULL
		GROUP BY harassment_type
	`

	var rows []struct {
		HarassmentType string `db:"harassment_type"`
		Count          int64  `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count messages by type: %w", err)
	}

	counts := make(map[models.HarassmentType]int64, len(rows))
	for _, row := range rows {
		counts[models.HarassmentType(row.HarassmentType)] = row.Count
	}

	return counts, nil
}

func (r *sqlMessageRepository) Find(ctx context.Context, filter Filter, limit int) ([]*models.Message, error) {
	where, args := filter.where()
	query := "SELECT " + messageColumns + " FROM messages" + where + " ORDER BY timestamp DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	messages := make([]*models.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := row.toStored().toModel()
		if err != nil {
			r.logger.Error("Failed to decode message", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (r *sqlMessageRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM messages")
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count: %w", err)
	}

	return deleted, nil
}

func (r *sqlMessageRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *sqlMessageRepository) Close() error {
	return r.db.Close()
}
