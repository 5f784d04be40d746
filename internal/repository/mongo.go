package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Ranjiththeeti/harass/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const messagesCollection = "messages"

// messageDocument is the MongoDB shape of a stored message. The timestamp is
// kept as an ISO-8601 string, matching the SQL stores.
type messageDocument struct {
	ID             string  `bson:"id"`
	Content        string  `bson:"content"`
	Timestamp      string  `bson:"timestamp"`
	IsFlagged      bool    `bson:"is_flagged"`
	SafetyScore    float64 `bson:"safety_score"`
	HarassmentType *string `bson:"harassment_type"`
	FlaggedReason  *string `bson:"flagged_reason"`
}

type mongoMessageRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoRepository connects to MongoDB and ensures the timestamp index
func NewMongoRepository(ctx context.Context, uri, dbName string, logger *zap.Logger) (MessageRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	collection := client.Database(dbName).Collection(messagesCollection)

	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "is_flagged", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "harassment_type", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Info("MongoDB message repository initialized", zap.String("database", dbName))

	return &mongoMessageRepository{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// bsonFilter renders the filter as a MongoDB query document
func (f Filter) bsonFilter() bson.M {
	filter := bson.M{}
	if f.Flagged != nil {
		filter["is_flagged"] = *f.Flagged
	}
	if f.HarassmentType != nil {
		filter["harassment_type"] = string(*f.HarassmentType)
	}
	return filter
}

func (r *mongoMessageRepository) Insert(ctx context.Context, msg *models.Message) error {
	s := toStored(msg)
	doc := messageDocument(s)

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

func (r *mongoMessageRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, filter.bsonFilter())
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func (r *mongoMessageRepository) CountByHarassmentType(ctx context.Context) (map[models.HarassmentType]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"harassment_type": bson.M{"$ne": nil}}}},
		{{Key: "$group", Value: bson.M{"_id": "$harassment_type", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages by type: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		HarassmentType string `bson:"_id"`
		Count          int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode type counts: %w", err)
	}

	counts := make(map[models.HarassmentType]int64, len(groups))
	for _, g := range groups {
		counts[models.HarassmentType(g.HarassmentType)] = g.Count
	}

	return counts, nil
}

func (r *mongoMessageRepository) Find(ctx context.Context, filter Filter, limit int) ([]*models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter.bsonFilter(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	messages := make([]*models.Message, 0, len(docs))
	for _, doc := range docs {
		msg, err := storedMessage(doc).toModel()
		if err != nil {
			r.logger.Error("Failed to decode message", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (r *mongoMessageRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoMessageRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *mongoMessageRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
