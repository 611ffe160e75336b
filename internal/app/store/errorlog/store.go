// internal/app/store/errorlog/store.go
package errorlog

import (
	"context"
	"time"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is where error log documents are kept.
const Collection = "error_logs"

// Store appends ErrorLog documents.
type Store struct {
	c *mongo.Collection
}

// New creates a new error log Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// EnsureIndexes creates the created_at index used by Recent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}},
		Options: options.Index().SetName("idx_errorlog_created"),
	})
	return err
}

// Insert appends entry, assigning its ID and CreatedAt when unset.
func (s *Store) Insert(ctx context.Context, entry models.ErrorLog) (models.ErrorLog, error) {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, entry); err != nil {
		return models.ErrorLog{}, err
	}
	return entry, nil
}

// Recent returns the newest entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int64) ([]models.ErrorLog, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ErrorLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
