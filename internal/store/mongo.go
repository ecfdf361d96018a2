package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/media-reviews/backend/internal/models"
)

// AuditStore appends and reads audit events in MongoDB.
type AuditStore struct {
	col *mongo.Collection
}

func NewAuditStore(db *mongo.Database) *AuditStore {
	return &AuditStore{col: db.Collection("audit_events")}
}

// EnsureIndexes creates the descending time index Recent sorts on.
func (s *AuditStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo index: %w", err)
	}
	return nil
}

func (s *AuditStore) Insert(ctx context.Context, ev *models.AuditEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	res, err := s.col.InsertOne(ctx, ev)
	if err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		ev.ID = oid
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int64) ([]models.AuditEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []models.AuditEvent{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
