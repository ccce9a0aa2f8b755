package mongodb

import (
	"context"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ repositories.AnalyticsRepository = (*AnalyticsRepository)(nil)

// AnalyticsRepository is the append-only analytics log
type AnalyticsRepository struct {
	collection *mongo.Collection
}

// NewAnalyticsRepository creates a new AnalyticsRepository
func NewAnalyticsRepository(db *mongo.Database) *AnalyticsRepository {
	return &AnalyticsRepository{
		collection: db.Collection(AnalyticsCollection),
	}
}

// Create appends an event
func (r *AnalyticsRepository) Create(ctx context.Context, event *models.AnalyticsEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.UpdatedAt = event.CreatedAt
	_, err := r.collection.InsertOne(ctx, event)
	return errors.Wrap(err, "insert analytics event")
}

// CountByType counts events of one type created at or after since
func (r *AnalyticsRepository) CountByType(ctx context.Context, eventType models.EventType, since time.Time) (int64, error) {
	filter := sinceFilter(since)
	filter["eventType"] = eventType
	count, err := r.collection.CountDocuments(ctx, filter)
	return count, errors.Wrap(err, "count analytics events")
}

// CountsByType groups events created at or after since by type
func (r *AnalyticsRepository) CountsByType(ctx context.Context, since time.Time) (map[models.EventType]int64, error) {
	pipeline := bson.A{
		bson.M{"$match": sinceFilter(since)},
		bson.M{"$group": bson.M{"_id": "$eventType", "count": bson.M{"$sum": 1}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate analytics events")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		EventType models.EventType `bson:"_id"`
		Count     int64            `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decode analytics counts")
	}

	counts := make(map[models.EventType]int64, len(rows))
	for _, row := range rows {
		counts[row.EventType] = row.Count
	}
	return counts, nil
}

func sinceFilter(since time.Time) bson.M {
	if since.IsZero() {
		return bson.M{}
	}
	return bson.M{"createdAt": bson.M{"$gte": since}}
}
