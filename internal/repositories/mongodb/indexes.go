package mongodb

import (
	"context"

	"github.com/amanora/mall-navigator-backend/internal/repositories"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	StoresCollection    = "stores"
	OffersCollection    = "offers"
	UsersCollection     = "users"
	AnalyticsCollection = "analytics"
)

// EnsureIndexes creates the indexes the repositories rely on. The 2dsphere
// index is required by $geoNear; the unique email index backs signup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		StoresCollection: {
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		},
		OffersCollection: {
			{Keys: bson.D{{Key: "store", Value: 1}, {Key: "isActive", Value: 1}}},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		AnalyticsCollection: {
			{Keys: bson.D{{Key: "eventType", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for collection, indexModels := range specs {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, indexModels); err != nil {
			return errors.Wrapf(err, "create indexes on %s", collection)
		}
	}
	return nil
}

// notFoundOr maps mongo.ErrNoDocuments to repositories.ErrNotFound and wraps anything else
func notFoundOr(err error, msg string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repositories.ErrNotFound
	}
	return errors.Wrap(err, msg)
}
