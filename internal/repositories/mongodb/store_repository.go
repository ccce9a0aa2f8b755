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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure StoreRepository implements the interface
var _ repositories.StoreRepository = (*StoreRepository)(nil)

// StoreRepository handles MongoDB operations for Store
type StoreRepository struct {
	collection *mongo.Collection
}

// NewStoreRepository creates a new StoreRepository
func NewStoreRepository(db *mongo.Database) *StoreRepository {
	return &StoreRepository{
		collection: db.Collection(StoresCollection),
	}
}

// Create inserts a new store
func (r *StoreRepository) Create(ctx context.Context, store *models.Store) error {
	store.ID = primitive.NewObjectID()
	store.CreatedAt = time.Now()
	store.UpdatedAt = store.CreatedAt
	_, err := r.collection.InsertOne(ctx, store)
	return errors.Wrap(err, "insert store")
}

// FindByID finds a store by ID
func (r *StoreRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Store, error) {
	var store models.Store
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&store)
	if err != nil {
		return nil, notFoundOr(err, "find store")
	}
	return &store, nil
}

// FindByIDs finds every store whose id is in ids
func (r *StoreRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Store, error) {
	if len(ids) == 0 {
		return []*models.Store{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// FindAll retrieves all stores ordered by name
func (r *StoreRepository) FindAll(ctx context.Context) ([]*models.Store, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *StoreRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*models.Store, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "find stores")
	}
	defer cursor.Close(ctx)

	var stores []*models.Store
	if err = cursor.All(ctx, &stores); err != nil {
		return nil, errors.Wrap(err, "decode stores")
	}
	if stores == nil {
		stores = []*models.Store{}
	}
	return stores, nil
}

// FindNear runs a $geoNear aggregation against the 2dsphere index on location.
// Results come back nearest first with the distance in meters. $geoNear
// rejects points outside WGS84 bounds; no stored store can lie there, so such
// points match nothing.
func (r *StoreRepository) FindNear(ctx context.Context, lat, lng, maxDistanceMeters float64) ([]*models.NearbyStore, error) {
	if !queryablePoint(lat, lng) {
		return []*models.NearbyStore{}, nil
	}
	cursor, err := r.collection.Aggregate(ctx, geoNearPipeline(lat, lng, maxDistanceMeters))
	if err != nil {
		return nil, errors.Wrap(err, "geoNear stores")
	}
	defer cursor.Close(ctx)

	var stores []*models.NearbyStore
	if err = cursor.All(ctx, &stores); err != nil {
		return nil, errors.Wrap(err, "decode nearby stores")
	}
	if stores == nil {
		stores = []*models.NearbyStore{}
	}
	return stores, nil
}

func queryablePoint(lat, lng float64) bool {
	return models.NewGeoPoint(lat, lng).Validate() == nil
}

// geoNearPipeline builds the aggregation used by FindNear. GeoJSON order is [lng, lat].
func geoNearPipeline(lat, lng, maxDistanceMeters float64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: models.GeoJSONPointType},
				{Key: "coordinates", Value: bson.A{lng, lat}},
			}},
			{Key: "key", Value: "location"},
			{Key: "distanceField", Value: "distance"},
			{Key: "maxDistance", Value: maxDistanceMeters},
			{Key: "spherical", Value: true},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "distance", Value: 1},
			{Key: "_id", Value: 1},
		}}},
	}
}
