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

// Compile-time check to ensure OfferRepository implements the interface
var _ repositories.OfferRepository = (*OfferRepository)(nil)

// OfferRepository handles MongoDB operations for Offer
type OfferRepository struct {
	collection *mongo.Collection
}

// NewOfferRepository creates a new OfferRepository
func NewOfferRepository(db *mongo.Database) *OfferRepository {
	return &OfferRepository{
		collection: db.Collection(OffersCollection),
	}
}

// Create inserts a new offer
func (r *OfferRepository) Create(ctx context.Context, offer *models.Offer) error {
	offer.ID = primitive.NewObjectID()
	offer.CreatedAt = time.Now()
	offer.UpdatedAt = offer.CreatedAt
	_, err := r.collection.InsertOne(ctx, offer)
	return errors.Wrap(err, "insert offer")
}

// FindByID finds an offer by ID
func (r *OfferRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Offer, error) {
	var offer models.Offer
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&offer)
	if err != nil {
		return nil, notFoundOr(err, "find offer")
	}
	return &offer, nil
}

// FindActive retrieves every active offer
func (r *OfferRepository) FindActive(ctx context.Context) ([]*models.Offer, error) {
	return r.find(ctx, bson.M{"isActive": true})
}

// FindActiveByStoreIDs retrieves the active offers bound to any of the given stores
func (r *OfferRepository) FindActiveByStoreIDs(ctx context.Context, storeIDs []primitive.ObjectID) ([]*models.Offer, error) {
	if len(storeIDs) == 0 {
		return []*models.Offer{}, nil
	}
	return r.find(ctx, bson.M{
		"store":    bson.M{"$in": storeIDs},
		"isActive": true,
	})
}

func (r *OfferRepository) find(ctx context.Context, filter bson.M) ([]*models.Offer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find offers")
	}
	defer cursor.Close(ctx)

	var offers []*models.Offer
	if err = cursor.All(ctx, &offers); err != nil {
		return nil, errors.Wrap(err, "decode offers")
	}
	if offers == nil {
		offers = []*models.Offer{}
	}
	return offers, nil
}

// IncrementRedemptions atomically increments redemptionCount while it is
// below maxRedemptions
func (r *OfferRepository) IncrementRedemptions(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.UpdateOne(ctx, incrementFilter(id), bson.M{
		"$inc": bson.M{"redemptionCount": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return false, errors.Wrap(err, "increment redemptions")
	}
	return result.ModifiedCount == 1, nil
}

// incrementFilter matches the offer only while the counter is under its
// ceiling. A non-positive ceiling means unlimited.
func incrementFilter(id primitive.ObjectID) bson.M {
	return bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"maxRedemptions": bson.M{"$lte": 0}},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$redemptionCount", "$maxRedemptions"}}},
		},
	}
}
