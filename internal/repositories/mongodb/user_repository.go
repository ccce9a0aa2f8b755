package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure UserRepository implements the interface
var _ repositories.UserRepository = (*UserRepository)(nil)

// UserRepository handles MongoDB operations for User
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection(UsersCollection),
	}
}

// Create inserts a new user. The unique email index turns a second signup
// into repositories.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if user.RedeemedOffers == nil {
		user.RedeemedOffers = []models.Redemption{}
	}
	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return errors.Wrap(err, "insert user")
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&user)
	if err != nil {
		return nil, notFoundOr(err, "find user by email")
	}
	return &user, nil
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, notFoundOr(err, "find user")
	}
	return &user, nil
}

// CountByRole counts users holding a role
func (r *UserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"role": role})
	return count, errors.Wrap(err, "count users")
}

// AddRedemption pushes the redemption in a single conditional update, so two
// concurrent redemptions of the same offer cannot both land.
func (r *UserRepository) AddRedemption(ctx context.Context, userID primitive.ObjectID, redemption models.Redemption) (bool, error) {
	result, err := r.collection.UpdateOne(ctx, addRedemptionFilter(userID, redemption.OfferID), bson.M{
		"$push": bson.M{"redeemedOffers": redemption},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return false, errors.Wrap(err, "add redemption")
	}
	if result.MatchedCount == 1 {
		return true, nil
	}

	// Nothing matched: either the user is gone or the offer is already redeemed
	if _, err := r.FindByID(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

func addRedemptionFilter(userID, offerID primitive.ObjectID) bson.M {
	return bson.M{
		"_id":                    userID,
		"redeemedOffers.offerId": bson.M{"$ne": offerID},
	}
}

// RemoveRedemption pulls a redemption back out, used when the offer side of a
// redemption fails after the user side succeeded
func (r *UserRepository) RemoveRedemption(ctx context.Context, userID, offerID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"redeemedOffers": bson.M{"offerId": offerID}}},
	)
	return errors.Wrap(err, "remove redemption")
}
