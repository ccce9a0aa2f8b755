package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup by id or key matches nothing
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate document")
)

// StoreRepository defines the interface for the store directory
type StoreRepository interface {
	Create(ctx context.Context, store *models.Store) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Store, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Store, error)
	FindAll(ctx context.Context) ([]*models.Store, error)
	// FindNear returns stores within maxDistanceMeters of (lat, lng), nearest first
	FindNear(ctx context.Context, lat, lng, maxDistanceMeters float64) ([]*models.NearbyStore, error)
}

// OfferRepository defines the interface for the offer catalogue
type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Offer, error)
	FindActive(ctx context.Context) ([]*models.Offer, error)
	FindActiveByStoreIDs(ctx context.Context, storeIDs []primitive.ObjectID) ([]*models.Offer, error)
	// IncrementRedemptions atomically bumps redemptionCount while it is below
	// maxRedemptions. It reports false when the ceiling was already reached.
	IncrementRedemptions(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	// AddRedemption appends the redemption only if the user holds none for the
	// offer. It reports false when one already existed.
	AddRedemption(ctx context.Context, userID primitive.ObjectID, redemption models.Redemption) (bool, error)
	RemoveRedemption(ctx context.Context, userID, offerID primitive.ObjectID) error
}

// AnalyticsRepository defines the interface for the append-only analytics log
type AnalyticsRepository interface {
	Create(ctx context.Context, event *models.AnalyticsEvent) error
	// CountByType counts events of one type; a zero since counts all time
	CountByType(ctx context.Context, eventType models.EventType, since time.Time) (int64, error)
	CountsByType(ctx context.Context, since time.Time) (map[models.EventType]int64, error)
}
