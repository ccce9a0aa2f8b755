package services

import (
	"context"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProximityService resolves a live location sample into nearby stores and unlocked offers
type ProximityService interface {
	// Resolve runs one proximity check. userID is nil for anonymous callers.
	Resolve(ctx context.Context, sample models.ProximitySample, userID *primitive.ObjectID) (*models.ProximityResult, error)
}

// OfferService defines the offer catalogue and redemption operations
type OfferService interface {
	ListActive(ctx context.Context) ([]*models.Offer, error)
	Create(ctx context.Context, req *models.CreateOfferRequest) (*models.Offer, error)
	Redeem(ctx context.Context, offerID string, userID primitive.ObjectID) (*models.RedeemResponse, error)
}

// StoreService defines the store directory operations
type StoreService interface {
	List(ctx context.Context) ([]*models.Store, error)
	Create(ctx context.Context, store *models.Store) (*models.Store, error)
	// Nearby returns stores within NearbyStoresMaxDistanceMeters, nearest first
	Nearby(ctx context.Context, lat, lng models.Coordinate) ([]*models.NearbyStore, error)
}

// AuthService defines signup, login and identity lookup
type AuthService interface {
	Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
}

// AdminService defines the dashboard and tracking operations
type AdminService interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	TrackQRScan(ctx context.Context, source string, userID *primitive.ObjectID) error
}

// EventEmitter hands analytics events to the asynchronous sink.
// analytics.Sink satisfies it.
type EventEmitter interface {
	Emit(event *models.AnalyticsEvent) bool
	// EmitOnce queues an event the sink drops if another with the same key
	// was stored within window
	EmitOnce(event *models.AnalyticsEvent, key string, window time.Duration) bool
}

// EventRecorder writes analytics events synchronously
type EventRecorder interface {
	Record(ctx context.Context, event *models.AnalyticsEvent) error
}
