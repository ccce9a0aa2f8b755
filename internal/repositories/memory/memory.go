// Package memory implements the repositories in process. It backs the
// "memory" storage driver for local development and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/geo"
	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.StoreRepository     = (*StoreRepository)(nil)
	_ repositories.OfferRepository     = (*OfferRepository)(nil)
	_ repositories.UserRepository      = (*UserRepository)(nil)
	_ repositories.AnalyticsRepository = (*AnalyticsRepository)(nil)
)

// StoreRepository keeps stores in a map with a grid spatial index over their locations
type StoreRepository struct {
	mu     sync.RWMutex
	stores map[primitive.ObjectID]models.Store
	index  geo.SpatialIndex
}

// NewStoreRepository creates an empty store repository
func NewStoreRepository() *StoreRepository {
	return &StoreRepository{
		stores: make(map[primitive.ObjectID]models.Store),
		index:  geo.NewGridIndex(geo.DefaultCellDegrees),
	}
}

// Create inserts a store under a fresh id and indexes its location
func (r *StoreRepository) Create(ctx context.Context, store *models.Store) error {
	store.ID = primitive.NewObjectID()
	store.CreatedAt = time.Now()
	store.UpdatedAt = store.CreatedAt

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[store.ID] = copyStore(*store)
	r.index.Insert(store.ID.Hex(), geo.Point{Lat: store.Location.Lat(), Lng: store.Location.Lng()})
	return nil
}

// FindByID finds a store by ID
func (r *StoreRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.stores[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyStore(store)
	return &out, nil
}

// FindByIDs finds every store whose id is in ids, ordered by id
func (r *StoreRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stores := []*models.Store{}
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if store, ok := r.stores[id]; ok {
			out := copyStore(store)
			stores = append(stores, &out)
		}
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].ID.Hex() < stores[j].ID.Hex() })
	return stores, nil
}

// FindAll retrieves all stores ordered by name
func (r *StoreRepository) FindAll(ctx context.Context) ([]*models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stores := make([]*models.Store, 0, len(r.stores))
	for _, store := range r.stores {
		out := copyStore(store)
		stores = append(stores, &out)
	}
	sort.Slice(stores, func(i, j int) bool {
		if stores[i].Name != stores[j].Name {
			return stores[i].Name < stores[j].Name
		}
		return stores[i].ID.Hex() < stores[j].ID.Hex()
	})
	return stores, nil
}

// FindNear queries the spatial index; results are nearest first
func (r *StoreRepository) FindNear(ctx context.Context, lat, lng, maxDistanceMeters float64) ([]*models.NearbyStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.index.QueryWithinRadius(geo.Point{Lat: lat, Lng: lng}, maxDistanceMeters)
	stores := make([]*models.NearbyStore, 0, len(matches))
	for _, m := range matches {
		id, err := primitive.ObjectIDFromHex(m.ID)
		if err != nil {
			continue
		}
		store, ok := r.stores[id]
		if !ok {
			continue
		}
		stores = append(stores, &models.NearbyStore{Store: copyStore(store), DistanceMeters: m.DistanceMeters})
	}
	return stores, nil
}

func copyStore(s models.Store) models.Store {
	s.Location.Coordinates = append([]float64(nil), s.Location.Coordinates...)
	s.Menu = append([]models.MenuItem(nil), s.Menu...)
	return s
}

// OfferRepository keeps offers in a map
type OfferRepository struct {
	mu     sync.RWMutex
	offers map[primitive.ObjectID]models.Offer
}

// NewOfferRepository creates an empty offer repository
func NewOfferRepository() *OfferRepository {
	return &OfferRepository{offers: make(map[primitive.ObjectID]models.Offer)}
}

// Create inserts an offer under a fresh id
func (r *OfferRepository) Create(ctx context.Context, offer *models.Offer) error {
	offer.ID = primitive.NewObjectID()
	offer.CreatedAt = time.Now()
	offer.UpdatedAt = offer.CreatedAt

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *offer
	stored.Store = nil
	r.offers[offer.ID] = stored
	return nil
}

// FindByID finds an offer by ID
func (r *OfferRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offer, ok := r.offers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &offer, nil
}

// FindActive retrieves every active offer ordered by id
func (r *OfferRepository) FindActive(ctx context.Context) ([]*models.Offer, error) {
	return r.filter(func(o *models.Offer) bool { return o.IsActive }), nil
}

// FindActiveByStoreIDs retrieves active offers bound to the given stores, ordered by id
func (r *OfferRepository) FindActiveByStoreIDs(ctx context.Context, storeIDs []primitive.ObjectID) ([]*models.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[primitive.ObjectID]bool, len(storeIDs))
	for _, id := range storeIDs {
		wanted[id] = true
	}
	return r.filter(func(o *models.Offer) bool { return o.IsActive && wanted[o.StoreID] }), nil
}

func (r *OfferRepository) filter(keep func(*models.Offer) bool) []*models.Offer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offers := []*models.Offer{}
	for _, offer := range r.offers {
		o := offer
		if keep(&o) {
			offers = append(offers, &o)
		}
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].ID.Hex() < offers[j].ID.Hex() })
	return offers
}

// IncrementRedemptions bumps the counter while it is under the ceiling
func (r *OfferRepository) IncrementRedemptions(ctx context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	offer, ok := r.offers[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if offer.Exhausted() {
		return false, nil
	}
	offer.RedemptionCount++
	offer.UpdatedAt = time.Now()
	r.offers[id] = offer
	return true, nil
}

// UserRepository keeps users in a map keyed by id with an email lookup
type UserRepository struct {
	mu      sync.RWMutex
	users   map[primitive.ObjectID]models.User
	byEmail map[string]primitive.ObjectID
}

// NewUserRepository creates an empty user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[primitive.ObjectID]models.User),
		byEmail: make(map[string]primitive.ObjectID),
	}
}

// Create inserts a user; emails are unique case-insensitively
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	email := strings.ToLower(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[email]; taken {
		return repositories.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	user.Email = email
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if user.RedeemedOffers == nil {
		user.RedeemedOffers = []models.Redemption{}
	}
	r.users[user.ID] = copyUser(*user)
	r.byEmail[email] = user.ID
	return nil
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	user := copyUser(r.users[id])
	return &user, nil
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyUser(user)
	return &out, nil
}

// CountByRole counts users holding a role
func (r *UserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, user := range r.users {
		if user.Role == role {
			n++
		}
	}
	return n, nil
}

// AddRedemption checks and appends under one lock
func (r *UserRepository) AddRedemption(ctx context.Context, userID primitive.ObjectID, redemption models.Redemption) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if user.HasRedeemed(redemption.OfferID) {
		return false, nil
	}
	user.RedeemedOffers = append(append([]models.Redemption(nil), user.RedeemedOffers...), redemption)
	user.UpdatedAt = time.Now()
	r.users[userID] = user
	return true, nil
}

// RemoveRedemption drops the user's redemption of an offer
func (r *UserRepository) RemoveRedemption(ctx context.Context, userID, offerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	kept := make([]models.Redemption, 0, len(user.RedeemedOffers))
	for _, red := range user.RedeemedOffers {
		if red.OfferID != offerID {
			kept = append(kept, red)
		}
	}
	user.RedeemedOffers = kept
	r.users[userID] = user
	return nil
}

func copyUser(u models.User) models.User {
	u.RedeemedOffers = append([]models.Redemption{}, u.RedeemedOffers...)
	u.VisitHistory = append([]models.Visit(nil), u.VisitHistory...)
	return u
}

// AnalyticsRepository is an append-only slice of events
type AnalyticsRepository struct {
	mu     sync.RWMutex
	events []models.AnalyticsEvent
}

// NewAnalyticsRepository creates an empty analytics log
func NewAnalyticsRepository() *AnalyticsRepository {
	return &AnalyticsRepository{}
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

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

// CountByType counts events of one type created at or after since
func (r *AnalyticsRepository) CountByType(ctx context.Context, eventType models.EventType, since time.Time) (int64, error) {
	counts, _ := r.CountsByType(ctx, since)
	return counts[eventType], nil
}

// CountsByType groups events created at or after since by type
func (r *AnalyticsRepository) CountsByType(ctx context.Context, since time.Time) (map[models.EventType]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[models.EventType]int64)
	for _, e := range r.events {
		if !since.IsZero() && e.CreatedAt.Before(since) {
			continue
		}
		counts[e.EventType]++
	}
	return counts, nil
}

// Events returns a copy of the log in insertion order
func (r *AnalyticsRepository) Events() []models.AnalyticsEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.AnalyticsEvent(nil), r.events...)
}
