package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories/memory"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// metersPerDegreeLat matches geo.EarthRadiusMeters * pi / 180
const metersPerDegreeLat = 111195.08

type recordingEmitter struct {
	mu      sync.Mutex
	events  []*models.AnalyticsEvent
	keys    []string
	windows []time.Duration
}

func (e *recordingEmitter) Emit(event *models.AnalyticsEvent) bool {
	return e.EmitOnce(event, "", 0)
}

func (e *recordingEmitter) EmitOnce(event *models.AnalyticsEvent, key string, window time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	e.keys = append(e.keys, key)
	e.windows = append(e.windows, window)
	return true
}

func (e *recordingEmitter) ofType(t models.EventType) []*models.AnalyticsEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*models.AnalyticsEvent
	for _, ev := range e.events {
		if ev.EventType == t {
			out = append(out, ev)
		}
	}
	return out
}

func (e *recordingEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

var errDatastoreDown = errors.New("datastore down")

type failingNearStores struct {
	*memory.StoreRepository
}

func (failingNearStores) FindNear(ctx context.Context, lat, lng, maxDistanceMeters float64) ([]*models.NearbyStore, error) {
	return nil, errDatastoreDown
}

type failingActiveOffers struct {
	*memory.OfferRepository
}

func (failingActiveOffers) FindActiveByStoreIDs(ctx context.Context, storeIDs []primitive.ObjectID) ([]*models.Offer, error) {
	return nil, errDatastoreDown
}

type fixture struct {
	stores *memory.StoreRepository
	offers *memory.OfferRepository
	users  *memory.UserRepository
	events *recordingEmitter
}

func newFixture() *fixture {
	return &fixture{
		stores: memory.NewStoreRepository(),
		offers: memory.NewOfferRepository(),
		users:  memory.NewUserRepository(),
		events: &recordingEmitter{},
	}
}

func (f *fixture) addStore(t *testing.T, name, floor string, lat, lng float64) *models.Store {
	t.Helper()
	store := &models.Store{
		Name:     name,
		Category: "Food",
		Floor:    floor,
		Location: models.NewGeoPoint(lat, lng),
	}
	if err := f.stores.Create(context.Background(), store); err != nil {
		t.Fatalf("creating store %s: %v", name, err)
	}
	return store
}

func (f *fixture) addOffer(t *testing.T, store *models.Store, title, requiredFloor string, active bool) *models.Offer {
	t.Helper()
	offer := &models.Offer{
		Title:         title,
		StoreID:       store.ID,
		IsActive:      active,
		RequiredFloor: requiredFloor,
		UnlockCode:    "CODE-" + title,
	}
	offer.ApplyDefaults()
	if err := f.offers.Create(context.Background(), offer); err != nil {
		t.Fatalf("creating offer %s: %v", title, err)
	}
	return offer
}

func (f *fixture) addUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Name: email, Email: email, Role: models.RoleUser}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}
	return user
}

func (f *fixture) proximity(opts ProximityOptions) ProximityService {
	return NewProximityService(f.stores, f.offers, f.events, opts)
}

func sample(lat, lng float64, floor string) models.ProximitySample {
	return models.ProximitySample{Lat: models.Coord(lat), Lng: models.Coord(lng), Floor: floor}
}

func offerTitles(offers []*models.Offer) []string {
	titles := make([]string, 0, len(offers))
	for _, o := range offers {
		titles = append(titles, o.Title)
	}
	return titles
}
