package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/metrics"
	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProximitySearchRadiusMeters is the fixed radius every proximity check
// searches. Offer.TriggerRadius is not consulted.
const ProximitySearchRadiusMeters = 50.0

var tracer = otel.Tracer("github.com/amanora/mall-navigator-backend/internal/services")

// ProximityOptions tunes repeat suppression
type ProximityOptions struct {
	// UnlockDebounce is the window in which repeat offer_unlock and
	// store_visit events for the same user are suppressed. Zero disables it.
	UnlockDebounce time.Duration
}

type proximityService struct {
	storeRepo repositories.StoreRepository
	offerRepo repositories.OfferRepository
	events    EventEmitter
	opts      ProximityOptions
}

// NewProximityService creates a new ProximityService
func NewProximityService(storeRepo repositories.StoreRepository, offerRepo repositories.OfferRepository, events EventEmitter, opts ProximityOptions) ProximityService {
	return &proximityService{
		storeRepo: storeRepo,
		offerRepo: offerRepo,
		events:    events,
		opts:      opts,
	}
}

// Resolve implements ProximityService
func (s *proximityService) Resolve(ctx context.Context, sample models.ProximitySample, userID *primitive.ObjectID) (*models.ProximityResult, error) {
	ctx, span := tracer.Start(ctx, "proximity.Resolve")
	defer span.End()

	if err := validateSample(sample); err != nil {
		metrics.ProximityChecks.WithLabelValues("invalid").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	lat, lng := sample.Lat.Value, sample.Lng.Value
	span.SetAttributes(
		attribute.Float64("proximity.lat", lat),
		attribute.Float64("proximity.lng", lng),
		attribute.String("proximity.floor", sample.Floor),
		attribute.Bool("proximity.authenticated", userID != nil),
	)

	stores, err := s.storeRepo.FindNear(ctx, lat, lng, ProximitySearchRadiusMeters)
	if err != nil {
		return nil, s.unavailable(span, "finding nearby stores", err)
	}
	if len(stores) == 0 {
		metrics.ProximityChecks.WithLabelValues("empty").Inc()
		return models.EmptyProximityResult(sample.Floor), nil
	}

	sort.SliceStable(stores, func(i, j int) bool {
		if stores[i].DistanceMeters != stores[j].DistanceMeters {
			return stores[i].DistanceMeters < stores[j].DistanceMeters
		}
		return stores[i].ID.Hex() < stores[j].ID.Hex()
	})

	rank := make(map[primitive.ObjectID]int, len(stores))
	storeIDs := make([]primitive.ObjectID, 0, len(stores))
	names := make([]string, 0, len(stores))
	for i, store := range stores {
		rank[store.ID] = i
		storeIDs = append(storeIDs, store.ID)
		names = append(names, store.Name)
	}

	candidates, err := s.offerRepo.FindActiveByStoreIDs(ctx, storeIDs)
	if err != nil {
		return nil, s.unavailable(span, "finding active offers", err)
	}

	unlocked := make([]*models.Offer, 0, len(candidates))
	for _, offer := range candidates {
		if _, near := rank[offer.StoreID]; !near || !offer.IsActive {
			continue
		}
		if !offer.FloorAllows(sample.Floor) {
			continue
		}
		store := stores[rank[offer.StoreID]]
		offer.Store = &models.OfferStore{ID: store.ID, Name: store.Name, Floor: store.Floor}
		unlocked = append(unlocked, offer)
	}
	sort.SliceStable(unlocked, func(i, j int) bool {
		ri, rj := rank[unlocked[i].StoreID], rank[unlocked[j].StoreID]
		if ri != rj {
			return ri < rj
		}
		return unlocked[i].ID.Hex() < unlocked[j].ID.Hex()
	})

	result := &models.ProximityResult{
		DetectedFloor:  sample.Floor,
		NearbyStores:   names,
		UnlockedOffers: unlocked,
		Stores:         stores,
	}
	metrics.ProximityChecks.WithLabelValues("matched").Inc()
	metrics.OffersUnlocked.WithLabelValues(strconv.FormatBool(userID != nil)).Add(float64(len(unlocked)))
	span.SetAttributes(
		attribute.Int("proximity.nearby_stores", len(stores)),
		attribute.Int("proximity.unlocked_offers", len(unlocked)),
	)

	// Both queries succeeded; only now may analytics be written
	if userID != nil {
		s.emitEvents(*userID, result)
	}
	return result, nil
}

func validateSample(sample models.ProximitySample) error {
	if !sample.Lat.Set || !sample.Lng.Set {
		return fmt.Errorf("%w: lat and lng are required", ErrInvalidInput)
	}
	if !finite(sample.Lat.Value) || !finite(sample.Lng.Value) {
		return fmt.Errorf("%w: lat and lng must be finite numbers", ErrInvalidInput)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *proximityService) unavailable(span trace.Span, op string, err error) error {
	metrics.ProximityChecks.WithLabelValues("error").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	log.Error().Err(err).Str("op", op).Msg("proximity check failed")
	return fmt.Errorf("%w: %s: %v", ErrResolverUnavailable, op, err)
}

// emitEvents queues one store_visit per nearby store and one offer_unlock per
// unlocked offer. The sink drops pairs already reported inside the debounce
// window. Nothing here waits on I/O or can fail the check.
func (s *proximityService) emitEvents(userID primitive.ObjectID, result *models.ProximityResult) {
	if s.events == nil {
		return
	}
	uid := userID
	for _, store := range result.Stores {
		s.emit(models.NewAnalyticsEvent(models.EventTypeStoreVisit, &uid, map[string]interface{}{
			"storeId":   store.ID.Hex(),
			"storeName": store.Name,
			"floor":     store.Floor,
		}), VisitDebounceKey(userID, store.ID))
	}
	for _, offer := range result.UnlockedOffers {
		storeName := ""
		if offer.Store != nil {
			storeName = offer.Store.Name
		}
		s.emit(models.NewAnalyticsEvent(models.EventTypeOfferUnlock, &uid, map[string]interface{}{
			"offerId":   offer.ID.Hex(),
			"storeName": storeName,
		}), UnlockDebounceKey(userID, offer.ID))
	}
}

func (s *proximityService) emit(event *models.AnalyticsEvent, key string) {
	if !s.events.EmitOnce(event, key, s.opts.UnlockDebounce) {
		log.Warn().Str("eventType", string(event.EventType)).Msg("analytics event dropped")
	}
}

// UnlockDebounceKey identifies repeat offer_unlock events of one user
func UnlockDebounceKey(userID, offerID primitive.ObjectID) string {
	return "unlock:" + userID.Hex() + ":" + offerID.Hex()
}

// VisitDebounceKey identifies repeat store_visit events of one user
func VisitDebounceKey(userID, storeID primitive.ObjectID) string {
	return "visit:" + userID.Hex() + ":" + storeID.Hex()
}
