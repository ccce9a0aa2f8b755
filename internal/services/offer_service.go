package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/metrics"
	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type offerService struct {
	offerRepo repositories.OfferRepository
	storeRepo repositories.StoreRepository
	userRepo  repositories.UserRepository
	events    EventEmitter
}

// NewOfferService creates a new OfferService
func NewOfferService(offerRepo repositories.OfferRepository, storeRepo repositories.StoreRepository, userRepo repositories.UserRepository, events EventEmitter) OfferService {
	return &offerService{
		offerRepo: offerRepo,
		storeRepo: storeRepo,
		userRepo:  userRepo,
		events:    events,
	}
}

// ListActive returns every active offer with its store's name and floor populated
func (s *offerService) ListActive(ctx context.Context) ([]*models.Offer, error) {
	offers, err := s.offerRepo.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active offers: %w", err)
	}
	if err := s.populateStores(ctx, offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (s *offerService) populateStores(ctx context.Context, offers []*models.Offer) error {
	if len(offers) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, len(offers))
	for _, offer := range offers {
		ids = append(ids, offer.StoreID)
	}
	stores, err := s.storeRepo.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("populating offer stores: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.Store, len(stores))
	for _, store := range stores {
		byID[store.ID] = store
	}
	for _, offer := range offers {
		if store, ok := byID[offer.StoreID]; ok {
			offer.Store = &models.OfferStore{ID: store.ID, Name: store.Name, Floor: store.Floor}
		}
	}
	return nil
}

// Create adds an offer to the catalogue. The store must exist.
func (s *offerService) Create(ctx context.Context, req *models.CreateOfferRequest) (*models.Offer, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if req.MaxRedemptions < 0 || req.TriggerRadius < 0 {
		return nil, fmt.Errorf("%w: maxRedemptions and triggerRadius must not be negative", ErrInvalidInput)
	}
	storeID, err := primitive.ObjectIDFromHex(req.StoreID)
	if err != nil {
		return nil, fmt.Errorf("%w: storeId is not a valid id", ErrInvalidInput)
	}
	store, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("finding store: %w", err)
	}

	offer := &models.Offer{
		Title:          title,
		Description:    req.Description,
		StoreID:        store.ID,
		IsActive:       req.IsActive == nil || *req.IsActive,
		DiscountAmount: req.DiscountAmount,
		MaxRedemptions: req.MaxRedemptions,
		TriggerRadius:  req.TriggerRadius,
		RequiredFloor:  req.RequiredFloor,
		UnlockCode:     req.UnlockCode,
	}
	offer.ApplyDefaults()
	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, fmt.Errorf("creating offer: %w", err)
	}
	offer.Store = &models.OfferStore{ID: store.ID, Name: store.Name, Floor: store.Floor}
	return offer, nil
}

// Redeem claims an offer for a user. The user's claim is inserted only if
// absent and the counter only moves while under its ceiling, so duplicate or
// concurrent calls succeed at most once.
func (s *offerService) Redeem(ctx context.Context, offerIDHex string, userID primitive.ObjectID) (*models.RedeemResponse, error) {
	ctx, span := tracer.Start(ctx, "offers.Redeem")
	defer span.End()
	span.SetAttributes(attribute.String("offer.id", offerIDHex), attribute.String("user.id", userID.Hex()))

	resp, err := s.redeem(ctx, offerIDHex, userID)
	metrics.Redemptions.WithLabelValues(redemptionResult(err)).Inc()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (s *offerService) redeem(ctx context.Context, offerIDHex string, userID primitive.ObjectID) (*models.RedeemResponse, error) {
	offerID, err := primitive.ObjectIDFromHex(offerIDHex)
	if err != nil {
		return nil, ErrOfferNotFound
	}
	offer, err := s.offerRepo.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("finding offer: %w", err)
	}
	if !offer.IsActive {
		return nil, ErrOfferInactive
	}
	if offer.Exhausted() {
		return nil, ErrOfferExhausted
	}

	added, err := s.userRepo.AddRedemption(ctx, userID, models.Redemption{OfferID: offerID, RedeemedAt: time.Now()})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("recording redemption: %w", err)
	}
	if !added {
		return nil, ErrAlreadyRedeemed
	}

	incremented, err := s.offerRepo.IncrementRedemptions(ctx, offerID)
	if err != nil || !incremented {
		s.releaseClaim(ctx, userID, offerID)
		if err != nil {
			return nil, fmt.Errorf("incrementing redemption count: %w", err)
		}
		return nil, ErrOfferExhausted
	}

	uid := userID
	if s.events != nil && !s.events.Emit(models.NewAnalyticsEvent(models.EventTypeOfferRedeem, &uid, map[string]interface{}{
		"offerId": offerID.Hex(),
		"title":   offer.Title,
	})) {
		log.Warn().Str("offerId", offerID.Hex()).Msg("offer_redeem event dropped")
	}

	return &models.RedeemResponse{
		Success:    true,
		Message:    "Offer redeemed successfully",
		UnlockCode: offer.UnlockCode,
	}, nil
}

// releaseClaim undoes a user claim whose counter increment did not happen.
// Until it completes, a concurrent redeem by the same user sees the claim and
// gets ErrAlreadyRedeemed.
func (s *offerService) releaseClaim(ctx context.Context, userID, offerID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.userRepo.RemoveRedemption(ctx, userID, offerID); err != nil {
		log.Error().Err(err).
			Str("userId", userID.Hex()).
			Str("offerId", offerID.Hex()).
			Msg("failed to release redemption claim")
	}
}

func redemptionResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrOfferNotFound):
		return "not_found"
	case errors.Is(err, ErrOfferInactive):
		return "inactive"
	case errors.Is(err, ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, ErrOfferExhausted):
		return "exhausted"
	default:
		return "error"
	}
}
