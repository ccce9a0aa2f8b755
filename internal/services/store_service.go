package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories"
)

// NearbyStoresMaxDistanceMeters caps the store finder query
const NearbyStoresMaxDistanceMeters = 500.0

type storeService struct {
	storeRepo repositories.StoreRepository
}

// NewStoreService creates a new StoreService
func NewStoreService(storeRepo repositories.StoreRepository) StoreService {
	return &storeService{storeRepo: storeRepo}
}

// List returns every store in the directory
func (s *storeService) List(ctx context.Context) ([]*models.Store, error) {
	stores, err := s.storeRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	return stores, nil
}

// Create validates and inserts a store
func (s *storeService) Create(ctx context.Context, store *models.Store) (*models.Store, error) {
	store.Name = strings.TrimSpace(store.Name)
	store.Category = strings.TrimSpace(store.Category)
	if store.Name == "" || store.Category == "" || store.Floor == "" {
		return nil, fmt.Errorf("%w: name, category and floor are required", ErrInvalidInput)
	}
	if store.Location.Type == "" {
		store.Location.Type = models.GeoJSONPointType
	}
	if err := store.Location.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	return store, nil
}

// Nearby implements StoreService
func (s *storeService) Nearby(ctx context.Context, lat, lng models.Coordinate) ([]*models.NearbyStore, error) {
	if !lat.Set || !lng.Set {
		return nil, fmt.Errorf("%w: lat and lng are required", ErrInvalidInput)
	}
	if !finite(lat.Value) || !finite(lng.Value) {
		return nil, fmt.Errorf("%w: lat and lng must be finite numbers", ErrInvalidInput)
	}
	stores, err := s.storeRepo.FindNear(ctx, lat.Value, lng.Value, NearbyStoresMaxDistanceMeters)
	if err != nil {
		return nil, fmt.Errorf("finding nearby stores: %w", err)
	}
	return stores, nil
}
