package services

import (
	"context"
	"fmt"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

type adminService struct {
	userRepo      repositories.UserRepository
	analyticsRepo repositories.AnalyticsRepository
	recorder      EventRecorder
	now           func() time.Time
}

// NewAdminService creates a new AdminService
func NewAdminService(userRepo repositories.UserRepository, analyticsRepo repositories.AnalyticsRepository, recorder EventRecorder) AdminService {
	return &adminService{
		userRepo:      userRepo,
		analyticsRepo: analyticsRepo,
		recorder:      recorder,
		now:           time.Now,
	}
}

// DashboardStats counts users, today's footfall and all-time redemptions
func (s *adminService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := &models.DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.userRepo.CountByRole(ctx, models.RoleUser)
		if err != nil {
			return fmt.Errorf("counting users: %w", err)
		}
		stats.TotalUsers = n
		return nil
	})
	g.Go(func() error {
		n, err := s.analyticsRepo.CountByType(ctx, models.EventTypeStoreVisit, midnight)
		if err != nil {
			return fmt.Errorf("counting footfall: %w", err)
		}
		stats.FootfallToday = n
		return nil
	})
	g.Go(func() error {
		n, err := s.analyticsRepo.CountByType(ctx, models.EventTypeOfferRedeem, time.Time{})
		if err != nil {
			return fmt.Errorf("counting redemptions: %w", err)
		}
		stats.TotalRedemptions = n
		return nil
	})
	g.Go(func() error {
		counts, err := s.analyticsRepo.CountsByType(ctx, time.Time{})
		if err != nil {
			return fmt.Errorf("counting events by type: %w", err)
		}
		stats.EventsByType = counts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// TrackQRScan records a qr_scan event synchronously
func (s *adminService) TrackQRScan(ctx context.Context, source string, userID *primitive.ObjectID) error {
	event := models.NewAnalyticsEvent(models.EventTypeQRScan, userID, map[string]interface{}{"source": source})
	if err := s.recorder.Record(ctx, event); err != nil {
		return fmt.Errorf("recording qr scan: %w", err)
	}
	return nil
}
