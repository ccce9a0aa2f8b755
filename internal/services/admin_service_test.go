package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/analytics"
	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories/memory"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDashboardStats(t *testing.T) {
	f := newFixture()
	f.addUser(t, "a@example.com")
	f.addUser(t, "b@example.com")
	if err := f.users.Create(context.Background(), &models.User{Name: "root", Email: "root@example.com", Role: models.RoleAdmin}); err != nil {
		t.Fatal(err)
	}

	repo := memory.NewAnalyticsRepository()
	now := time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)
	add := func(eventType models.EventType, at time.Time) {
		e := models.NewAnalyticsEvent(eventType, nil, nil)
		e.CreatedAt = at
		if err := repo.Create(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	add(models.EventTypeStoreVisit, now.Add(-time.Hour))
	add(models.EventTypeStoreVisit, now.Add(-2*time.Hour))
	add(models.EventTypeStoreVisit, now.Add(-24*time.Hour))
	add(models.EventTypeOfferRedeem, now.Add(-48*time.Hour))
	add(models.EventTypeOfferRedeem, now.Add(-time.Minute))
	add(models.EventTypeQRScan, now)

	svc := NewAdminService(f.users, repo, analytics.NewSink(repo, analytics.Options{}))
	svc.(*adminService).now = func() time.Time { return now }

	stats, err := svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.TotalUsers != 2 {
		t.Errorf("totalUsers = %d, want 2", stats.TotalUsers)
	}
	if stats.FootfallToday != 2 {
		t.Errorf("footfallToday = %d, want 2", stats.FootfallToday)
	}
	if stats.TotalRedemptions != 2 {
		t.Errorf("totalRedemptions = %d, want 2", stats.TotalRedemptions)
	}
	if stats.EventsByType[models.EventTypeStoreVisit] != 3 || stats.EventsByType[models.EventTypeQRScan] != 1 {
		t.Errorf("eventsByType = %v", stats.EventsByType)
	}
}

type failingAnalytics struct {
	*memory.AnalyticsRepository
}

func (failingAnalytics) CountByType(ctx context.Context, eventType models.EventType, since time.Time) (int64, error) {
	return 0, errDatastoreDown
}

func (failingAnalytics) Create(ctx context.Context, event *models.AnalyticsEvent) error {
	return errDatastoreDown
}

func TestDashboardStatsFailure(t *testing.T) {
	f := newFixture()
	repo := failingAnalytics{memory.NewAnalyticsRepository()}
	svc := NewAdminService(f.users, repo, analytics.NewSink(repo, analytics.Options{}))

	if _, err := svc.DashboardStats(context.Background()); !errors.Is(err, errDatastoreDown) {
		t.Errorf("err = %v, want datastore failure", err)
	}
}

func TestTrackQRScan(t *testing.T) {
	f := newFixture()
	repo := memory.NewAnalyticsRepository()
	svc := NewAdminService(f.users, repo, analytics.NewSink(repo, analytics.Options{}))
	userID := primitive.NewObjectID()

	if err := svc.TrackQRScan(context.Background(), "Entrance_Standee", &userID); err != nil {
		t.Fatalf("TrackQRScan: %v", err)
	}
	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].EventType != models.EventTypeQRScan || events[0].MetaData["source"] != "Entrance_Standee" {
		t.Errorf("event = %+v", events[0])
	}

	failing := failingAnalytics{memory.NewAnalyticsRepository()}
	svc = NewAdminService(f.users, failing, analytics.NewSink(failing, analytics.Options{}))
	if err := svc.TrackQRScan(context.Background(), "x", nil); err == nil {
		t.Error("TrackQRScan should surface storage failures")
	}
}
