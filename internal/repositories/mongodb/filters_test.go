package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/repositories"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestGeoNearPipelineUsesLngLatOrder(t *testing.T) {
	pipeline := geoNearPipeline(18.52, 73.93, 50)
	if len(pipeline) != 2 {
		t.Fatalf("pipeline has %d stages, want 2", len(pipeline))
	}

	stage := pipeline[0][0]
	if stage.Key != "$geoNear" {
		t.Fatalf("first stage = %s, want $geoNear", stage.Key)
	}
	geoNear := stage.Value.(bson.D).Map()
	near := geoNear["near"].(bson.D).Map()
	coords := near["coordinates"].(bson.A)
	if coords[0] != 73.93 || coords[1] != 18.52 {
		t.Errorf("coordinates = %v, want [lng lat]", coords)
	}
	if geoNear["maxDistance"] != 50.0 {
		t.Errorf("maxDistance = %v, want 50", geoNear["maxDistance"])
	}
	if geoNear["spherical"] != true {
		t.Error("query should be spherical")
	}
	if geoNear["distanceField"] != "distance" {
		t.Errorf("distanceField = %v, want distance", geoNear["distanceField"])
	}
}

func TestAddRedemptionFilterExcludesExistingOffer(t *testing.T) {
	userID := primitive.NewObjectID()
	offerID := primitive.NewObjectID()

	filter := addRedemptionFilter(userID, offerID)
	if filter["_id"] != userID {
		t.Errorf("_id = %v, want %v", filter["_id"], userID)
	}
	cond, ok := filter["redeemedOffers.offerId"].(bson.M)
	if !ok || cond["$ne"] != offerID {
		t.Errorf("redeemedOffers.offerId = %v, want $ne %v", filter["redeemedOffers.offerId"], offerID)
	}
}

func TestIncrementFilterGuardsCeiling(t *testing.T) {
	id := primitive.NewObjectID()
	filter := incrementFilter(id)
	if filter["_id"] != id {
		t.Errorf("_id = %v, want %v", filter["_id"], id)
	}
	if or, ok := filter["$or"].(bson.A); !ok || len(or) != 2 {
		t.Errorf("$or = %v, want two branches", filter["$or"])
	}
}

func TestSinceFilter(t *testing.T) {
	if got := sinceFilter(time.Time{}); len(got) != 0 {
		t.Errorf("zero since should not filter, got %v", got)
	}
	since := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	got := sinceFilter(since)
	if got["createdAt"].(bson.M)["$gte"] != since {
		t.Errorf("createdAt filter = %v", got["createdAt"])
	}
}

func TestNotFoundOr(t *testing.T) {
	if err := notFoundOr(mongo.ErrNoDocuments, "find"); err != repositories.ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	cause := errors.New("connection reset")
	err := notFoundOr(cause, "find store")
	if !errors.Is(err, cause) {
		t.Errorf("wrapped error should keep its cause, got %v", err)
	}
	if err.Error() != "find store: connection reset" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestFindNearOutOfBoundsMatchesNothing(t *testing.T) {
	// No collection: an out-of-range point must never reach $geoNear
	repo := &StoreRepository{}
	for _, p := range [][2]float64{{123, 73.93}, {18.52, 456}, {-91, 0}, {0, -181}} {
		stores, err := repo.FindNear(context.Background(), p[0], p[1], 50)
		if err != nil {
			t.Errorf("FindNear(%v): %v", p, err)
		}
		if stores == nil || len(stores) != 0 {
			t.Errorf("FindNear(%v) = %v, want empty", p, stores)
		}
	}
	if !queryablePoint(90, 180) || !queryablePoint(-90, -180) {
		t.Error("boundary points must be queried")
	}
}
