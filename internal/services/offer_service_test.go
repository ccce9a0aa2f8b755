package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories/memory"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (f *fixture) offerService() OfferService {
	return NewOfferService(f.offers, f.stores, f.users, f.events)
}

func TestRedeemSucceeds(t *testing.T) {
	f := newFixture()
	store := f.addStore(t, "Bikaner Sweets", "Food Court", 18.52, 73.93)
	offer := f.addOffer(t, store, "Samosa", "", true)
	user := f.addUser(t, "a@example.com")

	resp, err := f.offerService().Redeem(context.Background(), offer.ID.Hex(), user.ID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !resp.Success || resp.UnlockCode != "CODE-Samosa" {
		t.Errorf("response = %+v", resp)
	}

	stored, _ := f.offers.FindByID(context.Background(), offer.ID)
	if stored.RedemptionCount != 1 {
		t.Errorf("redemptionCount = %d, want 1", stored.RedemptionCount)
	}
	u, _ := f.users.FindByID(context.Background(), user.ID)
	if !u.HasRedeemed(offer.ID) {
		t.Error("user history should hold the redemption")
	}

	events := f.events.ofType(models.EventTypeOfferRedeem)
	if len(events) != 1 {
		t.Fatalf("got %d offer_redeem events, want 1", len(events))
	}
	if events[0].MetaData["offerId"] != offer.ID.Hex() || events[0].MetaData["title"] != "Samosa" {
		t.Errorf("metaData = %v", events[0].MetaData)
	}
	if events[0].UserID == nil || *events[0].UserID != user.ID {
		t.Error("offer_redeem should be attributed to the user")
	}
}

func TestRedeemTwiceSucceedsOnce(t *testing.T) {
	f := newFixture()
	store := f.addStore(t, "Bikaner Sweets", "Food Court", 18.52, 73.93)
	offer := f.addOffer(t, store, "Samosa", "", true)
	user := f.addUser(t, "a@example.com")
	svc := f.offerService()

	if _, err := svc.Redeem(context.Background(), offer.ID.Hex(), user.ID); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}
	if _, err := svc.Redeem(context.Background(), offer.ID.Hex(), user.ID); !errors.Is(err, ErrAlreadyRedeemed) {
		t.Fatalf("second Redeem err = %v, want ErrAlreadyRedeemed", err)
	}

	stored, _ := f.offers.FindByID(context.Background(), offer.ID)
	if stored.RedemptionCount != 1 {
		t.Errorf("redemptionCount = %d, want 1", stored.RedemptionCount)
	}
	if got := len(f.events.ofType(models.EventTypeOfferRedeem)); got != 1 {
		t.Errorf("got %d offer_redeem events, want 1", got)
	}
}

func TestRedeemConcurrentSameUser(t *testing.T) {
	f := newFixture()
	store := f.addStore(t, "Bikaner Sweets", "Food Court", 18.52, 73.93)
	offer := f.addOffer(t, store, "Samosa", "", true)
	user := f.addUser(t, "a@example.com")
	svc := f.offerService()

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), offer.ID.Hex(), user.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyRedeemed):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || dupes != n-1 {
		t.Errorf("successes = %d, duplicates = %d, want 1 and %d", successes, dupes, n-1)
	}
	stored, _ := f.offers.FindByID(context.Background(), offer.ID)
	if stored.RedemptionCount != 1 {
		t.Errorf("redemptionCount = %d, want 1", stored.RedemptionCount)
	}
}

func TestRedeemInactiveOfferChangesNothing(t *testing.T) {
	f := newFixture()
	store := f.addStore(t, "Bikaner Sweets", "Food Court", 18.52, 73.93)
	offer := f.addOffer(t, store, "Samosa", "", false)
	user := f.addUser(t, "a@example.com")

	_, err := f.offerService().Redeem(context.Background(), offer.ID.Hex(), user.ID)
	if !errors.Is(err, ErrOfferInactive) {
		t.Fatalf("err = %v, want ErrOfferInactive", err)
	}
	stored, _ := f.offers.FindByID(context.Background(), offer.ID)
	if stored.RedemptionCount != 0 {
		t.Errorf("redemptionCount = %d, want 0", stored.RedemptionCount)
	}
	u, _ := f.users.FindByID(context.Background(), user.ID)
	if len(u.RedeemedOffers) != 0 {
		t.Errorf("user history = %v, want empty", u.RedeemedOffers)
	}
	if f.events.count() != 0 {
		t.Errorf("%d events written, want 0", f.events.count())
	}
}

func TestRedeemUnknownOffer(t *testing.T) {
	f := newFixture()
	user := f.addUser(t, "a@example.com")
	svc := f.offerService()

	for _, id := range []string{"not-an-id", primitive.NewObjectID().Hex()} {
		if _, err := svc.Redeem(context.Background(), id, user.ID); !errors.Is(err, ErrOfferNotFound) {
			t.Errorf("Redeem(%q) err = %v, want ErrOfferNotFound", id, err)
		}
	}
}

func TestRedeemUnknownUser(t *testing.T) {
	f := newFixture()
	store := f.addStore(t, "Bikaner Sweets", "Food Court", 18.52, 73.93)
	offer := f.addOffer(t, store, "Samosa", "", true)

	_, err := f.offerService().Redeem(context.Background(), offer.ID.Hex(), primitive.NewObjectID())
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
	stored, _ := f.offers.FindByID(context.Background(), offer.ID)
	if stored.RedemptionCount != 0 {
		t.Errorf("redemptionCount = %d, want 0", stored.RedemptionCount)
	}
}

func TestRedeemEnforcesCeiling(t *testing.T) {
	f := newFixture()
	store := f.addStore(t, "Bikaner Sweets", "Food Court", 18.52, 73.93)
	offer := &models.Offer{Title: "Last one", StoreID: store.ID, IsActive: true, MaxRedemptions: 1}
	if err := f.offers.Create(context.Background(), offer); err != nil {
		t.Fatal(err)
	}
	svc := f.offerService()

	const n = 16
	users := make([]*models.User, n)
	for i := range users {
		users[i] = f.addUser(t, primitive.NewObjectID().Hex()+"@example.com")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		exhausted int
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID primitive.ObjectID) {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), offer.ID.Hex(), userID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrOfferExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u.ID)
	}
	wg.Wait()

	if successes != 1 || exhausted != n-1 {
		t.Errorf("successes = %d, exhausted = %d, want 1 and %d", successes, exhausted, n-1)
	}
	claims := 0
	for _, u := range users {
		stored, _ := f.users.FindByID(context.Background(), u.ID)
		if stored.HasRedeemed(offer.ID) {
			claims++
		}
	}
	if claims != 1 {
		t.Errorf("%d users hold a claim, want 1", claims)
	}
	stored, _ := f.offers.FindByID(context.Background(), offer.ID)
	if stored.RedemptionCount != 1 {
		t.Errorf("redemptionCount = %d, want 1", stored.RedemptionCount)
	}
}

// cappedAfterCheck passes the exhaustion check but loses the increment, as
// when another user takes the last redemption in between
type cappedAfterCheck struct {
	*memory.OfferRepository
}

func (cappedAfterCheck) IncrementRedemptions(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return false, nil
}

func TestRedeemLostIncrementReleasesClaim(t *testing.T) {
	f := newFixture()
	store := f.addStore(t, "Bikaner Sweets", "Food Court", 18.52, 73.93)
	offer := f.addOffer(t, store, "Samosa", "", true)
	user := f.addUser(t, "a@example.com")
	svc := NewOfferService(cappedAfterCheck{f.offers}, f.stores, f.users, f.events)

	for i := 0; i < 2; i++ {
		_, err := svc.Redeem(context.Background(), offer.ID.Hex(), user.ID)
		if !errors.Is(err, ErrOfferExhausted) {
			t.Fatalf("attempt %d: err = %v, want ErrOfferExhausted", i+1, err)
		}
	}
	u, _ := f.users.FindByID(context.Background(), user.ID)
	if u.HasRedeemed(offer.ID) {
		t.Error("claim should be pulled back when the counter could not move")
	}
	if got := len(f.events.ofType(models.EventTypeOfferRedeem)); got != 0 {
		t.Errorf("got %d offer_redeem events for a failed redemption", got)
	}
}

func TestListActivePopulatesStore(t *testing.T) {
	f := newFixture()
	store := f.addStore(t, "Bikaner Sweets", "Food Court", 18.52, 73.93)
	f.addOffer(t, store, "live", "", true)
	f.addOffer(t, store, "retired", "", false)

	offers, err := f.offerService().ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(offers) != 1 || offers[0].Title != "live" {
		t.Fatalf("offers = %v", offerTitles(offers))
	}
	if offers[0].Store == nil || offers[0].Store.Name != "Bikaner Sweets" || offers[0].Store.Floor != "Food Court" {
		t.Errorf("store = %+v", offers[0].Store)
	}
}

func TestCreateOffer(t *testing.T) {
	f := newFixture()
	store := f.addStore(t, "Bikaner Sweets", "Food Court", 18.52, 73.93)
	svc := f.offerService()

	offer, err := svc.Create(context.Background(), &models.CreateOfferRequest{
		Title:         "Samosa",
		StoreID:       store.ID.Hex(),
		RequiredFloor: "Food Court",
		UnlockCode:    "SAMOSA1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !offer.IsActive {
		t.Error("offers default to active")
	}
	if offer.MaxRedemptions != models.DefaultMaxRedemptions || offer.TriggerRadius != models.DefaultTriggerRadius {
		t.Errorf("defaults not applied: max %d radius %v", offer.MaxRedemptions, offer.TriggerRadius)
	}
	if offer.RedemptionCount != 0 {
		t.Errorf("redemptionCount = %d, want 0", offer.RedemptionCount)
	}

	inactive := false
	offer, err = svc.Create(context.Background(), &models.CreateOfferRequest{Title: "Later", StoreID: store.ID.Hex(), IsActive: &inactive})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if offer.IsActive {
		t.Error("explicit isActive false should be kept")
	}

	tests := []struct {
		name string
		req  models.CreateOfferRequest
		want error
	}{
		{"missing title", models.CreateOfferRequest{StoreID: store.ID.Hex()}, ErrInvalidInput},
		{"bad store id", models.CreateOfferRequest{Title: "x", StoreID: "nope"}, ErrInvalidInput},
		{"unknown store", models.CreateOfferRequest{Title: "x", StoreID: primitive.NewObjectID().Hex()}, ErrStoreNotFound},
		{"negative ceiling", models.CreateOfferRequest{Title: "x", StoreID: store.ID.Hex(), MaxRedemptions: -1}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), &tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
