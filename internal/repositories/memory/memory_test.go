package memory

import (
	"context"
	"testing"

	"github.com/amanora/mall-navigator-backend/internal/models"
)

func TestStoreCreateIgnoresSuppliedID(t *testing.T) {
	ctx := context.Background()
	repo := NewStoreRepository()

	first := &models.Store{Name: "Chai Point", Category: "Food", Floor: "Ground", Location: models.NewGeoPoint(18.52, 73.93)}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := &models.Store{ID: first.ID, Name: "Impostor", Category: "Food", Floor: "Ground", Location: models.NewGeoPoint(18.52, 73.93)}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if second.ID == first.ID {
		t.Fatal("Create reused a caller-supplied id")
	}
	got, err := repo.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Name != "Chai Point" {
		t.Errorf("store overwritten: name = %q", got.Name)
	}
	all, _ := repo.FindAll(ctx)
	if len(all) != 2 {
		t.Errorf("got %d stores, want 2", len(all))
	}
	near, _ := repo.FindNear(ctx, 18.52, 73.93, 10)
	if len(near) != 2 {
		t.Errorf("spatial index holds %d stores, want 2", len(near))
	}
}

func TestOfferAndUserCreateIgnoreSuppliedID(t *testing.T) {
	ctx := context.Background()
	offers := NewOfferRepository()
	existing := &models.Offer{Title: "Samosa", IsActive: true}
	if err := offers.Create(ctx, existing); err != nil {
		t.Fatalf("Create offer: %v", err)
	}
	dup := &models.Offer{ID: existing.ID, Title: "Overwrite", IsActive: true}
	if err := offers.Create(ctx, dup); err != nil {
		t.Fatalf("Create offer: %v", err)
	}
	if got, _ := offers.FindByID(ctx, existing.ID); got == nil || got.Title != "Samosa" {
		t.Errorf("offer overwritten: %+v", got)
	}

	users := NewUserRepository()
	alice := &models.User{Email: "alice@example.com", Role: models.RoleUser}
	if err := users.Create(ctx, alice); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	bob := &models.User{ID: alice.ID, Email: "bob@example.com", Role: models.RoleAdmin}
	if err := users.Create(ctx, bob); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	if got, _ := users.FindByID(ctx, alice.ID); got == nil || got.Email != "alice@example.com" {
		t.Errorf("user overwritten: %+v", got)
	}
}
