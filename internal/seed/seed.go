// Package seed loads a YAML fixture of stores, offers and admin accounts.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/repositories"
	"github.com/amanora/mall-navigator-backend/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Fixture is the top-level YAML document
type Fixture struct {
	Stores []StoreFixture `yaml:"stores"`
	Admins []AdminFixture `yaml:"admins"`
}

// StoreFixture describes one store and the offers bound to it
type StoreFixture struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description"`
	Category    string                `yaml:"category"`
	Floor       string                `yaml:"floor"`
	IconName    string                `yaml:"iconName"`
	Color       string                `yaml:"color"`
	Lat         float64               `yaml:"lat"`
	Lng         float64               `yaml:"lng"`
	Indoor      models.IndoorPosition `yaml:"indoor"`
	Menu        []MenuFixture         `yaml:"menu"`
	Offers      []OfferFixture        `yaml:"offers"`
}

// MenuFixture is a menu entry
type MenuFixture struct {
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price"`
	Image string  `yaml:"image"`
}

// OfferFixture describes an offer; the store is implied by nesting
type OfferFixture struct {
	Title          string  `yaml:"title"`
	Description    string  `yaml:"description"`
	Inactive       bool    `yaml:"inactive"`
	DiscountAmount float64 `yaml:"discountAmount"`
	MaxRedemptions int     `yaml:"maxRedemptions"`
	TriggerRadius  float64 `yaml:"triggerRadius"`
	RequiredFloor  string  `yaml:"requiredFloor"`
	UnlockCode     string  `yaml:"unlockCode"`
}

// AdminFixture is an admin account created with a bcrypt-hashed password
type AdminFixture struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Decode parses a fixture, rejecting unknown keys
func Decode(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}
	return &f, nil
}

// DecodeFile reads and decodes the fixture at path
func DecodeFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file)
}

// LoadFile applies the fixture at path to the given repositories using the
// same validation as the API
func LoadFile(ctx context.Context, path string, stores repositories.StoreRepository, offers repositories.OfferRepository, users repositories.UserRepository) (Result, error) {
	f, err := DecodeFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("fixture %s: %w", path, err)
	}
	loader := &Loader{
		Stores: services.NewStoreService(stores),
		Offers: services.NewOfferService(offers, stores, users, nil),
		Users:  users,
	}
	return loader.Apply(ctx, f)
}

// Result counts what Apply created
type Result struct {
	Stores int
	Offers int
	Admins int
}

// Loader writes fixtures through the same services the API uses
type Loader struct {
	Stores services.StoreService
	Offers services.OfferService
	Users  repositories.UserRepository
}

// Apply creates every store, its offers and the admin accounts. It stops at
// the first failure; anything created before it is kept.
func (l *Loader) Apply(ctx context.Context, f *Fixture) (Result, error) {
	var res Result
	for _, sf := range f.Stores {
		store := &models.Store{
			Name:           sf.Name,
			Description:    sf.Description,
			Category:       sf.Category,
			Floor:          sf.Floor,
			IconName:       sf.IconName,
			Color:          sf.Color,
			Location:       models.NewGeoPoint(sf.Lat, sf.Lng),
			IndoorPosition: sf.Indoor,
		}
		for _, m := range sf.Menu {
			store.Menu = append(store.Menu, models.MenuItem{Name: m.Name, Price: m.Price, Image: m.Image})
		}
		created, err := l.Stores.Create(ctx, store)
		if err != nil {
			return res, fmt.Errorf("store %q: %w", sf.Name, err)
		}
		res.Stores++

		for _, of := range sf.Offers {
			active := !of.Inactive
			_, err := l.Offers.Create(ctx, &models.CreateOfferRequest{
				Title:          of.Title,
				Description:    of.Description,
				StoreID:        created.ID.Hex(),
				IsActive:       &active,
				DiscountAmount: of.DiscountAmount,
				MaxRedemptions: of.MaxRedemptions,
				TriggerRadius:  of.TriggerRadius,
				RequiredFloor:  of.RequiredFloor,
				UnlockCode:     of.UnlockCode,
			})
			if err != nil {
				return res, fmt.Errorf("offer %q of store %q: %w", of.Title, sf.Name, err)
			}
			res.Offers++
		}
	}

	for _, af := range f.Admins {
		if strings.TrimSpace(af.Email) == "" || af.Password == "" {
			return res, fmt.Errorf("admin %q: email and password are required", af.Name)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(af.Password), bcrypt.DefaultCost)
		if err != nil {
			return res, fmt.Errorf("admin %q: %w", af.Email, err)
		}
		admin := &models.User{
			Name:     af.Name,
			Email:    af.Email,
			Password: string(hash),
			Role:     models.RoleAdmin,
		}
		if err := l.Users.Create(ctx, admin); err != nil {
			return res, fmt.Errorf("admin %q: %w", af.Email, err)
		}
		res.Admins++
	}
	return res, nil
}
