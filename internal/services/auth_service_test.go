package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/pkg/jwt"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(f *fixture) (AuthService, *jwt.TokenService) {
	tokens := jwt.NewTokenService("test-secret", time.Hour)
	svc := NewAuthService(f.users, tokens)
	svc.(*authService).cost = bcrypt.MinCost
	return svc, tokens
}

func TestSignupAndLogin(t *testing.T) {
	f := newFixture()
	svc, tokens := newTestAuthService(f)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &models.SignupRequest{Name: "Asha", Email: "Asha@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if resp.User.Password != "" {
		t.Error("password hash leaked in response")
	}
	if resp.User.Role != models.RoleUser || resp.User.Email != "asha@example.com" {
		t.Errorf("user = %+v", resp.User)
	}
	claims, err := tokens.Parse(resp.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != resp.User.ID.Hex() || claims.Role != models.RoleUser {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := svc.Signup(ctx, &models.SignupRequest{Name: "Other", Email: "asha@example.com", Password: "secret2"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate signup err = %v, want ErrEmailTaken", err)
	}

	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "asha@example.com", Password: "secret1"}); err != nil {
		t.Errorf("Login: %v", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "asha@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}

	me, err := svc.Me(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Name != "Asha" || me.Password != "" {
		t.Errorf("me = %+v", me)
	}
	if _, err := svc.Me(ctx, primitive.NewObjectID()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user err = %v, want ErrUserNotFound", err)
	}
}

func TestSignupRejectsShortPassword(t *testing.T) {
	svc, _ := newTestAuthService(newFixture())
	_, err := svc.Signup(context.Background(), &models.SignupRequest{Name: "Asha", Email: "a@example.com", Password: "123"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
