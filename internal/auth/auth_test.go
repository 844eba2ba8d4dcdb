package auth

import (
	"context"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reservation-api/internal/database/dbtest"
	"github.com/gdg-garage/reservation-api/internal/inventory"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

func TestHandleMe(t *testing.T) {
	users := inventory.NewStore(dbtest.New(t))

	user := models.User{
		Name:  "testuser",
		Email: "test@example.com",
		Role:  models.RoleAdmin,
	}
	if err := users.CreateUser(context.Background(), &user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	handler := NewAuthHandler("test-secret", users)

	t.Run("Cookie", func(t *testing.T) {
		token, _ := handler.GenerateToken(user)
		input := &MeInput{AuthInput{Cookie: "theme=dark; auth_token=" + token}}
		resp, err := handler.HandleMe(context.Background(), input)
		if err != nil {
			t.Fatalf("HandleMe returned error: %v", err)
		}
		if resp.Body.Name != user.Name {
			t.Errorf("expected name %s, got %s", user.Name, resp.Body.Name)
		}
		if resp.Body.Role != models.RoleAdmin {
			t.Errorf("expected role ADMIN, got %s", resp.Body.Role)
		}
	})

	t.Run("Bearer", func(t *testing.T) {
		token, _ := handler.GenerateToken(user)
		input := &MeInput{AuthInput{Authorization: "Bearer " + token}}
		resp, err := handler.HandleMe(context.Background(), input)
		if err != nil {
			t.Fatalf("HandleMe returned error: %v", err)
		}
		if resp.Body.Email != user.Email {
			t.Errorf("expected email %s, got %s", user.Email, resp.Body.Email)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := handler.HandleMe(context.Background(), &MeInput{})
		if err == nil {
			t.Fatal("expected error for unauthenticated request, got nil")
		}
		if se, ok := err.(huma.StatusError); !ok || se.GetStatus() != 401 {
			t.Errorf("expected 401, got %v", err)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		token, _ := handler.GenerateToken(models.User{Model: modelWithID(999), Role: models.RoleUser})
		_, err := handler.HandleMe(context.Background(), &MeInput{AuthInput{Authorization: "Bearer " + token}})
		if se, ok := err.(huma.StatusError); !ok || se.GetStatus() != 401 {
			t.Errorf("expected 401, got %v", err)
		}
	})
}

func TestAuthorize(t *testing.T) {
	db := dbtest.New(t)
	users := inventory.NewStore(db)
	handler := NewAuthHandler("test-secret", users)

	user := models.User{Name: "guest", Email: "guest@example.com"}
	if err := users.CreateUser(context.Background(), &user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	admin := models.User{Name: "root", Email: "root@example.com", Role: models.RoleAdmin}
	if err := users.CreateUser(context.Background(), &admin); err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	t.Run("ContextWins", func(t *testing.T) {
		ctx := WithActor(context.Background(), models.Actor{UserID: 7, Role: models.RoleAdmin})
		actor, err := handler.Authorize(ctx, AuthInput{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actor.UserID != 7 || !actor.IsAdmin() {
			t.Errorf("unexpected actor %+v", actor)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewAuthHandler("other-secret", users)
		token, _ := other.GenerateToken(user)
		if _, err := handler.Authorize(context.Background(), AuthInput{Authorization: "Bearer " + token}); err == nil {
			t.Fatal("expected error for token signed with another secret")
		}
	})

	t.Run("RoleClaimIsIgnored", func(t *testing.T) {
		tokenString := signed(t, "test-secret", jwt.MapClaims{
			"user_id": user.ID,
			"role":    "ADMIN",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		actor, err := handler.Authorize(context.Background(), AuthInput{Authorization: "Bearer " + tokenString})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actor.Role != models.RoleUser {
			t.Errorf("expected USER from the store, got %s", actor.Role)
		}
	})

	t.Run("DemotionTakesEffect", func(t *testing.T) {
		token, _ := handler.GenerateToken(admin)
		if err := db.Model(&models.User{}).Where("id = ?", admin.ID).Update("role", models.RoleUser).Error; err != nil {
			t.Fatalf("failed to demote admin: %v", err)
		}
		actor, err := handler.Authorize(context.Background(), AuthInput{Authorization: "Bearer " + token})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actor.IsAdmin() {
			t.Errorf("demoted user still authorized as admin")
		}
	})

	t.Run("AlgNone", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": user.ID, "role": "ADMIN"})
		tokenString, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if _, err := handler.Authorize(context.Background(), AuthInput{Authorization: "Bearer " + tokenString}); err == nil {
			t.Fatal("expected unsigned token to be rejected")
		}
	})
}
