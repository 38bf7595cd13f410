package auth

import (
	"context"
	"testing"

	"github.com/dukerupert/dandy/internal/model"
)

func TestWithIdentityAndFromContext(t *testing.T) {
	id := &Identity{
		User:         model.User{ID: 1, Email: "a@example.com"},
		Provider:     ProviderCustom,
		SessionToken: "tok",
	}

	ctx := WithIdentity(context.Background(), id)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected Identity in context")
	}
	if got.User.ID != 1 {
		t.Errorf("User.ID = %d, want 1", got.User.ID)
	}
	if got.Provider != ProviderCustom {
		t.Errorf("Provider = %q, want %q", got.Provider, ProviderCustom)
	}
	if got.SessionToken != "tok" {
		t.Errorf("SessionToken = %q, want %q", got.SessionToken, "tok")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing Identity")
	}
}

func TestFromContextNilIdentity(t *testing.T) {
	_, ok := FromContext(WithIdentity(context.Background(), nil))
	if ok {
		t.Error("expected false for nil Identity")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithIdentity(context.Background(), &Identity{User: model.User{ID: 7}})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}
