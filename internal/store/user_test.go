package store

import (
	"context"
	"errors"
	"testing"
)

func TestUserCreate(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	u, err := us.Create(ctx, "Alice Liddell", "alice@example.com", nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero id")
	}
	if u.Name != "Alice Liddell" {
		t.Errorf("name = %q, want %q", u.Name, "Alice Liddell")
	}
	if u.Image != nil {
		t.Errorf("image = %v, want nil", *u.Image)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := us.Create(ctx, "Alice", "alice@example.com", nil); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := us.Create(ctx, "Alice Again", "alice@example.com", nil)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestUserGetByEmailCaseSensitive(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	us.Create(ctx, "Alice", "alice@example.com", nil)

	u, err := us.GetByEmail(ctx, "Alice@Example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u != nil {
		t.Error("expected nil for differently cased email")
	}
}

func TestUserGetByEmailNotFound(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.GetByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserUpsert(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	img := "https://img.example.com/a.png"
	u, created, err := us.Upsert(ctx, "Alice", "alice@example.com", &img)
	if err != nil {
		t.Fatalf("upsert new: %v", err)
	}
	if !created {
		t.Error("expected created = true for new user")
	}

	img2 := "https://img.example.com/b.png"
	u2, created, err := us.Upsert(ctx, "Alice L", "alice@example.com", &img2)
	if err != nil {
		t.Fatalf("upsert existing: %v", err)
	}
	if created {
		t.Error("expected created = false for existing user")
	}
	if u2.ID != u.ID {
		t.Errorf("id = %d, want %d", u2.ID, u.ID)
	}
	if u2.Name != "Alice L" {
		t.Errorf("name = %q, want %q", u2.Name, "Alice L")
	}
	if u2.Image == nil || *u2.Image != img2 {
		t.Errorf("image = %v, want %q", u2.Image, img2)
	}
}

func TestUserStoreNotConfigured(t *testing.T) {
	us := NewUserStore(nil)
	if us.Configured() {
		t.Error("expected Configured() = false")
	}
	if _, err := us.GetByEmail(context.Background(), "alice@example.com"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	if _, _, err := us.Upsert(context.Background(), "A", "alice@example.com", nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}
