package store

import (
	"context"
	"errors"
	"testing"
)

func setupAPIKeyTestDB(t *testing.T) (*APIKeyStore, int64, int64) {
	t.Helper()
	db := setupTestDB(t)
	us := NewUserStore(db)
	a, err := us.Create(context.Background(), "Alice", "alice@example.com", nil)
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	b, err := us.Create(context.Background(), "Bob", "bob@example.com", nil)
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	return NewAPIKeyStore(db), a.ID, b.ID
}

func TestAPIKeyCreateAndList(t *testing.T) {
	ks, alice, bob := setupAPIKeyTestDB(t)
	ctx := context.Background()

	ks.Create(ctx, alice, "ci", "key-1")
	ks.Create(ctx, alice, "local", "key-2")
	ks.Create(ctx, bob, "ci", "key-3")

	keys, err := ks.ListByUser(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("len = %d, want 2", len(keys))
	}
	if keys[0].Name != "ci" || keys[1].Name != "local" {
		t.Errorf("names = %q, %q, want ci, local", keys[0].Name, keys[1].Name)
	}
}

func TestAPIKeyCreateDuplicateNamePerUser(t *testing.T) {
	ks, alice, _ := setupAPIKeyTestDB(t)
	ctx := context.Background()

	ks.Create(ctx, alice, "ci", "key-1")
	_, err := ks.Create(ctx, alice, "ci", "key-2")
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestAPIKeyRenameForeignOwner(t *testing.T) {
	ks, alice, bob := setupAPIKeyTestDB(t)
	ctx := context.Background()

	k, _ := ks.Create(ctx, alice, "ci", "key-1")

	got, err := ks.Rename(ctx, k.ID, bob, "stolen")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got != nil {
		t.Error("expected nil when renaming a foreign key")
	}

	own, _ := ks.GetOwned(ctx, k.ID, alice)
	if own.Name != "ci" {
		t.Errorf("name = %q, want unchanged %q", own.Name, "ci")
	}
}

func TestAPIKeyDeleteForeignOwner(t *testing.T) {
	ks, alice, bob := setupAPIKeyTestDB(t)
	ctx := context.Background()

	k, _ := ks.Create(ctx, alice, "ci", "key-1")

	deleted, err := ks.Delete(ctx, k.ID, bob)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted {
		t.Error("expected foreign delete to report false")
	}

	if own, _ := ks.GetOwned(ctx, k.ID, alice); own == nil {
		t.Error("row should remain for its owner")
	}

	deleted, _ = ks.Delete(ctx, k.ID, alice)
	if !deleted {
		t.Error("expected owner delete to report true")
	}
}

func TestAPIKeyGetByKey(t *testing.T) {
	ks, alice, _ := setupAPIKeyTestDB(t)
	ctx := context.Background()

	ks.Create(ctx, alice, "ci", "key-1")

	k, err := ks.GetByKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("get by key: %v", err)
	}
	if k == nil || k.UserID != alice {
		t.Errorf("key = %+v, want owned by %d", k, alice)
	}

	k, _ = ks.GetByKey(ctx, "nope")
	if k != nil {
		t.Error("expected nil for unknown key")
	}
}
