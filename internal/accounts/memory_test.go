package accounts

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreCreateAndFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	u, err := store.CreateUser(ctx, CreateUserInput{Email: " Farmer@Example.com ", DisplayName: "Farmer", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if u.Email != "farmer@example.com" || u.ID != 1 {
		t.Fatalf("unexpected user %+v", u)
	}

	found, err := store.FindUserByEmail(ctx, "FARMER@example.com")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.DisplayName != "Farmer" {
		t.Fatalf("unexpected user %+v", found)
	}
}

func TestMemoryStoreRejectsDuplicates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if _, err := store.CreateUser(ctx, CreateUserInput{Email: "a@b.co"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := store.CreateUser(ctx, CreateUserInput{Email: "A@B.co"}); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
	if _, err := store.CreateUser(ctx, CreateUserInput{Email: "  "}); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
}

func TestMemoryStoreUnknownUser(t *testing.T) {
	if _, err := NewMemoryStore().FindUserByEmail(context.Background(), "nobody@x.io"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
