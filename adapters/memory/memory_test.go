package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artpar/postmeta/adapters/memory"
	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/domain/key"
	"github.com/artpar/postmeta/domain/post"
	"github.com/artpar/postmeta/ports"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// PostStore tests

func TestPostStore_CreateAssignsIDs(t *testing.T) {
	store := memory.NewPostStore()
	ctx := context.Background()

	p1, err := store.Create(ctx, post.Post{Title: "first"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	p2, _ := store.Create(ctx, post.Post{Title: "second"})

	if p1.ID != 1 || p2.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", p1.ID, p2.ID)
	}
}

func TestPostStore_CreateExplicitID(t *testing.T) {
	store := memory.NewPostStore()
	ctx := context.Background()

	p, _ := store.Create(ctx, post.Post{ID: 42, Title: "answer"})
	if p.ID != 42 {
		t.Fatalf("ID = %d, want 42", p.ID)
	}

	next, _ := store.Create(ctx, post.Post{Title: "next"})
	if next.ID != 43 {
		t.Errorf("next ID = %d, want 43", next.ID)
	}
}

func TestPostStore_GetNotFound(t *testing.T) {
	store := memory.NewPostStore()

	_, err := store.Get(context.Background(), 7)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostStore_Update(t *testing.T) {
	store := memory.NewPostStore()
	ctx := context.Background()

	p, _ := store.Create(ctx, post.Post{Title: "draft"})
	if err := store.Update(ctx, p.WithTitle("final")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := store.Get(ctx, p.ID)
	if got.Title != "final" {
		t.Errorf("Title = %q, want final", got.Title)
	}

	if err := store.Update(ctx, post.Post{ID: 99}); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("update missing: err = %v, want ErrNotFound", err)
	}
}

func TestPostStore_ListAndCount(t *testing.T) {
	store := memory.NewPostStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Create(ctx, post.Post{Title: "p"})
	}

	page, err := store.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != 2 || page[1].ID != 3 {
		t.Errorf("page = %+v, want ids 2,3", page)
	}

	past, _ := store.List(ctx, 10, 10)
	if len(past) != 0 {
		t.Errorf("offset past end returned %d posts", len(past))
	}

	n, _ := store.Count(ctx)
	if n != 5 {
		t.Errorf("Count = %d, want 5", n)
	}
}

// MetaStore tests

func TestMetaStore_GetUnset(t *testing.T) {
	store := memory.NewMetaStore()

	v, ok, err := store.Get(context.Background(), 1, "_custom_meta")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok || v != "" {
		t.Errorf("Get unset = (%q, %v), want (\"\", false)", v, ok)
	}
}

func TestMetaStore_SetGetDelete(t *testing.T) {
	store := memory.NewMetaStore()
	ctx := context.Background()

	if err := store.Set(ctx, 1, "_custom_meta", "Hello"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// Same value again is fine.
	if err := store.Set(ctx, 1, "_custom_meta", "Hello"); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	v, ok, _ := store.Get(ctx, 1, "_custom_meta")
	if !ok || v != "Hello" {
		t.Errorf("Get = (%q, %v), want (Hello, true)", v, ok)
	}

	// Values are scoped by post.
	if _, ok, _ := store.Get(ctx, 2, "_custom_meta"); ok {
		t.Error("value leaked to another post")
	}

	if err := store.Delete(ctx, 1, "_custom_meta"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, 1, "_custom_meta"); err != nil {
		t.Fatalf("Delete of missing value failed: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestMetaStore_Concurrent(t *testing.T) {
	store := memory.NewMetaStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			store.Set(ctx, id, "k", "v")
			store.Get(ctx, id, "k")
		}(int64(i))
	}
	wg.Wait()

	if store.Len() != 50 {
		t.Errorf("Len = %d, want 50", store.Len())
	}
}

// UserStore tests

func TestUserStore_CreateAndGet(t *testing.T) {
	store := memory.NewUserStore()
	ctx := context.Background()

	u := ports.User{ID: "u1", Email: "ed@example.com", Role: identity.RoleEditor, CreatedAt: baseTime}
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Role != identity.RoleEditor {
		t.Errorf("Role = %s, want editor", got.Role)
	}

	byEmail, err := store.GetByEmail(ctx, "ed@example.com")
	if err != nil || byEmail.ID != "u1" {
		t.Errorf("GetByEmail = (%+v, %v)", byEmail, err)
	}

	if err := store.Create(ctx, ports.User{ID: "u2", Email: "ed@example.com"}); !errors.Is(err, ports.ErrConflict) {
		t.Errorf("duplicate email: err = %v, want ErrConflict", err)
	}
	if err := store.Create(ctx, ports.User{ID: "u1", Email: "other@example.com"}); !errors.Is(err, ports.ErrConflict) {
		t.Errorf("duplicate id: err = %v, want ErrConflict", err)
	}

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
}

func TestUserStore_ListOrdered(t *testing.T) {
	store := memory.NewUserStore()
	ctx := context.Background()

	store.Create(ctx, ports.User{ID: "b", Email: "b@example.com", CreatedAt: baseTime.Add(time.Hour)})
	store.Create(ctx, ports.User{ID: "a", Email: "a@example.com", CreatedAt: baseTime})

	users, _ := store.List(ctx)
	if len(users) != 2 || users[0].ID != "a" || users[1].ID != "b" {
		t.Errorf("List = %+v, want a then b", users)
	}
}

// KeyStore tests

func TestKeyStore_CreateAndGet(t *testing.T) {
	store := memory.NewKeyStore()
	ctx := context.Background()

	store.Create(ctx, key.Key{ID: "k1", UserID: "u1", Prefix: "pm_abc123456"})
	store.Create(ctx, key.Key{ID: "k2", UserID: "u1", Prefix: "pm_zzz999999"})

	keys, err := store.Get(ctx, "pm_abc123456")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(keys) != 1 || keys[0].ID != "k1" {
		t.Errorf("Get = %+v, want k1", keys)
	}

	none, _ := store.Get(ctx, "pm_nothing00")
	if len(none) != 0 {
		t.Errorf("expected no keys, got %d", len(none))
	}
}

func TestKeyStore_Revoke(t *testing.T) {
	store := memory.NewKeyStore()
	ctx := context.Background()

	store.Create(ctx, key.Key{ID: "k1", Prefix: "pm_abc123456"})
	if err := store.Revoke(ctx, "k1", baseTime); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	keys, _ := store.Get(ctx, "pm_abc123456")
	if keys[0].RevokedAt == nil || !keys[0].RevokedAt.Equal(baseTime) {
		t.Errorf("RevokedAt = %v, want %v", keys[0].RevokedAt, baseTime)
	}

	if err := store.Revoke(ctx, "k1", baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}
	keys, _ = store.Get(ctx, "pm_abc123456")
	if !keys[0].RevokedAt.Equal(baseTime) {
		t.Errorf("second Revoke moved RevokedAt to %v", keys[0].RevokedAt)
	}

	if err := store.Revoke(ctx, "missing", baseTime); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Revoke missing: err = %v, want ErrNotFound", err)
	}
}
