package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/postmeta/adapters/sqlite"
	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/domain/key"
	"github.com/artpar/postmeta/domain/post"
	"github.com/artpar/postmeta/ports"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "postmeta-test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createPost(t *testing.T, db *sqlite.DB, p post.Post) post.Post {
	t.Helper()
	if p.Status == "" {
		p.Status = post.StatusDraft
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt, p.UpdatedAt = baseTime, baseTime
	}
	created, err := sqlite.NewPostStore(db).Create(context.Background(), p)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return created
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

// -----------------------------------------------------------------------------
// PostStore Tests
// -----------------------------------------------------------------------------

func TestPostStore_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := sqlite.NewPostStore(db)
	ctx := context.Background()

	p := createPost(t, db, post.Post{AuthorID: "u1", Title: "Hello", Status: post.StatusPublish})
	if p.ID != 1 {
		t.Errorf("ID = %d, want 1", p.ID)
	}

	got, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "Hello" || got.AuthorID != "u1" || got.Status != post.StatusPublish {
		t.Errorf("Get = %+v", got)
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, baseTime)
	}
}

func TestPostStore_CreateExplicitID(t *testing.T) {
	db := setupTestDB(t)

	p := createPost(t, db, post.Post{ID: 42, Title: "answer"})
	if p.ID != 42 {
		t.Fatalf("ID = %d, want 42", p.ID)
	}
	next := createPost(t, db, post.Post{Title: "next"})
	if next.ID != 43 {
		t.Errorf("next ID = %d, want 43", next.ID)
	}
}

func TestPostStore_GetNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := sqlite.NewPostStore(db).Get(context.Background(), 404)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostStore_Update(t *testing.T) {
	db := setupTestDB(t)
	store := sqlite.NewPostStore(db)
	ctx := context.Background()

	p := createPost(t, db, post.Post{Title: "draft"})
	p = p.WithTitle("final").WithStatus(post.StatusPublish)
	p.UpdatedAt = baseTime.Add(time.Hour)
	if err := store.Update(ctx, p); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := store.Get(ctx, p.ID)
	if got.Title != "final" || got.Status != post.StatusPublish {
		t.Errorf("Get after update = %+v", got)
	}

	if err := store.Update(ctx, post.Post{ID: 999}); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("update missing: err = %v, want ErrNotFound", err)
	}
}

func TestPostStore_ListAndCount(t *testing.T) {
	db := setupTestDB(t)
	store := sqlite.NewPostStore(db)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		createPost(t, db, post.Post{Title: "p"})
	}

	page, err := store.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != 3 || page[1].ID != 4 {
		t.Errorf("page = %+v, want ids 3,4", page)
	}

	all, _ := store.List(ctx, 0, 0)
	if len(all) != 4 {
		t.Errorf("unlimited List returned %d, want 4", len(all))
	}

	n, _ := store.Count(ctx)
	if n != 4 {
		t.Errorf("Count = %d, want 4", n)
	}
}

// -----------------------------------------------------------------------------
// MetaStore Tests
// -----------------------------------------------------------------------------

func TestMetaStore_Upsert(t *testing.T) {
	db := setupTestDB(t)
	store := sqlite.NewMetaStore(db)
	ctx := context.Background()
	p := createPost(t, db, post.Post{ID: 42})

	if _, ok, err := store.Get(ctx, p.ID, "_custom_meta"); err != nil || ok {
		t.Fatalf("Get unset = (ok %v, err %v), want (false, nil)", ok, err)
	}

	if err := store.Set(ctx, p.ID, "_custom_meta", "Hello"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// Unchanged value is not an error.
	if err := store.Set(ctx, p.ID, "_custom_meta", "Hello"); err != nil {
		t.Fatalf("repeat Set failed: %v", err)
	}
	if err := store.Set(ctx, p.ID, "_custom_meta", "World"); err != nil {
		t.Fatalf("overwrite Set failed: %v", err)
	}

	v, ok, err := store.Get(ctx, p.ID, "_custom_meta")
	if err != nil || !ok || v != "World" {
		t.Errorf("Get = (%q, %v, %v), want (World, true, nil)", v, ok, err)
	}

	var rows int
	db.QueryRow(`SELECT COUNT(*) FROM postmeta WHERE post_id = ?`, p.ID).Scan(&rows)
	if rows != 1 {
		t.Errorf("postmeta rows = %d, want 1", rows)
	}
}

func TestMetaStore_Delete(t *testing.T) {
	db := setupTestDB(t)
	store := sqlite.NewMetaStore(db)
	ctx := context.Background()
	p := createPost(t, db, post.Post{})

	store.Set(ctx, p.ID, "k", "v")
	if err := store.Delete(ctx, p.ID, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, p.ID, "k"); err != nil {
		t.Fatalf("Delete of missing value failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, p.ID, "k"); ok {
		t.Error("value still present after Delete")
	}
}

func TestMetaStore_SetUnknownPost(t *testing.T) {
	db := setupTestDB(t)

	err := sqlite.NewMetaStore(db).Set(context.Background(), 777, "k", "v")
	if err == nil {
		t.Fatal("expected foreign key error for unknown post")
	}
}

// -----------------------------------------------------------------------------
// UserStore / KeyStore Tests
// -----------------------------------------------------------------------------

func TestUserStore_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := sqlite.NewUserStore(db)
	ctx := context.Background()

	u := ports.User{ID: "u1", Email: "ed@example.com", Name: "Ed", Role: identity.RoleEditor, CreatedAt: baseTime}
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Role != identity.RoleEditor || got.Name != "Ed" {
		t.Errorf("Get = %+v", got)
	}

	byEmail, err := store.GetByEmail(ctx, "ed@example.com")
	if err != nil || byEmail.ID != "u1" {
		t.Errorf("GetByEmail = (%+v, %v)", byEmail, err)
	}

	if err := store.Create(ctx, ports.User{ID: "u2", Email: "ed@example.com", Role: identity.RoleAuthor, CreatedAt: baseTime}); !errors.Is(err, ports.ErrConflict) {
		t.Errorf("duplicate email: err = %v, want ErrConflict", err)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}

	users, _ := store.List(ctx)
	if len(users) != 1 {
		t.Errorf("List returned %d users, want 1", len(users))
	}
}

func TestKeyStore_CreateGetRevoke(t *testing.T) {
	db := setupTestDB(t)
	users := sqlite.NewUserStore(db)
	store := sqlite.NewKeyStore(db)
	ctx := context.Background()

	users.Create(ctx, ports.User{ID: "u1", Email: "a@example.com", Role: identity.RoleAuthor, CreatedAt: baseTime})

	expires := baseTime.Add(24 * time.Hour)
	k := key.Key{
		ID:        "key-1",
		UserID:    "u1",
		Hash:      []byte("hash"),
		Prefix:    "pm_abcdefghi",
		Name:      "ci",
		ExpiresAt: &expires,
		CreatedAt: baseTime,
	}
	if err := store.Create(ctx, k); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	keys, err := store.Get(ctx, "pm_abcdefghi")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	if keys[0].ExpiresAt == nil || !keys[0].ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", keys[0].ExpiresAt, expires)
	}
	if keys[0].RevokedAt != nil {
		t.Error("new key should not be revoked")
	}

	if err := store.Revoke(ctx, "key-1", baseTime); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	keys, _ = store.Get(ctx, "pm_abcdefghi")
	if keys[0].RevokedAt == nil {
		t.Error("key should be revoked")
	}

	if err := store.Revoke(ctx, "key-1", baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}
	keys, _ = store.Get(ctx, "pm_abcdefghi")
	if !keys[0].RevokedAt.Equal(baseTime) {
		t.Errorf("RevokedAt = %v, want first revoke time %v", keys[0].RevokedAt, baseTime)
	}

	if err := store.Revoke(ctx, "missing", baseTime); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Revoke missing: err = %v, want ErrNotFound", err)
	}
}
