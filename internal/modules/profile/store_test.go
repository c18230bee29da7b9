// README: DB-backed profile store tests (requires CARPOOL_TEST_DSN).
package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"carpool/internal/infra"
	"carpool/internal/logging"
	"carpool/internal/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("CARPOOL_TEST_DSN")
	if dsn == "" {
		t.Skip("CARPOOL_TEST_DSN not set; skipping DB-backed store tests")
	}
	if err := infra.Migrate(dsn, logging.Discard()); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	ctx := context.Background()
	db, err := infra.NewDB(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	if _, err := db.Exec(ctx, "TRUNCATE TABLE match_results, commute_preferences, users"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewStore(db)
}

func TestStore_EnsureIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Ensure(ctx, Identity{UID: "u1", Email: "a@example.com", Name: "Ada", Picture: "https://img/a.png"}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// A later token without a picture must not wipe the stored avatar.
	if err := store.Ensure(ctx, Identity{UID: "u1", Name: "Ada L."}); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	u, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Email != "a@example.com" || u.DisplayName != "Ada L." || u.AvatarURL == nil || u.Home != nil {
		t.Fatalf("unexpected user: %+v", u)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_UpdateHome(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	_ = store.Ensure(ctx, Identity{UID: "u1"})

	addr := "1 Elm St, Verona, WI"
	if err := store.UpdateHome(ctx, "u1", &addr, &types.Point{Lat: 42.99, Lng: -89.53}); err != nil {
		t.Fatalf("update: %v", err)
	}
	u, _ := store.Get(ctx, "u1")
	if !u.Eligible() || *u.HomeAddress != addr {
		t.Fatalf("home not stored: %+v", u)
	}

	if err := store.UpdateHome(ctx, "u1", &addr, nil); err != nil {
		t.Fatalf("clear coords: %v", err)
	}
	u, _ = store.Get(ctx, "u1")
	if u.Eligible() {
		t.Fatalf("user without coordinates should be ineligible: %+v", u)
	}

	if err := store.UpdateHome(ctx, "ghost", nil, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListCandidatesPagesInsideBox(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	center := types.Point{Lat: 42.90, Lng: -89.50}

	seed := func(id string, p *types.Point) {
		if err := store.Ensure(ctx, Identity{UID: types.ID(id)}); err != nil {
			t.Fatalf("ensure %s: %v", id, err)
		}
		if err := store.UpdateHome(ctx, types.ID(id), nil, p); err != nil {
			t.Fatalf("home %s: %v", id, err)
		}
	}
	seed("me", &center)
	for i := 0; i < 5; i++ {
		seed(fmt.Sprintf("near-%d", i), &types.Point{Lat: 42.91 + float64(i)*0.01, Lng: -89.52})
	}
	seed("chicago", &types.Point{Lat: 41.8781, Lng: -87.6298})
	seed("nohome", nil)

	var got []types.ID
	var after types.ID
	for {
		page, err := store.ListCandidates(ctx, CandidateQuery{Exclude: "me", Center: center, RadiusMi: 30, AfterID: after, Limit: 2})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, u := range page {
			got = append(got, u.ID)
		}
		if len(page) < 2 {
			break
		}
		after = page[len(page)-1].ID
	}

	want := []types.ID{"near-0", "near-1", "near-2", "near-3", "near-4"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
}
