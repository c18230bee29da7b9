// README: DB-backed preference store tests (requires CARPOOL_TEST_DSN).
package preference

import (
	"context"
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
	for _, id := range []string{"u1", "u2"} {
		if _, err := db.Exec(ctx, `INSERT INTO users (id) VALUES ($1)`, id); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	return NewStore(db)
}

func TestStore_UpsertKeepsOneRowPerDirection(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := &CommutePreference{ID: "p1", UserID: "u1", Direction: DirectionToWork, EarliestMin: 420, LatestMin: 510, Days: []Weekday{Monday, Wednesday}, Role: RoleDriver}
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second := &CommutePreference{ID: "p2", UserID: "u1", Direction: DirectionToWork, EarliestMin: 435, LatestMin: 525, Days: Workweek(), Role: RoleEither}
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if second.ID != "p1" {
		t.Fatalf("upsert should keep the original id, got %s", second.ID)
	}

	prefs, err := store.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(prefs) != 1 || prefs[0].EarliestMin != 435 || len(prefs[0].Days) != 5 || prefs[0].Role != RoleEither {
		t.Fatalf("unexpected preferences: %+v", prefs)
	}
}

func TestStore_ListByUsersAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, p := range []*CommutePreference{
		{ID: "a", UserID: "u1", Direction: DirectionToWork, EarliestMin: 420, LatestMin: 510, Days: Workweek(), Role: RoleDriver},
		{ID: "b", UserID: "u1", Direction: DirectionFromWork, EarliestMin: 1020, LatestMin: 1080, Days: Workweek(), Role: RoleDriver},
		{ID: "c", UserID: "u2", Direction: DirectionToWork, EarliestMin: 450, LatestMin: 540, Days: []Weekday{Friday}, Role: RoleRider},
	} {
		if err := store.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert %s: %v", p.ID, err)
		}
	}

	byUser, err := store.ListByUsers(ctx, []types.ID{"u1", "u2", "nobody"})
	if err != nil {
		t.Fatalf("list by users: %v", err)
	}
	if len(byUser["u1"]) != 2 || len(byUser["u2"]) != 1 || len(byUser["nobody"]) != 0 {
		t.Fatalf("unexpected grouping: %+v", byUser)
	}
	if byUser["u2"][0].Days[0] != Friday {
		t.Fatalf("days not round-tripped: %+v", byUser["u2"][0])
	}

	deleted, err := store.Delete(ctx, "u1", DirectionFromWork)
	if err != nil || !deleted {
		t.Fatalf("delete: %v, %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "u1", DirectionFromWork)
	if err != nil || deleted {
		t.Fatalf("second delete should report nothing removed: %v, %v", deleted, err)
	}
	if prefs, _ := store.ListByUser(ctx, "u1"); len(prefs) != 1 {
		t.Fatalf("expected one remaining preference, got %d", len(prefs))
	}
}
