// README: Matching service tests over in-memory profile, preference and result stores.
package matching

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"carpool/internal/config"
	"carpool/internal/logging"
	"carpool/internal/modules/preference"
	"carpool/internal/modules/profile"
	"carpool/internal/types"
)

type memProfiles struct {
	mu    sync.Mutex
	users map[types.ID]profile.UserLocation
	pages int
}

func (m *memProfiles) put(u profile.UserLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memProfiles) Get(_ context.Context, id types.ID) (*profile.UserLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return &u, nil
}

func (m *memProfiles) ListCandidates(_ context.Context, q profile.CandidateQuery) ([]profile.UserLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages++
	var out []profile.UserLocation
	for _, u := range m.users {
		if u.ID == q.Exclude || u.Home == nil || u.ID <= q.AfterID {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

type memPrefs struct {
	mu    sync.Mutex
	prefs map[types.ID][]preference.CommutePreference
}

func (m *memPrefs) List(_ context.Context, id types.ID) ([]preference.CommutePreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs[id], nil
}

func (m *memPrefs) ListByUsers(ctx context.Context, ids []types.ID) (map[types.ID][]preference.CommutePreference, error) {
	out := make(map[types.ID][]preference.CommutePreference, len(ids))
	for _, id := range ids {
		out[id], _ = m.List(ctx, id)
	}
	return out, nil
}

type memResults struct {
	mu       sync.Mutex
	rows     []MatchResult
	profiles *memProfiles
	failNext error
}

func (m *memResults) ReplaceForUser(_ context.Context, userID types.ID, results []MatchResult, ownedOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	kept := m.rows[:0:0]
	for _, r := range m.rows {
		if r.UserA == userID || (!ownedOnly && r.UserB == userID) {
			continue
		}
		kept = append(kept, r)
	}
	m.rows = append(kept, results...)
	return nil
}

func (m *memResults) ListForUser(ctx context.Context, userID types.ID) ([]StoredView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StoredView
	for _, r := range m.rows {
		partner := r.UserB
		switch userID {
		case r.UserA:
		case r.UserB:
			partner = r.UserA
		default:
			continue
		}
		p, err := m.profiles.Get(ctx, partner)
		if err != nil {
			return nil, err
		}
		out = append(out, StoredView{
			MatchResult:    r,
			PartnerID:      p.ID,
			PartnerName:    p.DisplayName,
			PartnerAvatar:  p.AvatarURL,
			PartnerAddress: p.HomeAddress,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RankScore < out[j].RankScore })
	return out, nil
}

type fixture struct {
	svc      *Service
	profiles *memProfiles
	prefs    *memPrefs
	results  *memResults
}

func newFixture(t *testing.T, mutate func(*config.MatchingConfig)) *fixture {
	t.Helper()
	cfg := config.DefaultMatchingConfig()
	cfg.LockWait = 50 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	profiles := &memProfiles{users: make(map[types.ID]profile.UserLocation)}
	prefs := &memPrefs{prefs: make(map[types.ID][]preference.CommutePreference)}
	results := &memResults{profiles: profiles}
	svc := NewService(results, profiles, prefs, NewLocalLocker(), cfg, logging.Discard())
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, profiles: profiles, prefs: prefs, results: results}
}

func (f *fixture) addUser(id types.ID, home types.Point, address string, prefs ...preference.CommutePreference) {
	u := userAt(id, home)
	u.HomeAddress = &address
	f.profiles.put(u)
	for i := range prefs {
		prefs[i].UserID = id
		prefs[i].ID = types.ID(string(id) + "-" + string(prefs[i].Direction))
	}
	f.prefs.mu.Lock()
	f.prefs.prefs[id] = prefs
	f.prefs.mu.Unlock()
}

func TestComputeMatches_VisibleToBothUsers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.addUser("alice", requesterHome, "1 Elm St, Verona, WI", morning(preference.RoleDriver))
	f.addUser("bob", nearbyHome, "9 Oak Ave, Fitchburg, WI", morning(preference.RoleRider))
	f.addUser("carol", farHome, "5 Lake Shore Dr, Chicago, IL", morning(preference.RoleRider))

	res, err := f.svc.ComputeMatches(ctx, "alice")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Computed != 1 || len(res.Matches) != 1 {
		t.Fatalf("expected exactly one match, got %+v", res)
	}
	m := res.Matches[0]
	if m.PartnerID != "bob" || m.OverlapMinutes != 90 || m.Direction != preference.DirectionToWork {
		t.Fatalf("unexpected match: %+v", m)
	}
	if m.DetourMinutes != Round1(m.DetourMinutes) || m.RankScore != Round1(m.RankScore) {
		t.Fatalf("summary values should be rounded: %+v", m)
	}

	mine, err := f.svc.ListMatches(ctx, "alice")
	if err != nil {
		t.Fatalf("list alice: %v", err)
	}
	if len(mine) != 1 || mine[0].PartnerID != "bob" || mine[0].PartnerArea != "Fitchburg" {
		t.Fatalf("alice view: %+v", mine)
	}

	theirs, err := f.svc.ListMatches(ctx, "bob")
	if err != nil {
		t.Fatalf("list bob: %v", err)
	}
	if len(theirs) != 1 || theirs[0].PartnerID != "alice" || theirs[0].PartnerArea != "Verona" {
		t.Fatalf("bob view: %+v", theirs)
	}
	if theirs[0].UserA != "alice" {
		t.Fatalf("row should record alice as the requester, got %s", theirs[0].UserA)
	}
}

func TestComputeMatches_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.addUser("alice", requesterHome, "1 Elm St, Verona, WI", morning(preference.RoleEither))
	f.addUser("bob", nearbyHome, "9 Oak Ave, Fitchburg, WI", morning(preference.RoleEither))

	for i := 0; i < 3; i++ {
		if _, err := f.svc.ComputeMatches(ctx, "alice"); err != nil {
			t.Fatalf("compute %d: %v", i, err)
		}
	}
	views, _ := f.svc.ListMatches(ctx, "alice")
	if len(views) != 1 {
		t.Fatalf("recompute should replace, not append: %d rows", len(views))
	}
}

func TestComputeMatches_ReplaceDropsStalePartner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.addUser("alice", requesterHome, "1 Elm St, Verona, WI", morning(preference.RoleEither))
	f.addUser("bob", nearbyHome, "9 Oak Ave, Fitchburg, WI", morning(preference.RoleEither))

	if _, err := f.svc.ComputeMatches(ctx, "alice"); err != nil {
		t.Fatalf("compute: %v", err)
	}

	f.addUser("bob", farHome, "5 Lake Shore Dr, Chicago, IL", morning(preference.RoleEither))
	res, err := f.svc.ComputeMatches(ctx, "alice")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if res.Computed != 0 {
		t.Fatalf("expected no matches after bob moved, got %d", res.Computed)
	}
	if views, _ := f.svc.ListMatches(ctx, "bob"); len(views) != 0 {
		t.Fatalf("bob should no longer see alice: %+v", views)
	}
}

func TestComputeMatches_DeleteScope(t *testing.T) {
	for _, ownedOnly := range []bool{false, true} {
		f := newFixture(t, func(c *config.MatchingConfig) { c.ReplaceOwnedOnly = ownedOnly })
		ctx := context.Background()
		f.addUser("alice", requesterHome, "1 Elm St, Verona, WI", morning(preference.RoleEither))
		f.addUser("bob", nearbyHome, "9 Oak Ave, Fitchburg, WI", morning(preference.RoleEither))

		if _, err := f.svc.ComputeMatches(ctx, "bob"); err != nil {
			t.Fatalf("compute bob: %v", err)
		}
		if _, err := f.svc.ComputeMatches(ctx, "alice"); err != nil {
			t.Fatalf("compute alice: %v", err)
		}

		views, _ := f.svc.ListMatches(ctx, "alice")
		want := 1
		if ownedOnly {
			want = 2
		}
		if len(views) != want {
			t.Fatalf("ownedOnly=%v: alice sees %d rows, want %d", ownedOnly, len(views), want)
		}
	}
}

func TestComputeMatches_Preconditions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.profiles.put(candidateNamed("homeless"))
	f.addUser("noprefs", requesterHome, "1 Elm St, Verona, WI")

	if _, err := f.svc.ComputeMatches(ctx, "homeless"); !errors.Is(err, ErrNoHomeLocation) {
		t.Fatalf("expected ErrNoHomeLocation, got %v", err)
	}
	if _, err := f.svc.ComputeMatches(ctx, "noprefs"); !errors.Is(err, ErrNoPreferences) {
		t.Fatalf("expected ErrNoPreferences, got %v", err)
	}
	if !IsPrecondition(ErrNoPreferences) || IsPrecondition(ErrBusy) {
		t.Fatal("IsPrecondition classification is wrong")
	}
	if _, err := f.svc.ComputeMatches(ctx, "ghost"); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestComputeMatches_PagesThroughPopulation(t *testing.T) {
	f := newFixture(t, func(c *config.MatchingConfig) { c.CandidatePageSize = 2 })
	ctx := context.Background()
	f.addUser("a-requester", requesterHome, "1 Elm St, Verona, WI", morning(preference.RoleEither))
	for _, id := range []types.ID{"b1", "b2", "b3", "b4", "b5"} {
		f.addUser(id, nearbyHome, "9 Oak Ave, Fitchburg, WI", morning(preference.RoleEither))
	}

	res, err := f.svc.ComputeMatches(ctx, "a-requester")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Computed != 5 {
		t.Fatalf("expected 5 matches across pages, got %d", res.Computed)
	}
	if f.profiles.pages != 3 {
		t.Fatalf("expected 3 candidate pages, got %d", f.profiles.pages)
	}
	// Equal scores keep population order.
	for i, id := range []types.ID{"b1", "b2", "b3", "b4", "b5"} {
		if res.Matches[i].PartnerID != id {
			t.Fatalf("match[%d] = %s, want %s", i, res.Matches[i].PartnerID, id)
		}
	}
}

func TestComputeMatches_StoreFailureKeepsPreviousSet(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.addUser("alice", requesterHome, "1 Elm St, Verona, WI", morning(preference.RoleEither))
	f.addUser("bob", nearbyHome, "9 Oak Ave, Fitchburg, WI", morning(preference.RoleEither))

	if _, err := f.svc.ComputeMatches(ctx, "alice"); err != nil {
		t.Fatalf("compute: %v", err)
	}
	f.results.failNext = errors.New("connection reset")
	if _, err := f.svc.ComputeMatches(ctx, "alice"); err == nil {
		t.Fatal("expected store error")
	}
	if views, _ := f.svc.ListMatches(ctx, "alice"); len(views) != 1 {
		t.Fatalf("previous set should survive a failed replace, got %d rows", len(views))
	}
}

func TestComputeMatches_BusyWhileLocked(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.addUser("alice", requesterHome, "1 Elm St, Verona, WI", morning(preference.RoleEither))

	unlock, err := f.svc.locker.Lock(ctx, "alice")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := f.svc.ComputeMatches(ctx, "alice"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	unlock()
	if _, err := f.svc.ComputeMatches(ctx, "alice"); err != nil {
		t.Fatalf("compute after unlock: %v", err)
	}
}
