// README: Preference service validates and persists commute windows.
package preference

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"carpool/internal/types"
)

type store interface {
	Upsert(ctx context.Context, p *CommutePreference) error
	ListByUser(ctx context.Context, userID types.ID) ([]CommutePreference, error)
	ListByUsers(ctx context.Context, userIDs []types.ID) (map[types.ID][]CommutePreference, error)
	Delete(ctx context.Context, userID types.ID, d Direction) (bool, error)
}

type Service struct {
	store store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

type UpsertCommand struct {
	UserID    types.ID
	Direction Direction
	Earliest  string
	Latest    string
	Days      []Weekday
	Role      Role
}

// Upsert creates or replaces the caller's preference for one direction and
// returns the caller's full preference set.
func (s *Service) Upsert(ctx context.Context, cmd UpsertCommand) ([]CommutePreference, error) {
	if cmd.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrBadRequest)
	}
	earliest, err := ParseClock(cmd.Earliest)
	if err != nil {
		return nil, err
	}
	latest, err := ParseClock(cmd.Latest)
	if err != nil {
		return nil, err
	}
	p := &CommutePreference{
		ID:          types.ID(uuid.NewString()),
		UserID:      cmd.UserID,
		Direction:   cmd.Direction,
		EarliestMin: earliest,
		LatestMin:   latest,
		Days:        NormalizeDays(cmd.Days),
		Role:        cmd.Role,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, cmd.UserID)
}

func (s *Service) List(ctx context.Context, userID types.ID) ([]CommutePreference, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListByUsers serves the matching engine's population scan.
func (s *Service) ListByUsers(ctx context.Context, userIDs []types.ID) (map[types.ID][]CommutePreference, error) {
	return s.store.ListByUsers(ctx, userIDs)
}

func (s *Service) Delete(ctx context.Context, userID types.ID, d Direction) error {
	if !d.Valid() {
		return fmt.Errorf("%w: invalid direction %q", ErrBadRequest, d)
	}
	_, err := s.store.Delete(ctx, userID, d)
	return err
}
