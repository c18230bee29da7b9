// README: Profile service manages identity rows and geocoded home locations.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"carpool/internal/types"
)

// Geocoder turns a free-text address into coordinates. ok is false when the
// address could not be resolved.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (p types.Point, ok bool, err error)
}

type store interface {
	Ensure(ctx context.Context, id Identity) error
	Get(ctx context.Context, id types.ID) (*UserLocation, error)
	UpdateHome(ctx context.Context, id types.ID, address *string, home *types.Point) error
	ListCandidates(ctx context.Context, q CandidateQuery) ([]UserLocation, error)
}

type Service struct {
	store    store
	geocoder Geocoder
	log      *slog.Logger
}

// NewService wires the profile service. geocoder may be nil, in which case
// addresses are only stored with caller-supplied coordinates.
func NewService(store *Store, geocoder Geocoder, log *slog.Logger) *Service {
	return &Service{store: store, geocoder: geocoder, log: log}
}

func (s *Service) Ensure(ctx context.Context, id Identity) error {
	if id.UID == "" {
		return fmt.Errorf("%w: missing uid", ErrBadRequest)
	}
	return s.store.Ensure(ctx, id)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*UserLocation, error) {
	return s.store.Get(ctx, id)
}

type UpdateHomeCommand struct {
	UserID  types.ID
	Address string
	Lat     *float64
	Lng     *float64
}

// UpdateHome stores the caller's home. Coordinates supplied by the client win;
// otherwise the address is geocoded. A failed lookup keeps the address but
// clears the coordinates, which makes the user ineligible for matching.
func (s *Service) UpdateHome(ctx context.Context, cmd UpdateHomeCommand) (*UserLocation, error) {
	var address *string
	if a := strings.TrimSpace(cmd.Address); a != "" {
		address = &a
	}

	var home *types.Point
	if cmd.Lat != nil && cmd.Lng != nil {
		p := types.Point{Lat: *cmd.Lat, Lng: *cmd.Lng}
		if !p.Valid() {
			return nil, fmt.Errorf("%w: invalid coordinates", ErrBadRequest)
		}
		home = &p
	} else if address != nil && s.geocoder != nil {
		p, ok, err := s.geocoder.Geocode(ctx, *address)
		switch {
		case err != nil:
			s.log.Warn("geocoding failed", "user_id", cmd.UserID, "error", err)
		case ok:
			home = &p
		default:
			s.log.Info("address not resolved", "user_id", cmd.UserID)
		}
	}

	if err := s.store.UpdateHome(ctx, cmd.UserID, address, home); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, cmd.UserID)
}

// ListCandidates serves the matching engine's population scan.
func (s *Service) ListCandidates(ctx context.Context, q CandidateQuery) ([]UserLocation, error) {
	return s.store.ListCandidates(ctx, q)
}
