// README: Profile store backed by PostgreSQL.
package profile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carpool/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const selectColumns = `id, email, display_name, avatar_url, home_address, home_lat, home_lng, created_at, updated_at`

// Ensure inserts the user on first sight and refreshes identity fields afterwards.
func (s *Store) Ensure(ctx context.Context, id Identity) error {
	var avatar *string
	if id.Picture != "" {
		avatar = &id.Picture
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, email, display_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
		    display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name),
		    avatar_url = COALESCE(EXCLUDED.avatar_url, users.avatar_url)`,
		string(id.UID), id.Email, id.Name, avatar,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*UserLocation, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM users WHERE id = $1`, string(id))
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) UpdateHome(ctx context.Context, id types.ID, address *string, home *types.Point) error {
	var lat, lng *float64
	if home != nil {
		lat, lng = &home.Lat, &home.Lng
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET home_address = $1, home_lat = $2, home_lng = $3, updated_at = NOW()
		WHERE id = $4`,
		address, lat, lng, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCandidates returns one keyset page of geocoded users inside the bounding
// box of q.Center/q.RadiusMi, excluding q.Exclude, ordered by id.
func (s *Store) ListCandidates(ctx context.Context, q CandidateQuery) ([]UserLocation, error) {
	box := BoundingBox(q.Center, q.RadiusMi)
	rows, err := s.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM users
		WHERE id <> $1
		  AND id > $2
		  AND home_lat IS NOT NULL AND home_lng IS NOT NULL
		  AND home_lat BETWEEN $3 AND $4
		  AND (
		        home_lng BETWEEN $5 AND $6
		     OR home_lng BETWEEN $5 + 360 AND $6 + 360
		     OR home_lng BETWEEN $5 - 360 AND $6 - 360
		  )
		ORDER BY id
		LIMIT $7`,
		string(q.Exclude), string(q.AfterID),
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng,
		q.Limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserLocation, error) {
		u, err := scanUser(row)
		if err != nil {
			return UserLocation{}, err
		}
		return *u, nil
	})
}

func scanUser(row pgx.Row) (*UserLocation, error) {
	var (
		u        UserLocation
		id       string
		lat, lng *float64
	)
	if err := row.Scan(&id, &u.Email, &u.DisplayName, &u.AvatarURL, &u.HomeAddress, &lat, &lng, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.ID = types.ID(id)
	if lat != nil && lng != nil {
		u.Home = &types.Point{Lat: *lat, Lng: *lng}
	}
	return &u, nil
}
