// README: Preference store backed by PostgreSQL.
package preference

import (
	"context"

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

const selectColumns = `id, user_id, direction, earliest_minute, latest_minute, days_of_week, role`

// Upsert writes the preference keyed by (user_id, direction).
func (s *Store) Upsert(ctx context.Context, p *CommutePreference) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO commute_preferences (id, user_id, direction, earliest_minute, latest_minute, days_of_week, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, direction) DO UPDATE
		SET earliest_minute = EXCLUDED.earliest_minute,
		    latest_minute = EXCLUDED.latest_minute,
		    days_of_week = EXCLUDED.days_of_week,
		    role = EXCLUDED.role
		RETURNING id`,
		string(p.ID),
		string(p.UserID),
		string(p.Direction),
		p.EarliestMin,
		p.LatestMin,
		daysToInts(p.Days),
		string(p.Role),
	)
	var id string
	if err := row.Scan(&id); err != nil {
		return err
	}
	p.ID = types.ID(id)
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID types.ID) ([]CommutePreference, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM commute_preferences
		WHERE user_id = $1
		ORDER BY direction`, string(userID),
	)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByUsers loads the preferences of a page of candidates in one round trip.
func (s *Store) ListByUsers(ctx context.Context, userIDs []types.ID) (map[types.ID][]CommutePreference, error) {
	out := make(map[types.ID][]CommutePreference, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM commute_preferences
		WHERE user_id = ANY($1)
		ORDER BY user_id, direction`, ids,
	)
	if err != nil {
		return nil, err
	}
	prefs, err := collect(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range prefs {
		out[p.UserID] = append(out[p.UserID], p)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, userID types.ID, d Direction) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM commute_preferences
		WHERE user_id = $1 AND direction = $2`,
		string(userID), string(d),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func collect(rows pgx.Rows) ([]CommutePreference, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CommutePreference, error) {
		var (
			p         CommutePreference
			id, user  string
			direction string
			role      string
			days      []int32
		)
		if err := row.Scan(&id, &user, &direction, &p.EarliestMin, &p.LatestMin, &days, &role); err != nil {
			return p, err
		}
		p.ID = types.ID(id)
		p.UserID = types.ID(user)
		p.Direction = Direction(direction)
		p.Role = Role(role)
		p.Days = intsToDays(days)
		return p, nil
	})
}

func daysToInts(days []Weekday) []int32 {
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}

func intsToDays(v []int32) []Weekday {
	out := make([]Weekday, len(v))
	for i, d := range v {
		out[i] = Weekday(d)
	}
	return out
}
