// README: Match result store backed by PostgreSQL; replaces a requester's set in one transaction.
package matching

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carpool/internal/modules/preference"
	"carpool/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ReplaceForUser deletes the requester's rows and inserts results atomically.
// With ownedOnly=false every row naming the requester on either side goes;
// with ownedOnly=true only rows the requester computed (user_a) are replaced.
// A transaction-scoped advisory lock keyed on the requester serializes
// overlapping replaces at the database.
func (s *Store) ReplaceForUser(ctx context.Context, userID types.ID, results []MatchResult, ownedOnly bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(userID)); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}

	deleteSQL := `DELETE FROM match_results WHERE user_a_id = $1 OR user_b_id = $1`
	if ownedOnly {
		deleteSQL = `DELETE FROM match_results WHERE user_a_id = $1`
	}
	if _, err := tx.Exec(ctx, deleteSQL, string(userID)); err != nil {
		return fmt.Errorf("delete matches: %w", err)
	}

	if len(results) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"match_results"},
			[]string{"id", "user_a_id", "user_b_id", "direction", "detour_minutes", "time_overlap_minutes", "rank_score", "computed_at"},
			pgx.CopyFromSlice(len(results), func(i int) ([]any, error) {
				r := results[i]
				return []any{
					string(r.ID), string(r.UserA), string(r.UserB), string(r.Direction),
					r.DetourMinutes, r.OverlapMinutes, r.RankScore, r.ComputedAt,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("insert matches: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListForUser returns every row where userID is either side, with the other
// user resolved, best score first.
func (s *Store) ListForUser(ctx context.Context, userID types.ID) ([]StoredView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT mr.id, mr.user_a_id, mr.user_b_id, mr.direction,
		       mr.detour_minutes, mr.time_overlap_minutes, mr.rank_score, mr.computed_at,
		       partner.id, partner.display_name, partner.avatar_url, partner.home_address
		FROM match_results mr
		JOIN users partner
		  ON partner.id = CASE WHEN mr.user_a_id = $1 THEN mr.user_b_id ELSE mr.user_a_id END
		WHERE mr.user_a_id = $1 OR mr.user_b_id = $1
		ORDER BY mr.rank_score ASC, mr.id`, string(userID),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StoredView, error) {
		var (
			v                       StoredView
			id, a, b, dir, partner string
		)
		err := row.Scan(
			&id, &a, &b, &dir,
			&v.DetourMinutes, &v.OverlapMinutes, &v.RankScore, &v.ComputedAt,
			&partner, &v.PartnerName, &v.PartnerAvatar, &v.PartnerAddress,
		)
		if err != nil {
			return v, err
		}
		v.ID = types.ID(id)
		v.UserA = types.ID(a)
		v.UserB = types.ID(b)
		v.Direction = preference.Direction(dir)
		v.PartnerID = types.ID(partner)
		return v, nil
	})
}

// StoredView is a row of ListForUser before the partner address is reduced
// to an area hint.
type StoredView struct {
	MatchResult
	PartnerID      types.ID
	PartnerName    string
	PartnerAvatar  *string
	PartnerAddress *string
}
