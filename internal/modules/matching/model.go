// README: Match candidates, persisted match results and rejection reasons.
package matching

import (
	"errors"
	"math"
	"time"

	"carpool/internal/modules/preference"
	"carpool/internal/modules/profile"
	"carpool/internal/types"
)

var (
	ErrNoHomeLocation = errors.New("please set your home address first")
	ErrNoPreferences  = errors.New("please set your commute preferences first")
	ErrBusy           = errors.New("match computation already running for this user")
)

// IsPrecondition reports whether err means the requester must fix their
// profile before matching can run.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoHomeLocation) || errors.Is(err, ErrNoPreferences)
}

// Subject is an immutable snapshot of one user as seen by the pipeline.
type Subject struct {
	User  profile.UserLocation
	Prefs []preference.CommutePreference
}

// RejectReason tags why a candidate or a preference pair was filtered.
// The empty reason means the pair survived.
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectTooFar      RejectReason = "too_far"
	RejectDirection   RejectReason = "direction_mismatch"
	RejectRoles       RejectReason = "roles_incompatible"
	RejectNoOverlap   RejectReason = "no_schedule_overlap"
	RejectDetour      RejectReason = "detour_too_long"
	RejectInvalidData RejectReason = "invalid_data"
)

// Pair is a surviving (requester preference, candidate preference) pairing.
type Pair struct {
	Requester     types.ID
	Candidate     profile.UserLocation
	RequesterPref preference.CommutePreference
	CandidatePref preference.CommutePreference
	DetourMinutes float64
	Overlap       Overlap
	Score         float64
}

// Outcome is the verdict for one candidate pair: Rejected is set, or Pair is.
type Outcome struct {
	Rejected RejectReason
	Pair     *Pair
}

func (o Outcome) Survived() bool { return o.Rejected == RejectNone && o.Pair != nil }

func rejected(r RejectReason) Outcome { return Outcome{Rejected: r} }

// MatchResult is the persisted row. UserA is always the requester that
// computed it.
type MatchResult struct {
	ID             types.ID
	UserA          types.ID
	UserB          types.ID
	Direction      preference.Direction
	DetourMinutes  float64
	OverlapMinutes float64
	RankScore      float64
	ComputedAt     time.Time
}

// MatchView is a MatchResult resolved for one viewer.
type MatchView struct {
	MatchResult
	PartnerID     types.ID
	PartnerName   string
	PartnerAvatar *string
	PartnerArea   string
}

// ComputeResult is returned by ComputeMatches.
type ComputeResult struct {
	Computed int
	Matches  []MatchSummary
}

// MatchSummary is the display form of a freshly computed match.
type MatchSummary struct {
	ID             types.ID
	PartnerID      types.ID
	PartnerName    string
	Direction      preference.Direction
	DetourMinutes  float64
	OverlapMinutes float64
	RankScore      float64
}

// Round1 rounds to one decimal place for display.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
