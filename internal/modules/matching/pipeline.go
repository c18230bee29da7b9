// README: Two-stage candidate filter: population prune, then preference-pair filters.
package matching

import (
	"context"

	"golang.org/x/sync/errgroup"

	"carpool/internal/config"
	"carpool/internal/modules/preference"
	"carpool/internal/modules/profile"
)

// Pipeline applies the filters in a fixed order:
// distance -> direction -> roles -> schedule -> detour.
type Pipeline struct {
	cfg config.MatchingConfig
}

func NewPipeline(cfg config.MatchingConfig) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Prefilter is the whole-user prune, applied once per candidate.
func (p *Pipeline) Prefilter(requester, candidate profile.UserLocation) RejectReason {
	if !requester.Eligible() || !candidate.Eligible() {
		return RejectInvalidData
	}
	if DistanceMiles(*requester.Home, *candidate.Home) > p.cfg.DistanceThresholdMi {
		return RejectTooFar
	}
	return RejectNone
}

// EvaluatePair runs the preference-level filters for one pairing of a
// requester preference with a candidate preference.
func (p *Pipeline) EvaluatePair(requester profile.UserLocation, mine preference.CommutePreference, candidate profile.UserLocation, theirs preference.CommutePreference) Outcome {
	if mine.Validate() != nil || theirs.Validate() != nil {
		return rejected(RejectInvalidData)
	}
	if mine.Direction != theirs.Direction {
		return rejected(RejectDirection)
	}
	if !RolesCompatible(mine.Role, theirs.Role) {
		return rejected(RejectRoles)
	}
	overlap := ScheduleOverlap(mine, theirs)
	if !overlap.Viable() {
		return rejected(RejectNoOverlap)
	}
	detour := DetourMinutes(*requester.Home, *candidate.Home, p.cfg.Workplace, p.cfg.MinutesPerMile)
	if detour > p.cfg.DetourThresholdMin {
		return rejected(RejectDetour)
	}
	return Outcome{Pair: &Pair{
		Requester:     requester.ID,
		Candidate:     candidate,
		RequesterPref: mine,
		CandidatePref: theirs,
		DetourMinutes: detour,
		Overlap:       overlap,
	}}
}

// EvaluateCandidate returns one outcome when the candidate is pruned as a
// whole, otherwise one outcome per preference pairing.
func (p *Pipeline) EvaluateCandidate(requester, candidate Subject) []Outcome {
	if reason := p.Prefilter(requester.User, candidate.User); reason != RejectNone {
		return []Outcome{rejected(reason)}
	}
	out := make([]Outcome, 0, len(requester.Prefs)*len(candidate.Prefs))
	for _, mine := range requester.Prefs {
		for _, theirs := range candidate.Prefs {
			out = append(out, p.EvaluatePair(requester.User, mine, candidate.User, theirs))
		}
	}
	return out
}

// Run evaluates every candidate, at most cfg.Workers at a time. Outcomes keep
// candidate order so ranking ties stay stable.
func (p *Pipeline) Run(ctx context.Context, requester Subject, candidates []Subject) ([]Outcome, error) {
	perCandidate := make([][]Outcome, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.cfg.Workers))
	for i := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perCandidate[i] = p.EvaluateCandidate(requester, candidates[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Outcome
	for _, outcomes := range perCandidate {
		out = append(out, outcomes...)
	}
	return out, nil
}

// Survivors extracts the surviving pairs, preserving order.
func Survivors(outcomes []Outcome) []Pair {
	var out []Pair
	for _, o := range outcomes {
		if o.Survived() {
			out = append(out, *o.Pair)
		}
	}
	return out
}
