// README: Matching service computes, ranks and persists a requester's carpool matches.
package matching

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carpool/internal/config"
	"carpool/internal/modules/preference"
	"carpool/internal/modules/profile"
	"carpool/internal/observability"
	"carpool/internal/types"
)

type ProfileReader interface {
	Get(ctx context.Context, id types.ID) (*profile.UserLocation, error)
	ListCandidates(ctx context.Context, q profile.CandidateQuery) ([]profile.UserLocation, error)
}

type PreferenceReader interface {
	List(ctx context.Context, userID types.ID) ([]preference.CommutePreference, error)
	ListByUsers(ctx context.Context, userIDs []types.ID) (map[types.ID][]preference.CommutePreference, error)
}

type ResultStore interface {
	ReplaceForUser(ctx context.Context, userID types.ID, results []MatchResult, ownedOnly bool) error
	ListForUser(ctx context.Context, userID types.ID) ([]StoredView, error)
}

type Service struct {
	store    ResultStore
	profiles ProfileReader
	prefs    PreferenceReader
	locker   Locker
	pipeline *Pipeline
	ranker   Ranker
	cfg      config.MatchingConfig
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store ResultStore, profiles ProfileReader, prefs PreferenceReader, locker Locker, cfg config.MatchingConfig, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		prefs:    prefs,
		locker:   locker,
		pipeline: NewPipeline(cfg),
		ranker:   NewRanker(cfg),
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// ComputeMatches recomputes the requester's matches from scratch and replaces
// the persisted set. Concurrent calls for the same requester are serialized.
func (s *Service) ComputeMatches(ctx context.Context, userID types.ID) (*ComputeResult, error) {
	start := time.Now()
	res, err := s.computeLocked(ctx, userID)
	observability.MatchComputeDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		observability.MatchComputations.WithLabelValues("ok").Inc()
		observability.MatchSurvivors.Observe(float64(res.Computed))
		s.log.Info("matches_computed", "user_id", userID, "count", res.Computed, "duration_ms", time.Since(start).Milliseconds())
	case IsPrecondition(err):
		observability.MatchComputations.WithLabelValues("precondition").Inc()
	default:
		observability.MatchComputations.WithLabelValues("error").Inc()
		s.log.Error("match computation failed", "user_id", userID, "error", err)
	}
	return res, err
}

func (s *Service) computeLocked(ctx context.Context, userID types.ID) (*ComputeResult, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockWait)
	unlock, err := s.locker.Lock(lockCtx, userID)
	cancel()
	if err != nil {
		return nil, err
	}
	defer unlock()

	requester, err := s.loadRequester(ctx, userID)
	if err != nil {
		return nil, err
	}

	outcomes, err := s.scanPopulation(ctx, requester)
	if err != nil {
		return nil, err
	}

	pairs := s.ranker.Rank(Survivors(outcomes))
	now := s.now().UTC()
	results := make([]MatchResult, len(pairs))
	summaries := make([]MatchSummary, len(pairs))
	for i, p := range pairs {
		results[i] = MatchResult{
			ID:             types.ID(uuid.NewString()),
			UserA:          userID,
			UserB:          p.Candidate.ID,
			Direction:      p.RequesterPref.Direction,
			DetourMinutes:  p.DetourMinutes,
			OverlapMinutes: float64(p.Overlap.Minutes),
			RankScore:      p.Score,
			ComputedAt:     now,
		}
		summaries[i] = MatchSummary{
			ID:             results[i].ID,
			PartnerID:      p.Candidate.ID,
			PartnerName:    p.Candidate.DisplayName,
			Direction:      p.RequesterPref.Direction,
			DetourMinutes:  Round1(p.DetourMinutes),
			OverlapMinutes: float64(p.Overlap.Minutes),
			RankScore:      Round1(p.Score),
		}
	}

	if err := s.store.ReplaceForUser(ctx, userID, results, s.cfg.ReplaceOwnedOnly); err != nil {
		return nil, err
	}
	return &ComputeResult{Computed: len(results), Matches: summaries}, nil
}

func (s *Service) loadRequester(ctx context.Context, userID types.ID) (Subject, error) {
	u, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return Subject{}, err
	}
	if !u.Eligible() {
		return Subject{}, ErrNoHomeLocation
	}
	prefs, err := s.prefs.List(ctx, userID)
	if err != nil {
		return Subject{}, err
	}
	if len(prefs) == 0 {
		return Subject{}, ErrNoPreferences
	}
	return Subject{User: *u, Prefs: prefs}, nil
}

// scanPopulation pages through nearby users and runs the pipeline on each page.
func (s *Service) scanPopulation(ctx context.Context, requester Subject) ([]Outcome, error) {
	var (
		all     []Outcome
		afterID types.ID
	)
	for {
		page, err := s.profiles.ListCandidates(ctx, profile.CandidateQuery{
			Exclude:  requester.User.ID,
			Center:   *requester.User.Home,
			RadiusMi: s.cfg.DistanceThresholdMi,
			AfterID:  afterID,
			Limit:    s.cfg.CandidatePageSize,
		})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		ids := make([]types.ID, len(page))
		for i, u := range page {
			ids[i] = u.ID
		}
		prefsByUser, err := s.prefs.ListByUsers(ctx, ids)
		if err != nil {
			return nil, err
		}
		subjects := make([]Subject, len(page))
		for i, u := range page {
			subjects[i] = Subject{User: u, Prefs: prefsByUser[u.ID]}
		}

		outcomes, err := s.pipeline.Run(ctx, requester, subjects)
		if err != nil {
			return nil, err
		}
		s.recordRejections(requester.User.ID, outcomes)
		all = append(all, outcomes...)

		if len(page) < s.cfg.CandidatePageSize {
			break
		}
		afterID = page[len(page)-1].ID
	}
	return all, nil
}

func (s *Service) recordRejections(userID types.ID, outcomes []Outcome) {
	for _, o := range outcomes {
		if o.Survived() {
			continue
		}
		observability.CandidateRejections.WithLabelValues(string(o.Rejected)).Inc()
		if o.Rejected == RejectInvalidData {
			s.log.Debug("skipping candidate with invalid data", "user_id", userID)
		}
	}
}

// ListMatches returns every match the user is part of, with the partner's
// location reduced to an area hint.
func (s *Service) ListMatches(ctx context.Context, userID types.ID) ([]MatchView, error) {
	rows, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]MatchView, len(rows))
	for i, r := range rows {
		out[i] = MatchView{
			MatchResult:   r.MatchResult,
			PartnerID:     r.PartnerID,
			PartnerName:   r.PartnerName,
			PartnerAvatar: r.PartnerAvatar,
			PartnerArea:   profile.AreaHint(r.PartnerAddress),
		}
	}
	return out, nil
}
