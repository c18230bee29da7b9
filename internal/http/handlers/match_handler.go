// README: Match handlers: list persisted matches and trigger a recomputation.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/matching"
	"carpool/internal/types"
)

type MatchService interface {
	ListMatches(ctx context.Context, userID types.ID) ([]matching.MatchView, error)
	ComputeMatches(ctx context.Context, userID types.ID) (*matching.ComputeResult, error)
}

type MatchHandler struct {
	matches MatchService
}

func NewMatchHandler(svc MatchService) *MatchHandler {
	return &MatchHandler{matches: svc}
}

// matchDTO never carries the partner's full address, only the area hint.
type matchDTO struct {
	ID             string    `json:"id"`
	UserAID        string    `json:"user_a_id"`
	UserBID        string    `json:"user_b_id"`
	Direction      string    `json:"direction"`
	DetourMinutes  float64   `json:"detour_minutes"`
	OverlapMinutes float64   `json:"time_overlap_minutes"`
	RankScore      float64   `json:"rank_score"`
	ComputedAt     time.Time `json:"computed_at"`
	PartnerID      string    `json:"partner_id"`
	PartnerName    string    `json:"partner_name"`
	PartnerAvatar  *string   `json:"partner_avatar"`
	PartnerAddress *string   `json:"partner_address"`
}

func (h *MatchHandler) List(c *gin.Context) {
	views, err := h.matches.ListMatches(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]matchDTO, len(views))
	for i, v := range views {
		out[i] = matchDTO{
			ID:             string(v.ID),
			UserAID:        string(v.UserA),
			UserBID:        string(v.UserB),
			Direction:      string(v.Direction),
			DetourMinutes:  v.DetourMinutes,
			OverlapMinutes: v.OverlapMinutes,
			RankScore:      v.RankScore,
			ComputedAt:     v.ComputedAt,
			PartnerID:      string(v.PartnerID),
			PartnerName:    v.PartnerName,
			PartnerAvatar:  v.PartnerAvatar,
		}
		if v.PartnerArea != "" {
			area := v.PartnerArea
			out[i].PartnerAddress = &area
		}
	}
	writeJSON(c, http.StatusOK, out)
}

type matchSummaryDTO struct {
	ID             string  `json:"id"`
	PartnerID      string  `json:"partner_id"`
	PartnerName    string  `json:"partner_name"`
	Direction      string  `json:"direction"`
	DetourMinutes  float64 `json:"detour_minutes"`
	OverlapMinutes float64 `json:"time_overlap_minutes"`
	RankScore      float64 `json:"rank_score"`
}

type computeResp struct {
	Computed int               `json:"computed"`
	Matches  []matchSummaryDTO `json:"matches"`
}

func (h *MatchHandler) Compute(c *gin.Context) {
	res, err := h.matches.ComputeMatches(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp := computeResp{Computed: res.Computed, Matches: make([]matchSummaryDTO, len(res.Matches))}
	for i, m := range res.Matches {
		resp.Matches[i] = matchSummaryDTO{
			ID:             string(m.ID),
			PartnerID:      string(m.PartnerID),
			PartnerName:    m.PartnerName,
			Direction:      string(m.Direction),
			DetourMinutes:  m.DetourMinutes,
			OverlapMinutes: m.OverlapMinutes,
			RankScore:      m.RankScore,
		}
	}
	writeJSON(c, http.StatusOK, resp)
}
